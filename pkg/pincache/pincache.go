// Package pincache holds the last successfully verified PIN for a short
// window so secondary consumers (the status view) can skip re-prompting.
//
// The PIN is sealed at rest with AES-256-GCM under a random per-process key,
// so the cache slot alone cannot be read out of a memory dump of shared
// state. The cache is never persisted and never consulted for attempt
// accounting; expiry simply forces the normal prompt path.
package pincache

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/Lintshiwe/LockPort/pkg/timeutil"
)

// DefaultTTL matches the original 120 second reuse window.
const DefaultTTL = 120 * time.Second

// Cache is a single-slot, time-bounded PIN holder. Each Put overwrites the
// previous entry.
type Cache struct {
	mu        sync.Mutex
	aead      cipher.AEAD
	sealed    []byte
	nonce     []byte
	expiresAt time.Time
	clock     timeutil.Clock
}

// New creates a cache with a fresh random sealing key.
func New(clock timeutil.Clock) (*Cache, error) {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("pincache: generate key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("pincache: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("pincache: init gcm: %w", err)
	}

	return &Cache{aead: aead, clock: clock}, nil
}

// Put seals pin and stores it with an absolute expiry of now+ttl,
// overwriting any previous entry.
func (c *Cache) Put(pin string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("pincache: generate nonce: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonce = nonce
	c.sealed = c.aead.Seal(nil, nonce, []byte(pin), nil)
	c.expiresAt = c.clock.Now().Add(ttl)
	return nil
}

// Get returns the cached PIN while unexpired. ok is false once the absolute
// expiry has passed or nothing was stored; the expired entry is dropped.
func (c *Cache) Get() (pin string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed == nil {
		return "", false
	}
	if !c.clock.Now().Before(c.expiresAt) {
		c.dropLocked()
		return "", false
	}

	plain, err := c.aead.Open(nil, c.nonce, c.sealed, nil)
	if err != nil {
		// Unreachable unless the slot was corrupted; treat as a miss.
		c.dropLocked()
		return "", false
	}
	return string(plain), true
}

// Clear discards the cached PIN immediately.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
}

func (c *Cache) dropLocked() {
	c.sealed = nil
	c.nonce = nil
	c.expiresAt = time.Time{}
}
