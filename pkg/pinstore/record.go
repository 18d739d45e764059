package pinstore

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen = 16
	keyLen  = 32
)

// Record holds the salted PIN hash and lockout bookkeeping. The hash is
// always PBKDF2-HMAC-SHA256(pin, salt) under the recorded parameters.
type Record struct {
	Salt           []byte
	Hash           []byte
	Iterations     int
	KeyLen         int
	FailedAttempts int
	LockoutUntil   time.Time
	UpdatedAt      time.Time
}

// NewRecord derives a fresh record for pin with a random salt.
func NewRecord(pin string, iterations int) (Record, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return Record{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash := pbkdf2.Key([]byte(pin), salt, iterations, keyLen, sha256.New)
	return Record{
		Salt:       salt,
		Hash:       hash,
		Iterations: iterations,
		KeyLen:     keyLen,
	}, nil
}

// Matches reports whether pin hashes to the stored value. The comparison is
// constant-time.
func (r Record) Matches(pin string) bool {
	candidate := pbkdf2.Key([]byte(pin), r.Salt, r.Iterations, r.KeyLen, sha256.New)
	return subtle.ConstantTimeCompare(candidate, r.Hash) == 1
}

// valid reports whether the record is structurally usable for verification.
func (r Record) valid() bool {
	return len(r.Salt) > 0 && len(r.Hash) > 0 && r.Iterations > 0 && r.KeyLen > 0
}
