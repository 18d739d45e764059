// Package registry tracks every removable device the monitor has ever
// observed, keyed by its stable hardware identifier.
//
// The registry is the policy view: an entry's lock state reflects the last
// authorization decision, not necessarily the true hardware state. Entries
// are never deleted, only updated, so the device history survives for audit.
package registry

import (
	"sort"
	"sync"
	"time"
)

// LockState is the policy lock state of a device.
type LockState string

const (
	Locked   LockState = "locked"
	Unlocked LockState = "unlocked"
)

// Entry is one tracked device.
type Entry struct {
	DeviceID string
	Drive    string
	Label    string
	State    LockState
	LastSeen time.Time
}

// Registry is an in-memory device map with an optional durable mirror.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Upsert creates or updates the entry for deviceID and always advances
// LastSeen. Empty drive/label arguments preserve the last known values, so a
// removal event that no longer carries them does not erase history.
func (r *Registry) Upsert(deviceID, drive, label string, seenAt time.Time) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[deviceID]
	if !ok {
		e = Entry{DeviceID: deviceID, State: Locked}
	}
	if drive != "" {
		e.Drive = drive
	}
	if label != "" {
		e.Label = label
	}
	e.LastSeen = seenAt
	r.entries[deviceID] = e
	return e
}

// SetLockState updates the policy state for deviceID. Idempotent: repeating
// the current state only refreshes the timestamp. Unknown devices are
// ignored; callers upsert on arrival before locking.
func (r *Registry) SetLockState(deviceID string, state LockState, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[deviceID]
	if !ok {
		return
	}
	e.State = state
	e.LastSeen = at
	r.entries[deviceID] = e
}

// Get returns the entry for deviceID.
func (r *Registry) Get(deviceID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[deviceID]
	return e, ok
}

// List returns a snapshot of all entries ordered by last seen, newest first,
// with device ID as tiebreaker for a stable order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].DeviceID < out[j].DeviceID
	})
	return out
}

// Len returns the number of tracked devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
