package pinstore

import (
	"errors"

	"github.com/Lintshiwe/LockPort/pkg/store"
)

// SQLitePersister adapts the shared SQLite store to the Persister interface.
type SQLitePersister struct {
	s *store.Store
}

// NewSQLitePersister wraps a store.
func NewSQLitePersister(s *store.Store) *SQLitePersister {
	return &SQLitePersister{s: s}
}

// Load reads the credential row. ok is false when the store was never seeded.
func (p *SQLitePersister) Load() (Record, bool, error) {
	row, err := p.s.LoadCredential()
	if errors.Is(err, store.ErrNoCredential) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return Record{
		Salt:           row.Salt,
		Hash:           row.Hash,
		Iterations:     row.Iterations,
		KeyLen:         row.KeyLen,
		FailedAttempts: row.FailedAttempts,
		LockoutUntil:   row.LockoutUntil,
		UpdatedAt:      row.UpdatedAt,
	}, true, nil
}

// Save writes the credential row.
func (p *SQLitePersister) Save(r Record) error {
	return p.s.SaveCredential(store.CredentialRow{
		Salt:           r.Salt,
		Hash:           r.Hash,
		Iterations:     r.Iterations,
		KeyLen:         r.KeyLen,
		FailedAttempts: r.FailedAttempts,
		LockoutUntil:   r.LockoutUntil,
		UpdatedAt:      r.UpdatedAt,
	})
}

// MemoryPersister keeps the record in memory. Used by tests and as a fallback
// when the durable store is unavailable.
type MemoryPersister struct {
	rec Record
	ok  bool
}

// Load returns the in-memory record.
func (p *MemoryPersister) Load() (Record, bool, error) { return p.rec, p.ok, nil }

// Save replaces the in-memory record.
func (p *MemoryPersister) Save(r Record) error {
	p.rec = r
	p.ok = true
	return nil
}
