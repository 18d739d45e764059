// PIN credential store methods. A single row (id = 1) holds the salted hash
// and lockout bookkeeping for the shared PIN.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoCredential is returned when no PIN credential row exists yet.
var ErrNoCredential = errors.New("no pin credential stored")

// CredentialRow is the persisted form of the PIN credential record.
type CredentialRow struct {
	Salt           []byte
	Hash           []byte
	Iterations     int
	KeyLen         int
	FailedAttempts int
	LockoutUntil   time.Time
	UpdatedAt      time.Time
}

// SaveCredential inserts or replaces the single credential row.
func (s *Store) SaveCredential(c CredentialRow) error {
	_, err := s.db.Exec(
		`INSERT INTO pin_credential (id, salt, hash, iterations, key_len, failed_attempts, lockout_until, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   salt = excluded.salt,
		   hash = excluded.hash,
		   iterations = excluded.iterations,
		   key_len = excluded.key_len,
		   failed_attempts = excluded.failed_attempts,
		   lockout_until = excluded.lockout_until,
		   updated_at = excluded.updated_at`,
		c.Salt, c.Hash, c.Iterations, c.KeyLen, c.FailedAttempts,
		unixOrZero(c.LockoutUntil), unixOrZero(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// LoadCredential reads the credential row. Returns ErrNoCredential when the
// store has never been seeded.
func (s *Store) LoadCredential() (CredentialRow, error) {
	row := s.db.QueryRow(
		`SELECT salt, hash, iterations, key_len, failed_attempts, lockout_until, updated_at
		 FROM pin_credential WHERE id = 1`,
	)

	var c CredentialRow
	var lockout, updated int64
	err := row.Scan(&c.Salt, &c.Hash, &c.Iterations, &c.KeyLen, &c.FailedAttempts, &lockout, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return CredentialRow{}, ErrNoCredential
	}
	if err != nil {
		return CredentialRow{}, fmt.Errorf("failed to load credential: %w", err)
	}
	c.LockoutUntil = timeOrZero(lockout)
	c.UpdatedAt = timeOrZero(updated)
	return c, nil
}
