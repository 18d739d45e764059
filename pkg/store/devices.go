// Device snapshot store methods.
package store

import (
	"fmt"
	"time"
)

// DeviceRow is the persisted form of a registry entry.
type DeviceRow struct {
	ID        string
	Drive     string
	Label     string
	LockState string
	LastSeen  time.Time
}

// SaveDevice inserts or replaces a device row.
func (s *Store) SaveDevice(d DeviceRow) error {
	_, err := s.db.Exec(
		`INSERT INTO devices (id, drive, label, lock_state, last_seen)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   drive = excluded.drive,
		   label = excluded.label,
		   lock_state = excluded.lock_state,
		   last_seen = excluded.last_seen`,
		d.ID, d.Drive, d.Label, d.LockState, unixOrZero(d.LastSeen),
	)
	if err != nil {
		return fmt.Errorf("failed to save device %s: %w", d.ID, err)
	}
	return nil
}

// SaveDevices writes a full registry snapshot in one transaction.
func (s *Store) SaveDevices(rows []DeviceRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO devices (id, drive, label, lock_state, last_seen)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   drive = excluded.drive,
		   label = excluded.label,
		   lock_state = excluded.lock_state,
		   last_seen = excluded.last_seen`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot: %w", err)
	}
	defer stmt.Close()

	for _, d := range rows {
		if _, err := stmt.Exec(d.ID, d.Drive, d.Label, d.LockState, unixOrZero(d.LastSeen)); err != nil {
			return fmt.Errorf("failed to save device %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// ListDevices returns all device rows ordered by last seen, newest first.
func (s *Store) ListDevices() ([]DeviceRow, error) {
	rows, err := s.db.Query(
		`SELECT id, drive, label, lock_state, last_seen
		 FROM devices ORDER BY last_seen DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var out []DeviceRow
	for rows.Next() {
		var d DeviceRow
		var lastSeen int64
		if err := rows.Scan(&d.ID, &d.Drive, &d.Label, &d.LockState, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		d.LastSeen = timeOrZero(lastSeen)
		out = append(out, d)
	}
	return out, rows.Err()
}
