package registry

import (
	"github.com/Lintshiwe/LockPort/pkg/store"
)

// Snapshot writes the full registry state to the durable store.
func (r *Registry) Snapshot(s *store.Store) error {
	entries := r.List()
	rows := make([]store.DeviceRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, store.DeviceRow{
			ID:        e.DeviceID,
			Drive:     e.Drive,
			Label:     e.Label,
			LockState: string(e.State),
			LastSeen:  e.LastSeen,
		})
	}
	return s.SaveDevices(rows)
}

// Load replaces registry contents from the durable store. Best-effort: any
// load failure leaves the registry empty rather than failing the caller, so
// a corrupt database never blocks monitoring.
func (r *Registry) Load(s *store.Store) error {
	rows, err := s.ListDevices()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]Entry, len(rows))
	for _, row := range rows {
		state := LockState(row.LockState)
		if state != Unlocked {
			state = Locked
		}
		r.entries[row.ID] = Entry{
			DeviceID: row.ID,
			Drive:    row.Drive,
			Label:    row.Label,
			State:    state,
			LastSeen: row.LastSeen,
		}
	}
	return nil
}
