package usbmon

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPollInterval is how often the monitor re-enumerates devices.
const DefaultPollInterval = 2 * time.Second

// Source enumerates the removable storage devices currently attached.
type Source interface {
	Devices(ctx context.Context) ([]Device, error)
}

// Monitor polls a Source and publishes arrival/removal events.
type Monitor struct {
	source   Source
	interval time.Duration
	events   chan Event
	log      *slog.Logger

	known map[string]Device
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithPollInterval overrides the enumeration interval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// New creates a Monitor over the given source. Events are delivered on the
// channel returned by Events once Run is started.
func New(source Source, log *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		source:   source,
		interval: DefaultPollInterval,
		events:   make(chan Event, 32),
		log:      log,
		known:    make(map[string]Device),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the channel arrival and removal events are delivered on.
// The channel is closed when Run returns.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Run blocks, polling the source until ctx is cancelled. The first
// enumeration reports every attached device as a synthetic arrival.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.events)

	if err := m.poll(ctx, true); err != nil {
		m.log.Warn("initial device enumeration failed", "error", err)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.poll(ctx, false); err != nil {
				m.log.Warn("device enumeration failed", "error", err)
			}
		}
	}
}

// poll diffs the current snapshot against the last one and emits events.
func (m *Monitor) poll(ctx context.Context, synthetic bool) error {
	devices, err := m.source.Devices(ctx)
	if err != nil {
		return err
	}

	current := make(map[string]Device, len(devices))
	for _, d := range devices {
		if d.ID == "" {
			continue
		}
		current[d.ID] = d
	}

	for id, d := range current {
		if _, ok := m.known[id]; !ok {
			m.emit(ctx, Event{Device: d, Kind: Arrived, Synthetic: synthetic})
		}
	}
	for id, d := range m.known {
		if _, ok := current[id]; !ok {
			// Report the last-known drive and label; the hardware is
			// already gone so the source cannot resolve them anymore.
			m.emit(ctx, Event{Device: d, Kind: Removed})
		}
	}

	m.known = current
	return nil
}

func (m *Monitor) emit(ctx context.Context, ev Event) {
	m.log.Info("usb event",
		"kind", string(ev.Kind),
		"device", ev.Device.ID,
		"drive", ev.Device.Drive,
		"label", ev.Device.Label,
		"synthetic", ev.Synthetic)

	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}
