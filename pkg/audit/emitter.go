package audit

import (
	"log/slog"
)

// EventEmitter accepts structured audit events for recording.
type EventEmitter interface {
	Emit(Event) error
}

// NopEmitter discards all events. Use when no audit backend is configured.
type NopEmitter struct{}

// Emit discards the event.
func (NopEmitter) Emit(Event) error { return nil }

// Recorder fans audit events out to one or more EventEmitter backends.
// Emit failures are logged but never propagate; a broken audit backend must
// not block the authorization workflow.
type Recorder struct {
	backends []EventEmitter
	logger   *slog.Logger
}

// NewRecorder creates a recorder that forwards events to the given backends.
// If logger is nil, slog.Default() is used for error reporting.
func NewRecorder(logger *slog.Logger, backends ...EventEmitter) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		backends: backends,
		logger:   logger,
	}
}

// Record writes ev to all backends.
func (r *Recorder) Record(ev Event) {
	for _, b := range r.backends {
		if err := b.Emit(ev); err != nil {
			r.logger.Error("audit emit failed", "event", ev.Type, "error", err)
		}
	}
}

// SlogEmitter writes audit events to a structured logger. This is the
// default backend for workstation installs where no syslog daemon runs.
type SlogEmitter struct {
	Logger *slog.Logger
}

// Emit implements EventEmitter.
func (e SlogEmitter) Emit(ev Event) error {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := make([]any, 0, 8+2*len(ev.Details))
	attrs = append(attrs,
		"audit_id", ev.ID,
		"severity", ev.Severity.String(),
		"device", ev.DeviceID,
	)
	for k, v := range ev.Details {
		attrs = append(attrs, k, v)
	}

	switch ev.Severity {
	case SeverityWarning:
		logger.Warn(string(ev.Type), attrs...)
	default:
		logger.Info(string(ev.Type), attrs...)
	}
	return nil
}
