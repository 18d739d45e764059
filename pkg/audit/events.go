// Package audit records security-relevant events from the device
// authorization engine.
package audit

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Severity represents syslog severity levels per RFC 5424.
type Severity int

const (
	SeverityWarning Severity = 4
	SeverityNotice  Severity = 5
	SeverityInfo    Severity = 6
)

// String returns the human-readable name for a severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityNotice:
		return "NOTICE"
	case SeverityWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies a security-relevant audit event.
type EventType string

const (
	EventDeviceArrival EventType = "device.arrival"
	EventDeviceRemoval EventType = "device.removal"
	EventPinAccepted   EventType = "pin.accepted"
	EventPinRejected   EventType = "pin.rejected"
	EventPinLockout    EventType = "pin.lockout"
	EventPinChanged    EventType = "pin.changed"
	EventLockApplied   EventType = "lock.applied"
	EventLockFailed    EventType = "lock.failed"
	EventServiceStart  EventType = "service.start"
	EventServiceStop   EventType = "service.stop"
)

// AllEventTypes returns every defined event type for iteration and validation.
func AllEventTypes() []EventType {
	return []EventType{
		EventDeviceArrival,
		EventDeviceRemoval,
		EventPinAccepted,
		EventPinRejected,
		EventPinLockout,
		EventPinChanged,
		EventLockApplied,
		EventLockFailed,
		EventServiceStart,
		EventServiceStop,
	}
}

// severityMap maps each event type to its syslog severity.
var severityMap = map[EventType]Severity{
	EventDeviceArrival: SeverityNotice,
	EventDeviceRemoval: SeverityNotice,
	EventPinAccepted:   SeverityInfo,
	EventPinRejected:   SeverityWarning,
	EventPinLockout:    SeverityWarning,
	EventPinChanged:    SeverityNotice,
	EventLockApplied:   SeverityInfo,
	EventLockFailed:    SeverityWarning,
	EventServiceStart:  SeverityNotice,
	EventServiceStop:   SeverityNotice,
}

// SeverityFor returns the syslog severity for a given event type.
// Unknown event types return SeverityWarning (fail-secure: treat unknowns
// as concerning).
func SeverityFor(et EventType) Severity {
	if s, ok := severityMap[et]; ok {
		return s
	}
	return SeverityWarning
}

// Event is one recorded occurrence with structured fields.
type Event struct {
	ID        string
	Type      EventType
	Severity  Severity
	Timestamp time.Time
	DeviceID  string            // empty for service-level events
	Details   map[string]string // event-specific fields
}

// newEvent builds an event with a fresh ID and mapped severity.
func newEvent(et EventType, deviceID string, details map[string]string) Event {
	if details == nil {
		details = map[string]string{}
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      et,
		Severity:  SeverityFor(et),
		Timestamp: time.Now(),
		DeviceID:  deviceID,
		Details:   details,
	}
}

// NewDeviceArrival records a device arrival notification.
func NewDeviceArrival(deviceID, drive, label string, synthetic bool) Event {
	details := map[string]string{"drive": drive, "label": label}
	if synthetic {
		details["synthetic"] = "true"
	}
	return newEvent(EventDeviceArrival, deviceID, details)
}

// NewDeviceRemoval records a device removal notification.
func NewDeviceRemoval(deviceID string) Event {
	return newEvent(EventDeviceRemoval, deviceID, nil)
}

// NewPinAccepted records a successful PIN verification for a device.
func NewPinAccepted(deviceID string) Event {
	return newEvent(EventPinAccepted, deviceID, nil)
}

// NewPinRejected records a failed PIN verification.
func NewPinRejected(deviceID string, attemptsRemaining int) Event {
	return newEvent(EventPinRejected, deviceID, map[string]string{
		"attempts_remaining": strconv.Itoa(attemptsRemaining),
	})
}

// NewPinLockout records the start (or continuation) of a lockout window.
func NewPinLockout(deviceID string, remaining time.Duration) Event {
	return newEvent(EventPinLockout, deviceID, map[string]string{
		"remaining": remaining.Round(time.Second).String(),
	})
}

// NewPinChanged records an administrative PIN change.
func NewPinChanged(skipCurrentCheck bool) Event {
	details := map[string]string{}
	if skipCurrentCheck {
		details["skip_current_check"] = "true"
	}
	return newEvent(EventPinChanged, "", details)
}

// NewLockApplied records a successful enable/disable action.
func NewLockApplied(deviceID string, enabled bool) Event {
	return newEvent(EventLockApplied, deviceID, map[string]string{
		"enabled": strconv.FormatBool(enabled),
	})
}

// NewLockFailed records an enable/disable action where both mechanisms failed.
func NewLockFailed(deviceID string, enabled bool, reason string) Event {
	return newEvent(EventLockFailed, deviceID, map[string]string{
		"enabled": strconv.FormatBool(enabled),
		"reason":  reason,
	})
}

// NewServiceStart records the monitor starting.
func NewServiceStart(version string) Event {
	return newEvent(EventServiceStart, "", map[string]string{"version": version})
}

// NewServiceStop records the monitor stopping.
func NewServiceStop(reason string) Event {
	return newEvent(EventServiceStop, "", map[string]string{"reason": reason})
}
