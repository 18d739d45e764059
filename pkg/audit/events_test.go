package audit

import (
	"testing"
	"time"
)

func TestEventTypeNames(t *testing.T) {
	t.Parallel()

	expected := map[EventType]string{
		EventDeviceArrival: "device.arrival",
		EventDeviceRemoval: "device.removal",
		EventPinAccepted:   "pin.accepted",
		EventPinRejected:   "pin.rejected",
		EventPinLockout:    "pin.lockout",
		EventPinChanged:    "pin.changed",
		EventLockApplied:   "lock.applied",
		EventLockFailed:    "lock.failed",
		EventServiceStart:  "service.start",
		EventServiceStop:   "service.stop",
	}

	for constant, want := range expected {
		if string(constant) != want {
			t.Errorf("EventType constant %q != expected %q", string(constant), want)
		}
	}

	all := AllEventTypes()
	if len(all) != len(expected) {
		t.Fatalf("AllEventTypes() returned %d events, want %d", len(all), len(expected))
	}

	seen := make(map[EventType]bool)
	for _, et := range all {
		seen[et] = true
	}
	for constant := range expected {
		if !seen[constant] {
			t.Errorf("AllEventTypes() missing %q", string(constant))
		}
	}
}

func TestSeverityMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		event    EventType
		severity Severity
		label    string
	}{
		{EventPinAccepted, SeverityInfo, "INFO"},
		{EventPinRejected, SeverityWarning, "WARNING"},
		{EventPinLockout, SeverityWarning, "WARNING"},
		{EventDeviceArrival, SeverityNotice, "NOTICE"},
		{EventLockFailed, SeverityWarning, "WARNING"},
		{EventServiceStart, SeverityNotice, "NOTICE"},
	}

	for _, tt := range tests {
		if got := SeverityFor(tt.event); got != tt.severity {
			t.Errorf("SeverityFor(%s) = %d, want %d", tt.event, got, tt.severity)
		}
		if got := tt.severity.String(); got != tt.label {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.severity, got, tt.label)
		}
	}
}

func TestSeverityFor_UnknownIsWarning(t *testing.T) {
	t.Parallel()

	if got := SeverityFor(EventType("made.up")); got != SeverityWarning {
		t.Errorf("unknown event type severity = %d, want %d (fail-secure)", got, SeverityWarning)
	}
}

func TestConstructorsPopulateEvents(t *testing.T) {
	t.Parallel()

	before := time.Now()
	ev := NewPinRejected("USB\\VID_1\\A", 3)

	if ev.ID == "" {
		t.Error("event ID must be set")
	}
	if ev.Type != EventPinRejected {
		t.Errorf("Type = %s, want %s", ev.Type, EventPinRejected)
	}
	if ev.DeviceID != "USB\\VID_1\\A" {
		t.Errorf("DeviceID = %q", ev.DeviceID)
	}
	if ev.Details["attempts_remaining"] != "3" {
		t.Errorf("attempts_remaining = %q, want 3", ev.Details["attempts_remaining"])
	}
	if ev.Timestamp.Before(before) {
		t.Error("timestamp must not precede construction")
	}

	ev = NewDeviceArrival("dev1", "E:", "SANDISK", true)
	if ev.Details["synthetic"] != "true" {
		t.Error("synthetic arrivals must be marked")
	}
	if ev.Details["drive"] != "E:" || ev.Details["label"] != "SANDISK" {
		t.Errorf("context fields missing: %v", ev.Details)
	}

	ev = NewLockFailed("dev1", false, "powershell: timeout; pnputil: exit 1")
	if ev.Severity != SeverityWarning {
		t.Errorf("lock failure severity = %d, want warning", ev.Severity)
	}
	if ev.Details["enabled"] != "false" {
		t.Errorf("enabled = %q", ev.Details["enabled"])
	}

	ev = NewPinLockout("dev1", 4*time.Minute+30*time.Second)
	if ev.Details["remaining"] != "4m30s" {
		t.Errorf("remaining = %q, want 4m30s", ev.Details["remaining"])
	}
}

func TestEventIDsUnique(t *testing.T) {
	t.Parallel()

	a := NewPinAccepted("dev1")
	b := NewPinAccepted("dev1")
	if a.ID == b.ID {
		t.Error("consecutive events must get distinct IDs")
	}
}
