package clierror

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		got      int
		expected int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitGeneral", ExitGeneral, 1},
		{"ExitPin", ExitPin, 2},
		{"ExitLockout", ExitLockout, 3},
		{"ExitNotFound", ExitNotFound, 4},
		{"ExitStorage", ExitStorage, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"CodePinRejected", CodePinRejected, "PIN_REJECTED"},
		{"CodePinInvalid", CodePinInvalid, "PIN_INVALID"},
		{"CodePinLockedOut", CodePinLockedOut, "PIN_LOCKED_OUT"},
		{"CodeDeviceNotFound", CodeDeviceNotFound, "DEVICE_NOT_FOUND"},
		{"CodeStorageFailed", CodeStorageFailed, "STORAGE_FAILED"},
		{"CodeInternalError", CodeInternalError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestCLIError_Error(t *testing.T) {
	t.Parallel()
	err := &CLIError{
		Code:    CodeDeviceNotFound,
		Message: "device 'usb-test' not found",
	}

	if err.Error() != "device 'usb-test' not found" {
		t.Errorf("Error() = %q, want %q", err.Error(), "device 'usb-test' not found")
	}
}

func TestPinLockedOut(t *testing.T) {
	t.Parallel()
	err := PinLockedOut("4m30s")

	if err.Code != CodePinLockedOut {
		t.Errorf("Code = %q, want %q", err.Code, CodePinLockedOut)
	}
	if err.ExitCode != ExitLockout {
		t.Errorf("ExitCode = %d, want %d", err.ExitCode, ExitLockout)
	}
	if !err.Retryable {
		t.Error("lockout errors are retryable once the window expires")
	}
	if !strings.Contains(err.Message, "4m30s") {
		t.Errorf("Message missing remaining time: %q", err.Message)
	}
}

func TestPinRejected(t *testing.T) {
	t.Parallel()
	err := PinRejected(3)

	if err.ExitCode != ExitPin {
		t.Errorf("ExitCode = %d, want %d", err.ExitCode, ExitPin)
	}
	if !strings.Contains(err.Hint, "3 attempts") {
		t.Errorf("Hint missing attempt context: %q", err.Hint)
	}
}

func TestStorageFailed(t *testing.T) {
	t.Parallel()
	err := StorageFailed(errors.New("disk full"))

	if err.ExitCode != ExitStorage {
		t.Errorf("ExitCode = %d, want %d", err.ExitCode, ExitStorage)
	}
	if !strings.Contains(err.Message, "disk full") {
		t.Errorf("Message missing cause: %q", err.Message)
	}
}

func TestFormatError_JSON(t *testing.T) {
	t.Parallel()
	err := DeviceNotFound("usb-1")
	out := FormatError(err, "json")

	var decoded CLIError
	if jsonErr := json.Unmarshal([]byte(out), &decoded); jsonErr != nil {
		t.Fatalf("output is not valid JSON: %v", jsonErr)
	}
	if decoded.Code != CodeDeviceNotFound {
		t.Errorf("decoded Code = %q, want %q", decoded.Code, CodeDeviceNotFound)
	}
}

func TestFormatError_Human(t *testing.T) {
	t.Parallel()
	err := PinLockedOut("30s")
	out := FormatError(err, "table")

	if !strings.Contains(out, "Error [PIN_LOCKED_OUT]") {
		t.Errorf("missing code prefix: %q", out)
	}
	if !strings.Contains(out, "Hint:") {
		t.Errorf("missing hint line: %q", out)
	}
}
