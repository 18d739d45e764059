// Package clierror provides structured errors for CLI output with codes,
// exit codes, and remediation hints.
package clierror

import (
	"encoding/json"
	"fmt"
	"os"
)

// Exit codes for lockctl commands.
const (
	ExitSuccess  = 0 // Operation completed successfully
	ExitGeneral  = 1 // Unknown/unhandled error
	ExitPin      = 2 // Wrong or malformed PIN
	ExitLockout  = 3 // PIN verification locked out
	ExitNotFound = 4 // Resource doesn't exist
	ExitStorage  = 5 // Durable store unavailable
)

// Error codes (strings) for programmatic error handling
const (
	CodePinRejected    = "PIN_REJECTED"
	CodePinInvalid     = "PIN_INVALID"
	CodePinLockedOut   = "PIN_LOCKED_OUT"
	CodeDeviceNotFound = "DEVICE_NOT_FOUND"
	CodeStorageFailed  = "STORAGE_FAILED"
	CodeInternalError  = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	ExitCode  int    `json:"-"` // Not serialized, used for os.Exit
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// PinRejected creates an error for a wrong current PIN.
func PinRejected(attemptsRemaining int) *CLIError {
	return &CLIError{
		Code:      CodePinRejected,
		Message:   "current PIN validation failed",
		Hint:      fmt.Sprintf("%d attempts remaining before lockout", attemptsRemaining),
		Retryable: true,
		ExitCode:  ExitPin,
	}
}

// PinInvalid creates an error for a malformed new PIN.
func PinInvalid() *CLIError {
	return &CLIError{
		Code:      CodePinInvalid,
		Message:   "PIN must be 4-8 numeric digits",
		Retryable: true,
		ExitCode:  ExitPin,
	}
}

// PinLockedOut creates an error for an active lockout window.
func PinLockedOut(remaining string) *CLIError {
	return &CLIError{
		Code:      CodePinLockedOut,
		Message:   fmt.Sprintf("PIN entry is locked out (%s remaining)", remaining),
		Hint:      "Wait for the lockout to expire or run 'lockctl reset-lockout'",
		Retryable: true,
		ExitCode:  ExitLockout,
	}
}

// DeviceNotFound creates an error when a device doesn't exist.
func DeviceNotFound(id string) *CLIError {
	return &CLIError{
		Code:      CodeDeviceNotFound,
		Message:   fmt.Sprintf("device '%s' not found", id),
		Hint:      "Check tracked devices with 'lockctl devices'",
		Retryable: false,
		ExitCode:  ExitNotFound,
	}
}

// StorageFailed creates an error for a failed durable store operation.
func StorageFailed(err error) *CLIError {
	return &CLIError{
		Code:      CodeStorageFailed,
		Message:   fmt.Sprintf("failed to access state database: %s", err),
		Hint:      "Check permissions on the lockport data directory",
		Retryable: true,
		ExitCode:  ExitStorage,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:      CodeInternalError,
		Message:   msg,
		Hint:      "",
		Retryable: false,
		ExitCode:  ExitGeneral,
	}
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for human-readable format.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			// Fallback to simple JSON if marshaling fails
			return fmt.Sprintf(`{"code":"%s","message":"%s"}`, err.Code, err.Message)
		}
		return string(data)
	}

	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// PrintError prints the error to stderr in the appropriate format.
func PrintError(err *CLIError, outputFormat string) {
	fmt.Fprintln(os.Stderr, FormatError(err, outputFormat))
}
