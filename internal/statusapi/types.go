package statusapi

import "time"

// HealthResponse is the response for GET /v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// PinStatus reports credential store state without exposing the secret.
type PinStatus struct {
	FailedAttempts   int    `json:"failed_attempts"`
	AttemptLimit     int    `json:"attempt_limit"`
	LockedOut        bool   `json:"locked_out"`
	LockoutRemaining string `json:"lockout_remaining,omitempty"`
}

// StatusResponse is the response for GET /v1/status.
type StatusResponse struct {
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Devices   int       `json:"devices"`
	Unlocked  int       `json:"unlocked"`
	Pin       PinStatus `json:"pin"`
	Timestamp time.Time `json:"timestamp"`
}

// DeviceResponse is one entry in the GET /v1/devices list.
type DeviceResponse struct {
	DeviceID string    `json:"device_id"`
	Drive    string    `json:"drive,omitempty"`
	Label    string    `json:"label,omitempty"`
	State    string    `json:"state"`
	LastSeen time.Time `json:"last_seen"`
}

// DevicesResponse is the response for GET /v1/devices.
type DevicesResponse struct {
	Devices []DeviceResponse `json:"devices"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
