package statusapi

import (
	"net/http"
	"time"

	"github.com/Lintshiwe/LockPort/pkg/registry"
)

// handleHealth returns liveness and basic identity.
// GET /v1/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if _, err := s.pins.Status(); err != nil {
		status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  status,
		Version: s.version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}

// handleStatus returns the aggregate engine state.
// GET /v1/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	pinStatus, err := s.pins.Status()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "credential store unavailable: "+err.Error())
		return
	}

	entries := s.reg.List()
	unlocked := 0
	for _, e := range entries {
		if e.State == registry.Unlocked {
			unlocked++
		}
	}

	resp := StatusResponse{
		Version:  s.version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Devices:  len(entries),
		Unlocked: unlocked,
		Pin: PinStatus{
			FailedAttempts: pinStatus.FailedAttempts,
			AttemptLimit:   pinStatus.AttemptLimit,
			LockedOut:      pinStatus.Locked,
		},
		Timestamp: time.Now().UTC(),
	}
	if pinStatus.Locked {
		resp.Pin.LockoutRemaining = pinStatus.LockoutRemaining.Round(time.Second).String()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleDevices returns every tracked device, newest first.
// GET /v1/devices
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	entries := s.reg.List()
	resp := DevicesResponse{Devices: make([]DeviceResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Devices = append(resp.Devices, DeviceResponse{
			DeviceID: e.DeviceID,
			Drive:    e.Drive,
			Label:    e.Label,
			State:    string(e.State),
			LastSeen: e.LastSeen,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}
