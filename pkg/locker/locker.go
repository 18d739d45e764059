// Package locker turns an authorization decision into an actual device
// enable/disable action.
//
// The privileged mechanism is an injected strategy: a primary is tried with
// a bounded timeout, and on failure or timeout a fallback is tried once.
// Either succeeding counts as success; both failing yields the combined
// diagnostic. The orchestrator updates the device registry on success.
package locker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Lintshiwe/LockPort/pkg/registry"
	"github.com/Lintshiwe/LockPort/pkg/timeutil"
)

// DefaultTimeout bounds each individual mechanism invocation.
const DefaultTimeout = 15 * time.Second

// ErrEmptyDeviceID is returned for a blank device identifier. This is a
// caller bug, not a mechanism failure.
var ErrEmptyDeviceID = errors.New("locker: empty device id")

// Mechanism applies an enable/disable action to a device. Implementations
// must honor ctx cancellation and return an error describing the failure.
type Mechanism interface {
	Name() string
	Apply(ctx context.Context, deviceID string, enable bool) error
}

// Orchestrator drives the primary/fallback mechanism pair.
type Orchestrator struct {
	primary  Mechanism
	fallback Mechanism
	reg      *registry.Registry
	timeout  time.Duration
	clock    timeutil.Clock
	log      *slog.Logger

	mu      sync.Mutex
	applied map[string]bool // deviceID -> last successfully applied enabled state
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout overrides the per-invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithClock injects a clock for tests.
func WithClock(c timeutil.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// New creates an orchestrator. fallback may be nil when no secondary
// mechanism exists on the platform.
func New(primary, fallback Mechanism, reg *registry.Registry, log *slog.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	o := &Orchestrator{
		primary:  primary,
		fallback: fallback,
		reg:      reg,
		timeout:  DefaultTimeout,
		clock:    timeutil.SystemClock{},
		log:      log,
		applied:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetDeviceEnabled applies the desired state to the device. Re-applying the
// last successfully applied state is a no-op success. On success the
// registry lock state is updated to match.
func (o *Orchestrator) SetDeviceEnabled(ctx context.Context, deviceID string, enabled bool) error {
	if deviceID == "" {
		return ErrEmptyDeviceID
	}

	o.mu.Lock()
	if last, ok := o.applied[deviceID]; ok && last == enabled {
		o.mu.Unlock()
		o.log.Debug("device already in desired state", "device", deviceID, "enabled", enabled)
		return nil
	}
	o.mu.Unlock()

	primaryErr := o.invoke(ctx, o.primary, deviceID, enabled)
	if primaryErr == nil {
		o.recordSuccess(deviceID, enabled, o.primary.Name())
		return nil
	}

	if o.fallback == nil {
		return fmt.Errorf("%s: %w", o.primary.Name(), primaryErr)
	}

	o.log.Info("primary mechanism failed, trying fallback",
		"device", deviceID, "primary", o.primary.Name(), "error", primaryErr)

	fallbackErr := o.invoke(ctx, o.fallback, deviceID, enabled)
	if fallbackErr == nil {
		o.recordSuccess(deviceID, enabled, o.fallback.Name())
		return nil
	}

	return fmt.Errorf("%s: %v; %s: %v", o.primary.Name(), primaryErr, o.fallback.Name(), fallbackErr)
}

// Forget drops the applied-state memory for a device. Called on removal:
// the hardware state of a reinserted device is unknown, so the next action
// must actually run.
func (o *Orchestrator) Forget(deviceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.applied, deviceID)
}

func (o *Orchestrator) invoke(ctx context.Context, m Mechanism, deviceID string, enable bool) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return m.Apply(ctx, deviceID, enable)
}

func (o *Orchestrator) recordSuccess(deviceID string, enabled bool, mechanism string) {
	o.mu.Lock()
	o.applied[deviceID] = enabled
	o.mu.Unlock()

	state := registry.Locked
	if enabled {
		state = registry.Unlocked
	}
	if o.reg != nil {
		o.reg.SetLockState(deviceID, state, o.clock.Now())
	}
	o.log.Info("device state applied", "device", deviceID, "enabled", enabled, "mechanism", mechanism)
}
