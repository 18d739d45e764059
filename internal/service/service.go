// Package service implements the device authorization workflow: it reacts to
// arrival and removal events, disables new devices, collects PINs, and drives
// the lock orchestrator.
//
// Events are processed sequentially by a single worker, so transitions for a
// given device never race. The gate fails closed: a device stays disabled
// unless a PIN is accepted, and removal always re-arms it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Lintshiwe/LockPort/internal/prompt"
	"github.com/Lintshiwe/LockPort/internal/usbmon"
	"github.com/Lintshiwe/LockPort/pkg/audit"
	"github.com/Lintshiwe/LockPort/pkg/pincache"
	"github.com/Lintshiwe/LockPort/pkg/pinstore"
	"github.com/Lintshiwe/LockPort/pkg/registry"
	"github.com/Lintshiwe/LockPort/pkg/store"
	"github.com/Lintshiwe/LockPort/pkg/timeutil"
)

// DefaultRecentUnlockGrace suppresses re-locking when a device arrival lands
// right after that device was unlocked (driver re-enumeration does this).
const DefaultRecentUnlockGrace = 10 * time.Second

// ErrExitRequested is returned by Run when the user asked the prompt to stop
// the whole service.
var ErrExitRequested = errors.New("service exit requested from prompt")

// DeviceState is the workflow state of one device.
type DeviceState string

const (
	StateDiscovered      DeviceState = "discovered"
	StateAwaitingPin     DeviceState = "awaiting_pin"
	StateUnlocked        DeviceState = "unlocked"
	StateLockedOut       DeviceState = "locked_out"
	StatePromptCancelled DeviceState = "prompt_cancelled"
)

// Controller applies enable/disable decisions to hardware. Satisfied by
// locker.Orchestrator.
type Controller interface {
	SetDeviceEnabled(ctx context.Context, deviceID string, enabled bool) error
	Forget(deviceID string)
}

// Service coordinates monitoring, locking, and PIN validation.
type Service struct {
	reg      *registry.Registry
	pins     *pinstore.Store
	cache    *pincache.Cache
	ctl      Controller
	prompter prompt.Prompter
	db       *store.Store // durable registry mirror; may be nil
	rec      *audit.Recorder
	log      *slog.Logger
	clock    timeutil.Clock

	cacheTTL time.Duration
	grace    time.Duration

	// Only the worker goroutine touches these.
	states     map[string]DeviceState
	unlockedAt map[string]time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects a clock for tests.
func WithClock(c timeutil.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithCacheTTL overrides how long an accepted PIN stays cached.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cacheTTL = d
		}
	}
}

// WithRecentUnlockGrace overrides the re-lock suppression window.
func WithRecentUnlockGrace(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.grace = d
		}
	}
}

// WithDurableStore mirrors registry changes into db. Persist failures are
// logged, never fatal.
func WithDurableStore(db *store.Store) Option {
	return func(s *Service) { s.db = db }
}

// New wires the workflow. rec may be nil to disable audit events.
func New(reg *registry.Registry, pins *pinstore.Store, cache *pincache.Cache,
	ctl Controller, prompter prompt.Prompter, rec *audit.Recorder,
	log *slog.Logger, opts ...Option) *Service {

	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		reg:        reg,
		pins:       pins,
		cache:      cache,
		ctl:        ctl,
		prompter:   prompter,
		rec:        rec,
		log:        log,
		clock:      timeutil.SystemClock{},
		cacheTTL:   pincache.DefaultTTL,
		grace:      DefaultRecentUnlockGrace,
		states:     make(map[string]DeviceState),
		unlockedAt: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the workflow state of a device. Defaults to Discovered for
// devices the workflow has not acted on.
func (s *Service) State(deviceID string) DeviceState {
	if st, ok := s.states[deviceID]; ok {
		return st
	}
	return StateDiscovered
}

// Run consumes events until ctx is cancelled, the channel closes, or the
// user requests exit from a prompt (ErrExitRequested).
func (s *Service) Run(ctx context.Context, events <-chan usbmon.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Device.ID == "" {
				s.log.Warn("skipping device without identifier", "drive", ev.Device.Drive)
				continue
			}
			switch ev.Kind {
			case usbmon.Arrived:
				if err := s.handleArrival(ctx, ev); err != nil {
					return err
				}
			case usbmon.Removed:
				s.handleRemoval(ctx, ev)
			}
		}
	}
}

func (s *Service) handleArrival(ctx context.Context, ev usbmon.Event) error {
	dev := ev.Device
	now := s.clock.Now()

	entry := s.reg.Upsert(dev.ID, dev.Drive, dev.Label, now)
	s.audit(audit.NewDeviceArrival(dev.ID, dev.Drive, dev.Label, ev.Synthetic))

	if entry.State == registry.Unlocked {
		if at, ok := s.unlockedAt[dev.ID]; ok && now.Sub(at) < s.grace {
			s.log.Info("skipping re-lock, device unlocked recently",
				"device", dev.ID, "elapsed", now.Sub(at).Round(time.Millisecond))
			s.persist()
			return nil
		}
		if ev.Synthetic {
			s.log.Info("preserving unlocked state for already-attached device", "device", dev.ID)
			s.persist()
			return nil
		}
	}

	// Disable first. A failure here is logged and reported but the flow
	// continues: the policy layer stays closed even when the hardware
	// action is uncertain.
	if err := s.ctl.SetDeviceEnabled(ctx, dev.ID, false); err != nil {
		s.log.Error("failed to disable device", "device", dev.ID, "error", err)
		s.audit(audit.NewLockFailed(dev.ID, false, err.Error()))
	}
	s.reg.SetLockState(dev.ID, registry.Locked, s.clock.Now())
	s.persist()

	s.states[dev.ID] = StateAwaitingPin
	return s.authorize(ctx, dev)
}

// authorize runs the prompt/verify loop for one device.
func (s *Service) authorize(ctx context.Context, dev usbmon.Device) error {
	st, err := s.pins.Status()
	if err != nil {
		s.log.Error("credential store unavailable", "error", err)
		s.states[dev.ID] = StatePromptCancelled
		return nil
	}
	if st.Locked {
		return s.reportLockout(ctx, dev, st.LockoutRemaining)
	}

	// A fresh cache hit skips the prompt, but is still re-verified: the
	// PIN may have been changed out-of-band since it was cached.
	if pin, ok := s.cache.Get(); ok {
		res, err := s.pins.Verify(pin)
		if err == nil && res.Outcome == pinstore.Accepted {
			s.log.Info("unlocking with cached pin", "device", dev.ID)
			s.audit(audit.NewPinAccepted(dev.ID))
			return s.unlock(ctx, dev, pin)
		}
		s.cache.Clear()
	}

	for {
		st, err := s.pins.Status()
		if err != nil {
			s.log.Error("credential store unavailable", "error", err)
			s.states[dev.ID] = StatePromptCancelled
			return nil
		}

		resp, err := s.prompter.RequestPIN(ctx, prompt.Request{
			DeviceID:          dev.ID,
			Drive:             dev.Drive,
			Label:             dev.Label,
			AttemptsRemaining: st.AttemptLimit - st.FailedAttempts,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error("prompt failed", "device", dev.ID, "error", err)
			s.states[dev.ID] = StatePromptCancelled
			return nil
		}
		if resp.ExitRequested {
			s.log.Info("exit requested from prompt, stopping service", "device", dev.ID)
			s.states[dev.ID] = StatePromptCancelled
			return ErrExitRequested
		}
		if resp.Cancelled {
			s.log.Info("prompt cancelled, device stays disabled", "device", dev.ID)
			s.states[dev.ID] = StatePromptCancelled
			return nil
		}

		res, err := s.pins.Verify(resp.PIN)
		if err != nil {
			// Internal failure, never conflated with a wrong PIN.
			s.log.Error("pin verification failed", "device", dev.ID, "error", err)
			s.states[dev.ID] = StatePromptCancelled
			return nil
		}

		switch res.Outcome {
		case pinstore.Accepted:
			s.audit(audit.NewPinAccepted(dev.ID))
			return s.unlock(ctx, dev, resp.PIN)
		case pinstore.Rejected:
			s.audit(audit.NewPinRejected(dev.ID, res.AttemptsRemaining))
			s.log.Info("pin rejected", "device", dev.ID, "attempts_remaining", res.AttemptsRemaining)
		case pinstore.LockedOut:
			s.audit(audit.NewPinLockout(dev.ID, res.LockoutRemaining))
			return s.reportLockout(ctx, dev, res.LockoutRemaining)
		}
	}
}

func (s *Service) reportLockout(ctx context.Context, dev usbmon.Device, remaining time.Duration) error {
	s.states[dev.ID] = StateLockedOut
	s.log.Warn("pin entry locked out", "device", dev.ID, "remaining", remaining.Round(time.Second))

	if _, err := s.prompter.RequestPIN(ctx, prompt.Request{
		DeviceID:         dev.ID,
		Drive:            dev.Drive,
		Label:            dev.Label,
		LockoutRemaining: remaining,
	}); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (s *Service) unlock(ctx context.Context, dev usbmon.Device, pin string) error {
	if err := s.ctl.SetDeviceEnabled(ctx, dev.ID, true); err != nil {
		s.log.Error("failed to enable device", "device", dev.ID, "error", err)
		s.audit(audit.NewLockFailed(dev.ID, true, err.Error()))
		s.states[dev.ID] = StatePromptCancelled
		return nil
	}

	if err := s.cache.Put(pin, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache pin", "error", err)
	}

	now := s.clock.Now()
	s.reg.SetLockState(dev.ID, registry.Unlocked, now)
	s.unlockedAt[dev.ID] = now
	s.states[dev.ID] = StateUnlocked
	s.audit(audit.NewLockApplied(dev.ID, true))
	s.persist()
	return nil
}

func (s *Service) handleRemoval(ctx context.Context, ev usbmon.Event) {
	dev := ev.Device
	now := s.clock.Now()

	s.audit(audit.NewDeviceRemoval(dev.ID))

	// Best-effort: the hardware is already gone, but re-disabling the
	// port means a reinsertion is gated from the start.
	if err := s.ctl.SetDeviceEnabled(ctx, dev.ID, false); err != nil {
		s.log.Warn("failed to disable removed device", "device", dev.ID, "error", err)
	}
	s.ctl.Forget(dev.ID)

	s.reg.Upsert(dev.ID, dev.Drive, dev.Label, now)
	s.reg.SetLockState(dev.ID, registry.Locked, now)
	delete(s.unlockedAt, dev.ID)
	s.states[dev.ID] = StateDiscovered
	s.persist()
}

// persist mirrors the registry into the durable store. Failure is logged,
// never propagated; the in-memory state remains authoritative.
func (s *Service) persist() {
	if s.db == nil {
		return
	}
	if err := s.reg.Snapshot(s.db); err != nil {
		s.log.Error("failed to persist device registry", "error", err)
	}
}

func (s *Service) audit(ev audit.Event) {
	if s.rec != nil {
		s.rec.Record(ev)
	}
}
