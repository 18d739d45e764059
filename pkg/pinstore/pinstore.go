// Package pinstore implements the PIN credential store: salted PBKDF2
// hashing, failed-attempt lockout, and administrative PIN management.
//
// One record governs all devices. All operations serialize on an internal
// mutex so concurrent verifications cannot lose counter updates.
package pinstore

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Lintshiwe/LockPort/pkg/timeutil"
)

// DefaultPin seeds the store on first run. Operators are expected to change
// it immediately via `lockctl set-pin`.
const DefaultPin = "0000"

var (
	// ErrInvalidPin indicates the new PIN does not meet format rules.
	ErrInvalidPin = errors.New("pin must be 4-8 numeric digits")

	// ErrCurrentPinMismatch indicates the current-PIN gate failed during SetPin.
	ErrCurrentPinMismatch = errors.New("current pin validation failed")

	// ErrLockedOut indicates verification is refused until the lockout expires.
	ErrLockedOut = errors.New("pin entry temporarily locked")

	// ErrCorruptRecord indicates the stored record is unusable. This is an
	// internal failure, never to be conflated with a wrong PIN.
	ErrCorruptRecord = errors.New("pin record is corrupt")
)

// Outcome classifies a verification attempt.
type Outcome int

const (
	Accepted Outcome = iota
	Rejected
	LockedOut
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case LockedOut:
		return "locked_out"
	default:
		return "unknown"
	}
}

// Result carries the verification outcome and operator-facing context.
type Result struct {
	Outcome           Outcome
	AttemptsRemaining int           // set when Rejected
	LockoutRemaining  time.Duration // set when LockedOut
}

// Status is a read-only snapshot for the CLI and status API.
type Status struct {
	FailedAttempts   int
	AttemptLimit     int
	Locked           bool
	LockoutRemaining time.Duration
	UpdatedAt        time.Time
}

// Policy configures lockout and hashing behavior.
type Policy struct {
	AttemptLimit    int           // consecutive failures before lockout
	LockoutDuration time.Duration // absolute lockout window
	Iterations      int           // PBKDF2 iteration count
}

// DefaultPolicy matches the shipped configuration: 5 attempts, 5 minute
// lockout, 100k iterations.
func DefaultPolicy() Policy {
	return Policy{
		AttemptLimit:    5,
		LockoutDuration: 5 * time.Minute,
		Iterations:      100000,
	}
}

// Persister loads and saves the credential record. Implementations must be
// safe for use from a single Store instance.
type Persister interface {
	Load() (Record, bool, error)
	Save(Record) error
}

// Store verifies and manages the shared PIN credential.
type Store struct {
	mu     sync.Mutex
	p      Persister
	policy Policy
	clock  timeutil.Clock
}

// New creates a Store over the given persister. A missing record is seeded
// with the default PIN so first-run installs are immediately gated.
func New(p Persister, policy Policy, clock timeutil.Clock) (*Store, error) {
	if p == nil {
		return nil, errors.New("pinstore: nil persister")
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if policy.AttemptLimit <= 0 || policy.Iterations <= 0 || policy.LockoutDuration <= 0 {
		return nil, fmt.Errorf("pinstore: invalid policy %+v", policy)
	}

	s := &Store{
		p:      p,
		policy: policy,
		clock:  clock,
	}

	_, ok, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("pinstore: load record: %w", err)
	}
	if !ok {
		rec, err := NewRecord(DefaultPin, policy.Iterations)
		if err != nil {
			return nil, err
		}
		rec.UpdatedAt = clock.Now()
		if err := p.Save(rec); err != nil {
			return nil, fmt.Errorf("pinstore: seed record: %w", err)
		}
	}
	return s, nil
}

// Verify checks a candidate PIN against the stored record.
//
// A wrong PIN increments the failure counter; crossing the attempt limit
// starts the lockout window. While locked out every call returns LockedOut,
// correct PIN included. The lockout deadline is absolute and re-checked on
// each call, never a decrementing counter.
func (s *Store) Verify(candidate string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.p.Load()
	if err != nil {
		return Result{}, fmt.Errorf("pinstore: load record: %w", err)
	}
	if !ok || !rec.valid() {
		return Result{}, ErrCorruptRecord
	}

	now := s.clock.Now()
	if !rec.LockoutUntil.IsZero() {
		if now.Before(rec.LockoutUntil) {
			return Result{Outcome: LockedOut, LockoutRemaining: rec.LockoutUntil.Sub(now)}, nil
		}
		// Lockout expired; clear it before evaluating this attempt.
		rec.LockoutUntil = time.Time{}
	}

	if rec.Matches(candidate) {
		rec.FailedAttempts = 0
		rec.LockoutUntil = time.Time{}
		rec.UpdatedAt = now
		if err := s.p.Save(rec); err != nil {
			return Result{}, fmt.Errorf("pinstore: save record: %w", err)
		}
		return Result{Outcome: Accepted}, nil
	}

	rec.FailedAttempts++
	rec.UpdatedAt = now
	if rec.FailedAttempts >= s.policy.AttemptLimit {
		rec.LockoutUntil = now.Add(s.policy.LockoutDuration)
		rec.FailedAttempts = 0
		if err := s.p.Save(rec); err != nil {
			return Result{}, fmt.Errorf("pinstore: save record: %w", err)
		}
		return Result{Outcome: LockedOut, LockoutRemaining: s.policy.LockoutDuration}, nil
	}
	if err := s.p.Save(rec); err != nil {
		return Result{}, fmt.Errorf("pinstore: save record: %w", err)
	}
	return Result{
		Outcome:           Rejected,
		AttemptsRemaining: s.policy.AttemptLimit - rec.FailedAttempts,
	}, nil
}

// SetPin replaces the stored credential. The current PIN must verify unless
// skipCurrentCheck is set (elevated recovery flows only). Success resets the
// failure counter and clears any lockout.
func (s *Store) SetPin(current, newPin string, skipCurrentCheck bool) error {
	if !validPinFormat(newPin) {
		return ErrInvalidPin
	}

	if !skipCurrentCheck {
		res, err := s.Verify(current)
		if err != nil {
			return err
		}
		switch res.Outcome {
		case Accepted:
		case LockedOut:
			return fmt.Errorf("%w: retry in %s", ErrLockedOut, res.LockoutRemaining.Round(time.Second))
		default:
			return ErrCurrentPinMismatch
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := NewRecord(newPin, s.policy.Iterations)
	if err != nil {
		return err
	}
	rec.UpdatedAt = s.clock.Now()
	if err := s.p.Save(rec); err != nil {
		return fmt.Errorf("pinstore: save record: %w", err)
	}
	return nil
}

// ResetLockout unconditionally clears the failure counter and lockout.
// Administrative recovery only.
func (s *Store) ResetLockout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.p.Load()
	if err != nil {
		return fmt.Errorf("pinstore: load record: %w", err)
	}
	if !ok {
		return ErrCorruptRecord
	}
	rec.FailedAttempts = 0
	rec.LockoutUntil = time.Time{}
	rec.UpdatedAt = s.clock.Now()
	if err := s.p.Save(rec); err != nil {
		return fmt.Errorf("pinstore: save record: %w", err)
	}
	return nil
}

// Status reports the current failure counter and lockout state.
func (s *Store) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.p.Load()
	if err != nil {
		return Status{}, fmt.Errorf("pinstore: load record: %w", err)
	}
	if !ok {
		return Status{}, ErrCorruptRecord
	}

	now := s.clock.Now()
	st := Status{
		FailedAttempts: rec.FailedAttempts,
		AttemptLimit:   s.policy.AttemptLimit,
		UpdatedAt:      rec.UpdatedAt,
	}
	if !rec.LockoutUntil.IsZero() && now.Before(rec.LockoutUntil) {
		st.Locked = true
		st.LockoutRemaining = rec.LockoutUntil.Sub(now)
	}
	return st, nil
}

// validPinFormat enforces the 4-8 numeric digit rule.
func validPinFormat(pin string) bool {
	if len(pin) < 4 || len(pin) > 8 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
