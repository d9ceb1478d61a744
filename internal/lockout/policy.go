// Package lockout implements the per-account failed-attempt state machine.
//
// The policy is pure: it maps an observed state plus an event to the next
// state. Persisting the result and serializing concurrent updates is the
// caller's responsibility; concurrent failures against the same account may
// under-count unless the store serializes per row.
package lockout

import (
	"errors"
	"time"
)

// Tier classifies the lock applied by a failure transition.
type Tier int

const (
	// TierNone means the account stays unlocked (warned or active).
	TierNone Tier = iota
	// TierFirst is the shorter lock applied at the first threshold.
	TierFirst
	// TierSecond is the longer lock applied at the second threshold; the
	// failure counter resets to zero when it is reached.
	TierSecond
)

// State is the lockout fragment of an account's security state.
// Invariant: Locked implies UnlockAt is set.
type State struct {
	FailedAttempts int
	Locked         bool
	UnlockAt       time.Time
}

// Policy holds the lockout thresholds and durations.
type Policy struct {
	FirstThreshold     int
	SecondThreshold    int
	FirstLockDuration  time.Duration
	SecondLockDuration time.Duration
}

// Default returns the stock 5/10 policy with 15-minute and 1-hour locks.
func Default() Policy {
	return Policy{
		FirstThreshold:     5,
		SecondThreshold:    10,
		FirstLockDuration:  15 * time.Minute,
		SecondLockDuration: time.Hour,
	}
}

// Validate checks the policy for internally consistent thresholds.
func (p Policy) Validate() error {
	if p.FirstThreshold < 1 {
		return errors.New("lockout first threshold must be >= 1")
	}
	if p.SecondThreshold <= p.FirstThreshold {
		return errors.New("lockout second threshold must exceed the first")
	}
	if p.FirstLockDuration <= 0 || p.SecondLockDuration <= 0 {
		return errors.New("lockout durations must be positive")
	}
	return nil
}

// Gate is evaluated before any credential check. A locked account whose
// unlock time has not passed is denied without mutating the counter. A
// locked account past its unlock time auto-transitions back before the
// check proceeds: the lock clears, but the counter is retained so repeat
// offenders walk from the first tier into the second instead of cycling
// through short locks forever. A second-tier lock already reset the
// counter when it was applied.
func (p Policy) Gate(s State, now time.Time) (State, bool) {
	if !s.Locked {
		return s, true
	}
	if now.Before(s.UnlockAt) {
		return s, false
	}

	s.Locked = false
	s.UnlockAt = time.Time{}
	return s, true
}

// OnFailure records one failed credential check and returns the next state
// plus the lock tier applied, if any.
func (p Policy) OnFailure(s State, now time.Time) (State, Tier) {
	s.FailedAttempts++

	switch {
	case s.FailedAttempts >= p.SecondThreshold:
		s.FailedAttempts = 0
		s.Locked = true
		s.UnlockAt = now.Add(p.SecondLockDuration)
		return s, TierSecond
	case s.FailedAttempts == p.FirstThreshold:
		s.Locked = true
		s.UnlockAt = now.Add(p.FirstLockDuration)
		return s, TierFirst
	default:
		return s, TierNone
	}
}

// OnSuccess records a successful credential check or verification event:
// the counter resets and any lock clears.
func (p Policy) OnSuccess(s State) State {
	s.FailedAttempts = 0
	s.Locked = false
	s.UnlockAt = time.Time{}
	return s
}
