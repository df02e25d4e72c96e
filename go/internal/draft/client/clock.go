package client

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown is the clock view at one tick. Every field is recomputed from
// the anchors and the wall clock; nothing is carried between ticks.
type Countdown struct {
	Now time.Time

	// PreDraft counts down to the scheduled start until the draft starts
	// or a slot is on the clock.
	PreDraft       time.Duration
	PreDraftActive bool

	// Pick counts down the slot on the clock.
	Pick       time.Duration
	PickActive bool

	// Urgent is set when the pick clock is running and at or below the low
	// time threshold.
	Urgent bool
}

// Reconciler turns server anchors into local countdowns.
type Reconciler struct {
	clock   clockwork.Clock
	lowTime time.Duration
}

// NewReconciler creates a reconciler reading time from clock
func NewReconciler(clock clockwork.Clock, lowTime time.Duration) *Reconciler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reconciler{clock: clock, lowTime: lowTime}
}

// Now returns the current wall-clock time.
func (r *Reconciler) Now() time.Time {
	return r.clock.Now()
}

// PickRemaining returns the time left on the pick clock, and false when no
// timer is running.
func (r *Reconciler) PickRemaining(state State) (time.Duration, bool) {
	return pickRemainingAt(state, r.clock.Now())
}

// PreDraftRemaining returns the time until the draft starts, and false once
// the draft has started or a slot is on the clock.
func (r *Reconciler) PreDraftRemaining(state State) (time.Duration, bool) {
	return preDraftRemainingAt(state, r.clock.Now())
}

// Countdown computes both clocks at the current time.
func (r *Reconciler) Countdown(state State) Countdown {
	return r.countdownAt(state, r.clock.Now())
}

func (r *Reconciler) countdownAt(state State, now time.Time) Countdown {
	c := Countdown{Now: now}
	c.PreDraft, c.PreDraftActive = preDraftRemainingAt(state, now)
	c.Pick, c.PickActive = pickRemainingAt(state, now)
	c.Urgent = c.PickActive && c.Pick > 0 && c.Pick <= r.lowTime
	return c
}

func pickRemainingAt(state State, now time.Time) (time.Duration, bool) {
	if state.Timer == nil || state.Session.Complete {
		return 0, false
	}
	return state.Timer.RemainingAt(now), true
}

func preDraftRemainingAt(state State, now time.Time) (time.Duration, bool) {
	if !state.Joined || state.Session.Complete || state.ActiveSlot >= 0 {
		return 0, false
	}
	if !state.Session.StartTime.IsZero() && now.Before(state.Session.StartTime) {
		return state.Session.UntilStart(now), true
	}
	return 0, false
}
