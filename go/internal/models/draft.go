package models

import "time"

// DraftPhase is the client-observed lifecycle of a draft.
type DraftPhase string

const (
	DraftPhaseNotStarted DraftPhase = "NOT_STARTED"
	DraftPhaseInProgress DraftPhase = "IN_PROGRESS"
	DraftPhaseComplete   DraftPhase = "COMPLETE"
)

// DraftSession holds the schedule and terminal flag of a league's draft.
type DraftSession struct {
	StartTime     time.Time     `json:"startTime"`
	PickTimeLimit time.Duration `json:"pickTimeLimit"`
	Complete      bool          `json:"complete"`
}

// Started reports whether the scheduled start has been reached.
// A session without a start time is not gated on the clock.
func (s DraftSession) Started(now time.Time) bool {
	return s.StartTime.IsZero() || !now.Before(s.StartTime)
}

// UntilStart returns how long until the draft starts, never negative.
func (s DraftSession) UntilStart(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	if d := s.StartTime.Sub(now); d > 0 {
		return d
	}
	return 0
}

// TimerAnchor is the authoritative deadline of the pick on the clock.
// It is always replaced as a whole.
type TimerAnchor struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

// Deadline returns the instant the current pick times out.
func (a TimerAnchor) Deadline() time.Time {
	return a.Start.Add(a.Duration)
}

// RemainingAt returns max(0, deadline - now).
func (a TimerAnchor) RemainingAt(now time.Time) time.Duration {
	remaining := a.Deadline().Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LocalActor identifies the team the local client drafts for.
type LocalActor struct {
	TeamID string `json:"teamId"`
}
