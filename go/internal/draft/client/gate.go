package client

import (
	"time"

	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

// Reason explains a gate decision.
type Reason string

const (
	ReasonAllowed      Reason = ""
	ReasonNotJoined    Reason = "not-joined"
	ReasonObserver     Reason = "observer"
	ReasonComplete     Reason = "complete"
	ReasonNotStarted   Reason = "not-started"
	ReasonNoActiveSlot Reason = "no-active-slot"
	ReasonNotYourTurn  Reason = "not-your-turn"
	ReasonOffline      Reason = "offline"
)

// Decision is the answer to "may the local actor pick right now".
type Decision struct {
	Allowed bool
	Reason  Reason
	Slot    models.DraftOrderEntry // the active slot, when there is one
}

// Gate derives pick permission from a state snapshot. It holds no state of
// its own and is evaluated again on every change and at submission time.
type Gate struct {
	observer bool
}

// NewGate creates a gate. Observer gates never allow acting.
func NewGate(observer bool) Gate {
	return Gate{observer: observer}
}

// Evaluate computes
//
//	activeSlot.team == localActor.team AND now >= startTime AND NOT complete
func (g Gate) Evaluate(state State, now time.Time) Decision {
	slot, hasSlot := state.ActiveEntry()

	deny := func(r Reason) Decision {
		return Decision{Reason: r, Slot: slot}
	}

	switch {
	case !state.Joined:
		return deny(ReasonNotJoined)
	case g.observer:
		return deny(ReasonObserver)
	case state.Session.Complete:
		return deny(ReasonComplete)
	case !state.Session.Started(now):
		return deny(ReasonNotStarted)
	case !hasSlot:
		return deny(ReasonNoActiveSlot)
	case state.Actor.TeamID == "" || slot.Team.ID != state.Actor.TeamID:
		return deny(ReasonNotYourTurn)
	}
	return Decision{Allowed: true, Slot: slot}
}

// CanAct is Evaluate(...).Allowed.
func (g Gate) CanAct(state State, now time.Time) bool {
	return g.Evaluate(state, now).Allowed
}
