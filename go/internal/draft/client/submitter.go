package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/events"
	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

// Outcome is what a submission did locally. The server's verdict arrives
// later as a broadcast.
type Outcome string

const (
	// OutcomeSent means exactly one pick frame was sent
	OutcomeSent Outcome = "sent"
	// OutcomeNotYourTurn means the gate was closed; nothing was sent
	OutcomeNotYourTurn Outcome = "not-your-turn"
	// OutcomeDeclined means the user declined the confirmation
	OutcomeDeclined Outcome = "declined"
	// OutcomeAlreadyPending means a pick for this slot is awaiting its broadcast
	OutcomeAlreadyPending Outcome = "already-pending"
)

// Resolution is how a pending pick was settled by a broadcast.
type Resolution string

const (
	ResolutionConfirmed  Resolution = "confirmed"
	ResolutionSuperseded Resolution = "superseded"
)

// ConfirmRequest describes the pick the user is asked to confirm.
type ConfirmRequest struct {
	Player    models.Player
	Slot      models.DraftOrderEntry
	Remaining time.Duration
}

// Confirmer asks the user to confirm a pick.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, req ConfirmRequest) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	return f(ctx, req)
}

// AlwaysConfirm confirms every pick without asking.
var AlwaysConfirm = ConfirmFunc(func(context.Context, ConfirmRequest) (bool, error) { return true, nil })

// Sender is where pick frames go.
type Sender interface {
	Send(frame []byte) error
	IsOpen() bool
}

// PendingPick is a sent pick that no broadcast has settled yet.
type PendingPick struct {
	PickNumber int
	PlayerID   string
	SentAt     time.Time
}

// Submitter turns a user's pick into at most one outbound frame.
type Submitter struct {
	leagueID   string
	view       func() State
	sender     Sender
	gate       Gate
	reconciler *Reconciler
	lowTime    time.Duration
	confirmer  Confirmer

	mu      sync.Mutex
	pending *PendingPick
}

// NewSubmitter creates a pick submitter reading state through view
func NewSubmitter(leagueID string, view func() State, sender Sender, gate Gate, reconciler *Reconciler, lowTime time.Duration, confirmer Confirmer) *Submitter {
	if confirmer == nil {
		confirmer = AlwaysConfirm
	}
	return &Submitter{
		leagueID:   leagueID,
		view:       view,
		sender:     sender,
		gate:       gate,
		reconciler: reconciler,
		lowTime:    lowTime,
		confirmer:  confirmer,
	}
}

// Submit picks playerID for the slot on the clock. When more than the low
// time threshold remains the confirmer is asked first; below it the frame is
// sent straight away. The gate is checked again right before sending.
func (s *Submitter) Submit(ctx context.Context, playerID string) (Outcome, error) {
	state := s.view()
	decision := s.gate.Evaluate(state, s.reconciler.Now())
	if !decision.Allowed {
		log.Debug().
			Str("player_id", playerID).
			Str("reason", string(decision.Reason)).
			Msg("pick not sent, gate closed")
		return OutcomeNotYourTurn, nil
	}

	if p, ok := s.Pending(); ok && p.PickNumber == decision.Slot.PickNumber {
		return OutcomeAlreadyPending, nil
	}

	player, ok := state.AvailablePlayer(playerID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPlayerUnavailable, playerID)
	}
	if !s.sender.IsOpen() {
		return "", ErrNotOpen
	}

	remaining, running := s.reconciler.PickRemaining(state)
	if !running || remaining > s.lowTime {
		ok, err := s.confirmer.Confirm(ctx, ConfirmRequest{
			Player:    player,
			Slot:      decision.Slot,
			Remaining: remaining,
		})
		if err != nil {
			return "", fmt.Errorf("confirm pick: %w", err)
		}
		if !ok {
			return OutcomeDeclined, nil
		}

		// the turn may have moved on while the prompt was open
		state = s.view()
		again := s.gate.Evaluate(state, s.reconciler.Now())
		if !again.Allowed || again.Slot.PickNumber != decision.Slot.PickNumber {
			log.Debug().
				Str("player_id", playerID).
				Int("pick_number", decision.Slot.PickNumber).
				Msg("pick not sent, turn moved on during confirmation")
			return OutcomeNotYourTurn, nil
		}
		if _, ok := state.AvailablePlayer(playerID); !ok {
			return "", fmt.Errorf("%w: %s", ErrPlayerUnavailable, playerID)
		}
	}

	frame, err := events.EncodePick(s.leagueID, playerID, decision.Slot.PickNumber)
	if err != nil {
		return "", err
	}

	// tracked before sending so the broadcast can never beat it; a concurrent
	// Submit for the same slot may have got here first
	pending := &PendingPick{
		PickNumber: decision.Slot.PickNumber,
		PlayerID:   playerID,
		SentAt:     s.reconciler.Now(),
	}
	s.mu.Lock()
	if s.pending != nil && s.pending.PickNumber == pending.PickNumber {
		s.mu.Unlock()
		return OutcomeAlreadyPending, nil
	}
	s.pending = pending
	s.mu.Unlock()

	if err := s.sender.Send(frame); err != nil {
		s.mu.Lock()
		if s.pending == pending {
			s.pending = nil
		}
		s.mu.Unlock()
		return "", fmt.Errorf("send pick: %w", err)
	}

	log.Info().
		Str("league_id", s.leagueID).
		Str("player_id", playerID).
		Int("pick_number", decision.Slot.PickNumber).
		Dur("remaining", remaining).
		Msg("pick sent")

	return OutcomeSent, nil
}

// Pending returns the pick awaiting a broadcast, if any.
func (s *Submitter) Pending() (PendingPick, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return PendingPick{}, false
	}
	return *s.pending, true
}

// Resolve settles the pending pick against a new state. It reports a
// resolution once the pending slot has been filled: confirmed when it holds
// our player, superseded otherwise. Superseded picks are not errors.
func (s *Submitter) Resolve(state State) (PendingPick, Resolution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return PendingPick{}, "", false
	}

	entry, ok := state.Entry(s.pending.PickNumber)
	if !ok || !entry.Filled() {
		return PendingPick{}, "", false
	}

	pending := *s.pending
	s.pending = nil

	if entry.Player.ID == pending.PlayerID {
		return pending, ResolutionConfirmed, true
	}
	return pending, ResolutionSuperseded, true
}

// Forget drops the pending pick, e.g. when the session reconnects.
func (s *Submitter) Forget() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}
