package client

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/events"
	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

// State is a snapshot of the client's view of a draft. Snapshots handed out
// by the Store are copies; mutating one does not affect the store.
type State struct {
	Joined     bool // an init frame has been applied
	Session    models.DraftSession
	Actor      models.LocalActor
	Order      []models.DraftOrderEntry
	Pool       []models.Player
	ActiveSlot int // index into Order, -1 when no slot is on the clock
	Timer      *models.TimerAnchor
}

// ActiveEntry returns the slot currently on the clock.
func (s State) ActiveEntry() (models.DraftOrderEntry, bool) {
	if s.ActiveSlot < 0 || s.ActiveSlot >= len(s.Order) {
		return models.DraftOrderEntry{}, false
	}
	return s.Order[s.ActiveSlot], true
}

// Entry returns the slot with the given pick number.
func (s State) Entry(pickNumber int) (models.DraftOrderEntry, bool) {
	for _, entry := range s.Order {
		if entry.PickNumber == pickNumber {
			return entry, true
		}
	}
	return models.DraftOrderEntry{}, false
}

// AvailablePlayer looks a player up in the pool.
func (s State) AvailablePlayer(playerID string) (models.Player, bool) {
	for _, p := range s.Pool {
		if p.ID == playerID {
			return p, true
		}
	}
	return models.Player{}, false
}

// Roster returns the players teamID has drafted so far.
func (s State) Roster(teamID string) models.Roster {
	return models.RosterOf(s.Order, teamID)
}

// Phase returns the client-observed lifecycle phase at now.
func (s State) Phase(now time.Time) models.DraftPhase {
	switch {
	case s.Session.Complete:
		return models.DraftPhaseComplete
	case s.ActiveSlot >= 0:
		return models.DraftPhaseInProgress
	case !s.Session.StartTime.IsZero() && !now.Before(s.Session.StartTime):
		return models.DraftPhaseInProgress
	default:
		return models.DraftPhaseNotStarted
	}
}

func (s State) clone() State {
	out := s
	out.Order = models.CloneOrder(s.Order)
	out.Pool = models.ClonePlayers(s.Pool)
	if s.Timer != nil {
		anchor := *s.Timer
		out.Timer = &anchor
	}
	return out
}

func emptyState() State {
	return State{ActiveSlot: -1}
}

// Store is the client mirror of draft state. Only the session's frame
// handler writes to it; everyone else reads snapshots.
type Store struct {
	mu      sync.RWMutex
	state   State
	applied uint64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: emptyState()}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Applied returns how many messages have been applied.
func (s *Store) Applied() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

// Apply applies one server message. The new state is computed aside and
// swapped in under the lock, so readers never see a partial update.
func (s *Store) Apply(msg events.Message) error {
	s.mu.RLock()
	current := s.state
	s.mu.RUnlock()

	a := &applier{current: current}
	if err := msg.Accept(a); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = a.next
	s.applied++
	s.mu.Unlock()

	log.Debug().
		Str("frame_type", string(msg.Type())).
		Int("active_slot", a.next.ActiveSlot).
		Int("pool_size", len(a.next.Pool)).
		Bool("complete", a.next.Session.Complete).
		Msg("draft state updated")
	return nil
}

// Reset drops all state, e.g. before a cold join to another league.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = emptyState()
}

// applier computes the state that follows one message.
type applier struct {
	current State
	next    State
}

var _ events.Handler = (*applier)(nil)

func (a *applier) HandleInit(m events.Init) error {
	next := State{
		Joined: true,
		Session: models.DraftSession{
			StartTime: m.DraftStartTime.Time,
			Complete:  m.DraftComplete,
		},
		Actor: models.LocalActor{TeamID: m.MyTeamID},
		Order: models.CloneOrder(m.DraftOrder),
		Pool:  models.ClonePlayers(m.AvailablePlayers),
	}

	if m.PickTimeLimitSec > 0 {
		next.Session.PickTimeLimit = time.Duration(m.PickTimeLimitSec) * time.Second
	}
	if m.Timer != nil && !next.Session.Complete {
		anchor := m.Timer.Anchor()
		next.Timer = &anchor
		if next.Session.PickTimeLimit == 0 {
			next.Session.PickTimeLimit = anchor.Duration
		}
	}

	next.ActiveSlot = normalizeActiveSlot(next.Order, next.Session.Complete)
	a.next = next
	return nil
}

func (a *applier) HandleTimerStarted(m events.TimerStarted) error {
	next := a.current.clone()
	anchor := m.Anchor()
	next.Timer = &anchor
	a.next = next
	return nil
}

func (a *applier) HandleTimerStopped(events.TimerStopped) error {
	next := a.current.clone()
	next.Timer = nil
	a.next = next
	return nil
}

func (a *applier) HandlePickMade(m events.PickMade) error {
	next := a.current.clone()
	next.Order = models.CloneOrder(m.DraftOrder)
	next.Pool = models.ClonePlayers(m.AvailablePlayers)

	if a.current.Joined && len(next.Pool) > len(a.current.Pool) {
		log.Warn().
			Int("previous_pool", len(a.current.Pool)).
			Int("pool", len(next.Pool)).
			Msg("available player pool grew after a pick")
	}

	if m.DraftComplete != nil {
		if a.current.Session.Complete && !*m.DraftComplete {
			log.Warn().Msg("ignoring draftComplete=false after completion")
		} else {
			next.Session.Complete = *m.DraftComplete
		}
	}
	if next.Session.Complete {
		next.Timer = nil
	}

	next.ActiveSlot = normalizeActiveSlot(next.Order, next.Session.Complete)

	if m.Auto() {
		log.Info().Int("pool_size", len(next.Pool)).Msg("server auto-picked for a timed out team")
	}

	a.next = next
	return nil
}

// normalizeActiveSlot returns the index of the slot on the clock and makes the
// isActiveSlot flags agree with it: the first flagged slot wins, and a
// complete draft has none.
func normalizeActiveSlot(order []models.DraftOrderEntry, complete bool) int {
	active := -1
	flagged := 0
	for i := range order {
		if !order[i].IsActiveSlot {
			continue
		}
		flagged++
		if active < 0 && !complete {
			active = i
			continue
		}
		order[i].IsActiveSlot = false
	}

	if flagged > 1 {
		log.Warn().Int("flagged", flagged).Msg("draft order marks more than one active slot")
	}
	return active
}
