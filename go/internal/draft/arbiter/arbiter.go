package arbiter

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/events"
)

// Arbiter runs one league's draft: it accepts joins, validates picks, owns
// the pick clock and auto-picks when it runs out.
type Arbiter struct {
	config     ConnectionConfig
	clock      clockwork.Clock
	strategy   AutoPickStrategy
	upgrader   websocket.Upgrader
	tokens     map[string]string // auth token -> team id
	spectators bool

	mu      sync.Mutex
	draft   *Draft
	conns   map[*Connection]bool
	timer   *pickTimer
	running bool
	stopped bool
	done    chan struct{}
}

// pickTimer is the one-shot timeout of a single slot
type pickTimer struct {
	pickNumber int
	timer      clockwork.Timer
	cancel     chan struct{}
}

// Option configures an Arbiter
type Option func(*Arbiter)

// WithClock sets the clock used for the schedule and pick timers
func WithClock(clock clockwork.Clock) Option {
	return func(a *Arbiter) { a.clock = clock }
}

// WithStrategy sets how timed out picks are filled
func WithStrategy(strategy AutoPickStrategy) Option {
	return func(a *Arbiter) { a.strategy = strategy }
}

// New creates an arbiter for the draft described by fixture
func New(fixture *Fixture, config ConnectionConfig, opts ...Option) (*Arbiter, error) {
	if err := fixture.Validate(); err != nil {
		return nil, err
	}

	defaults := DefaultConnectionConfig()
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = defaults.SendBufferSize
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}

	a := &Arbiter{
		config:     config,
		clock:      clockwork.NewRealClock(),
		strategy:   NewRandomStrategy(),
		tokens:     make(map[string]string, len(fixture.Teams)),
		spectators: fixture.AllowSpectators,
		conns:      make(map[*Connection]bool),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	for _, t := range fixture.Teams {
		a.tokens[t.Token] = t.ID
	}
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     config.CheckOrigin,
	}
	a.draft = NewDraft(fixture, a.clock.Now())
	return a, nil
}

// LeagueID returns the league this arbiter drafts for
func (a *Arbiter) LeagueID() string {
	return a.draft.LeagueID()
}

// Run waits for the scheduled start, starts the draft and serves it until
// ctx is cancelled. All connections are closed on return.
func (a *Arbiter) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("arbiter already running")
	}
	a.running = true
	wait := a.draft.StartTime().Sub(a.clock.Now())
	a.mu.Unlock()

	defer a.shutdown()

	log.Info().
		Str("league_id", a.LeagueID()).
		Time("start_time", a.draft.StartTime()).
		Dur("starts_in", wait).
		Msg("arbiter started")

	if wait > 0 {
		timer := a.clock.NewTimer(wait)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			stopAndDrainTimer(timer)
			return nil
		}
	}

	a.startDraft()

	<-ctx.Done()
	return nil
}

// Done is closed once the arbiter has shut down
func (a *Arbiter) Done() <-chan struct{} {
	return a.done
}

func (a *Arbiter) startDraft() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.draft.Start(a.clock.Now()); err != nil {
		log.Error().Err(err).Str("league_id", a.LeagueID()).Msg("failed to start draft")
		return
	}

	a.scheduleTimerLocked()

	// joined clients get a fresh snapshot with the first slot on the clock
	for conn := range a.conns {
		if conn.Joined {
			a.sendInitLocked(conn)
		}
	}

	slot, _ := a.draft.Active()
	log.Info().
		Str("league_id", a.LeagueID()).
		Int("pick_number", slot.PickNumber).
		Str("team_id", slot.Team.ID).
		Msg("draft started")
}

func (a *Arbiter) shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	a.stopped = true
	a.cancelTimerLocked()
	for conn := range a.conns {
		a.unregisterLocked(conn)
	}
	close(a.done)

	log.Info().Str("league_id", a.LeagueID()).Msg("arbiter stopped")
}

// handleClientMessage processes a frame received from a client
func (a *Arbiter) handleClientMessage(conn *Connection, data []byte) {
	msg, err := events.DecodeClient(data)
	if err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", conn.ID).
			Msg("dropping malformed client frame")
		return
	}

	switch m := msg.(type) {
	case events.Join:
		a.handleJoin(conn, m)
	case events.Pick:
		a.handlePick(conn, m)
	}
}

func (a *Arbiter) handleJoin(conn *Connection, m events.Join) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if m.LeagueID != a.draft.LeagueID() {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("league_id", m.LeagueID).
			Msg("join for unknown league, closing connection")
		a.unregisterLocked(conn)
		return
	}

	teamID, ok := a.tokens[m.Token]
	if !ok && !a.spectators {
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("join with unknown token, closing connection")
		a.unregisterLocked(conn)
		return
	}

	conn.TeamID = teamID
	conn.Joined = true
	a.sendInitLocked(conn)

	log.Info().
		Str("connection_id", conn.ID).
		Str("team_id", teamID).
		Bool("spectator", teamID == "").
		Msg("client joined draft")
}

func (a *Arbiter) handlePick(conn *Connection, m events.Pick) {
	a.mu.Lock()
	defer a.mu.Unlock()

	logger := log.With().
		Str("connection_id", conn.ID).
		Str("team_id", conn.TeamID).
		Str("player_id", m.Player).
		Int("pick_number", m.Pick).
		Logger()

	if !conn.Joined || conn.TeamID == "" {
		logger.Warn().Msg("pick from a connection without a team, ignoring")
		return
	}
	if m.LeagueID != a.draft.LeagueID() {
		logger.Warn().Err(ErrWrongLeague).Msg("pick rejected")
		return
	}

	entry, err := a.draft.Pick(conn.TeamID, m.Pick, m.Player, a.clock.Now())
	if err != nil {
		logger.Warn().Err(err).Msg("pick rejected")
		return
	}

	logger.Info().Msg("pick made")
	a.afterPickLocked(entry.PickNumber, false)
}

// onTimeout auto-picks for the slot whose timer fired. A timer for a slot
// that is no longer on the clock is stale and does nothing.
func (a *Arbiter) onTimeout(pickNumber int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	slot, ok := a.draft.Active()
	if !ok || slot.PickNumber != pickNumber {
		log.Debug().Int("pick_number", pickNumber).Msg("ignoring stale pick timer")
		return
	}

	entry, err := a.draft.AutoPick(a.strategy, a.clock.Now())
	if err != nil {
		log.Error().Err(err).Int("pick_number", pickNumber).Msg("auto-pick failed")
		return
	}

	log.Info().
		Int("pick_number", entry.PickNumber).
		Str("team_id", entry.Team.ID).
		Str("player_id", entry.Player.ID).
		Msg("auto-pick made")
	a.afterPickLocked(entry.PickNumber, true)
}

// afterPickLocked broadcasts the new order and pool followed by the timer of
// the next slot, or a timer stop when the draft is over.
func (a *Arbiter) afterPickLocked(pickNumber int, auto bool) {
	frame := events.FramePickMade
	if auto {
		frame = events.FrameAutoPickMade
	}

	if a.draft.Complete() {
		a.cancelTimerLocked()
		a.broadcastLocked(events.PickMade{Frame: frame, PickMadePayload: a.draft.PickMadePayload()})
		a.broadcastLocked(events.TimerStopped{})
		log.Info().
			Str("league_id", a.LeagueID()).
			Int("last_pick", pickNumber).
			Msg("draft complete")
		return
	}

	a.scheduleTimerLocked()
	anchor, _ := a.draft.Anchor()
	a.broadcastLocked(events.PickMade{Frame: frame, PickMadePayload: a.draft.PickMadePayload()})
	a.broadcastLocked(events.TimerStarted{
		Frame:        events.FrameTimerStart,
		TimerPayload: events.NewTimerPayload(anchor),
	})
}

func (a *Arbiter) sendInitLocked(conn *Connection) {
	frame, err := events.Encode(events.Init{InitPayload: a.draft.InitPayload(conn.TeamID)})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode init")
		return
	}
	a.enqueueLocked(conn, frame)
}

// broadcastLocked sends a message to every joined connection
func (a *Arbiter) broadcastLocked(msg events.Message) {
	frame, err := events.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("frame_type", string(msg.Type())).Msg("failed to encode broadcast")
		return
	}

	sent := 0
	for conn := range a.conns {
		if !conn.Joined {
			continue
		}
		a.enqueueLocked(conn, frame)
		sent++
	}

	log.Debug().
		Str("frame_type", string(msg.Type())).
		Int("connections", sent).
		Msg("event broadcasted")
}

// scheduleTimerLocked arms the timeout of the slot on the clock, replacing
// any earlier timer.
func (a *Arbiter) scheduleTimerLocked() {
	slot, ok := a.draft.Active()
	if !ok {
		return
	}
	anchor, _ := a.draft.Anchor()

	duration := anchor.Deadline().Sub(a.clock.Now())
	if duration < 0 {
		duration = 0
	}

	pt := &pickTimer{
		pickNumber: slot.PickNumber,
		timer:      a.clock.NewTimer(duration),
		cancel:     make(chan struct{}),
	}
	a.cancelTimerLocked()
	a.timer = pt

	go func(pt *pickTimer) {
		select {
		case <-pt.timer.Chan():
			a.onTimeout(pt.pickNumber)
		case <-pt.cancel:
			stopAndDrainTimer(pt.timer)
		}
	}(pt)

	log.Debug().
		Int("pick_number", slot.PickNumber).
		Time("deadline", anchor.Deadline()).
		Dur("duration", duration).
		Msg("scheduled pick timer")
}

func (a *Arbiter) cancelTimerLocked() {
	if a.timer == nil {
		return
	}
	a.timer.timer.Stop()
	close(a.timer.cancel)
	a.timer = nil
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// Stats returns statistics about the draft and its connections
func (a *Arbiter) Stats() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	joined, spectators := 0, 0
	for conn := range a.conns {
		if !conn.Joined {
			continue
		}
		joined++
		if conn.TeamID == "" {
			spectators++
		}
	}

	stats := map[string]interface{}{
		"league_id":         a.draft.LeagueID(),
		"total_connections": len(a.conns),
		"joined":            joined,
		"spectators":        spectators,
		"started":           a.draft.Started(),
		"complete":          a.draft.Complete(),
		"available_players": len(a.draft.pool),
	}
	if slot, ok := a.draft.Active(); ok {
		anchor, _ := a.draft.Anchor()
		stats["pick_number"] = slot.PickNumber
		stats["team_id"] = slot.Team.ID
		stats["remaining_ms"] = anchor.RemainingAt(a.clock.Now()).Milliseconds()
	}
	return stats
}

// pendingTimer reports the slot whose timeout is armed.
func (a *Arbiter) pendingTimer() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer == nil {
		return 0, false
	}
	return a.timer.pickNumber, true
}
