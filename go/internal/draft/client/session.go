package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/events"
	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

// Status is the connection-level state of a session.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusLoading      Status = "loading"
	StatusLive         Status = "live"
	StatusDisconnected Status = "disconnected"
	StatusFailed       Status = "failed"
	StatusClosed       Status = "closed"
)

// Observer receives session updates. Callbacks run on the session goroutine
// and must not block or call Close.
type Observer interface {
	OnStatus(status Status, err error)
	OnState(state State)
	OnTick(countdown Countdown)
	OnPickResolved(pick PendingPick, resolution Resolution)
	OnProtocolError(err error)
}

// NopObserver ignores every update. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) OnStatus(Status, error) {}
func (NopObserver) OnState(State) {}
func (NopObserver) OnTick(Countdown) {}
func (NopObserver) OnPickResolved(PendingPick, Resolution) {}
func (NopObserver) OnProtocolError(error) {}

// Option configures a Session
type Option func(*Session)

// WithClock sets the clock used for countdowns and timeouts
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithDialer replaces the websocket dialer
func WithDialer(dial DialFunc) Option {
	return func(s *Session) { s.dial = dial }
}

// WithObserver registers an observer
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// WithConfirmer sets how picks above the low time threshold are confirmed
func WithConfirmer(c Confirmer) Option {
	return func(s *Session) { s.confirmer = c }
}

// WithNotifier enables turn alerts
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// Session keeps one client's view of a league's draft in sync with the
// server. Run owns the only goroutine that writes the store.
type Session struct {
	config     Config
	clock      clockwork.Clock
	dial       DialFunc
	store      *Store
	gate       Gate
	reconciler *Reconciler
	submitter  *Submitter
	alerter    *Alerter
	notifier   Notifier
	confirmer  Confirmer
	observers  []Observer

	mu        sync.Mutex
	conn      Conn
	status    Status
	statusErr error
	running   bool
	closed    bool
	cancel    context.CancelFunc
	stopped   chan struct{}

	// owned by the Run goroutine
	lastCanAct bool
	lastPhase  models.DraftPhase
}

// NewSession creates a draft session
func NewSession(config Config, opts ...Option) (*Session, error) {
	if config.LeagueID == "" {
		return nil, errors.New("league id is required")
	}
	if config.SnapshotTimeout <= 0 {
		config.SnapshotTimeout = DefaultConfig().SnapshotTimeout
	}
	if config.AutoRetries < 0 {
		config.AutoRetries = 0
	}

	s := &Session{
		config: config,
		store:  NewStore(),
		gate:   NewGate(config.AdminObserver),
		status: StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.dial == nil {
		if config.URL == "" {
			return nil, errors.New("draft server url is required")
		}
		s.dial = WebSocketDialer(config.URL, config.Connection)
	}

	s.reconciler = NewReconciler(s.clock, config.LowTimeThreshold)
	s.submitter = NewSubmitter(config.LeagueID, s.liveState, sessionSender{s}, s.gate, s.reconciler, config.LowTimeThreshold, s.confirmer)

	if s.notifier != nil {
		alerter, err := NewAlerter(s.notifier, s.clock, config.AlertCacheSize, config.AlertWindow)
		if err != nil {
			return nil, err
		}
		s.alerter = alerter
	}

	return s, nil
}

// Run connects, waits for the snapshot and keeps the store in sync until the
// context ends, Close is called or the connection drops. A failed handshake
// is retried AutoRetries times. After a disconnect, calling Run again is the
// manual retry: a fresh join and a full snapshot.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.running {
		s.mu.Unlock()
		return errors.New("session already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.stopped = stopped
	s.mu.Unlock()

	defer func() {
		cancel()
		s.dropConn()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(stopped)
	}()

	conn, err := s.connect(ctx)
	if err != nil {
		if s.isClosed() {
			return ErrSessionClosed
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.setStatus(StatusFailed, err)
		log.Error().Err(err).Str("league_id", s.config.LeagueID).Msg("could not join draft")
		return err
	}

	return s.loop(ctx, conn)
}

// connect performs the join handshake, retrying a bounded number of times.
func (s *Session) connect(ctx context.Context) (Conn, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.AutoRetries; attempt++ {
		conn, err := s.handshake(ctx)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Str("league_id", s.config.LeagueID).
			Msg("draft handshake failed")
	}
	return nil, lastErr
}

// handshake opens a connection and applies frames until the first init.
// Every attempt is a cold join: nothing from an earlier connection survives.
func (s *Session) handshake(ctx context.Context) (Conn, error) {
	s.setStatus(StatusConnecting, nil)
	s.forgetView()

	conn, err := s.dial(ctx, s.config.LeagueID, s.config.AuthToken)
	if err != nil {
		if !errors.Is(err, ErrConnectivity) {
			err = fmt.Errorf("%w: %w", ErrConnectivity, err)
		}
		return nil, err
	}
	s.setConn(conn)
	s.setStatus(StatusLoading, nil)

	timer := s.clock.NewTimer(s.config.SnapshotTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.dropConn()
			return nil, ctx.Err()

		case <-timer.Chan():
			s.dropConn()
			return nil, fmt.Errorf("%w: %w", ErrConnectivity, ErrSnapshotTimeout)

		case in, ok := <-conn.Inbound():
			if !ok || in.Err != nil {
				s.dropConn()
				cause := in.Err
				if cause == nil {
					cause = ErrDisconnected
				}
				return nil, fmt.Errorf("%w: %w", ErrConnectivity, cause)
			}
			msg, ok := s.decodeFrame(in.Data)
			if !ok {
				continue
			}
			if msg.Type() != events.FrameInit {
				s.applyFrame(msg)
				continue
			}

			// live before the snapshot lands, so a joined state is always actionable
			s.setStatus(StatusLive, nil)
			if s.applyFrame(msg) {
				return conn, nil
			}
			s.setStatus(StatusLoading, nil)
		}
	}
}

// loop applies frames in arrival order and drives the countdown.
func (s *Session) loop(ctx context.Context, conn Conn) error {
	log.Info().Str("league_id", s.config.LeagueID).Msg("draft session live")

	ticker := s.clock.NewTicker(s.config.tickInterval())
	defer ticker.Stop()

	s.tick()

	for {
		select {
		case <-ctx.Done():
			if s.isClosed() {
				return ErrSessionClosed
			}
			return ctx.Err()

		case in, ok := <-conn.Inbound():
			if !ok || in.Err != nil {
				if s.isClosed() {
					return ErrSessionClosed
				}
				err := in.Err
				if err == nil {
					err = ErrDisconnected
				} else if !errors.Is(err, ErrDisconnected) {
					err = fmt.Errorf("%w: %w", ErrDisconnected, err)
				}
				s.setStatus(StatusDisconnected, err)
				log.Warn().Err(err).Str("league_id", s.config.LeagueID).Msg("draft connection lost")
				return err
			}
			if msg, ok := s.decodeFrame(in.Data); ok {
				s.applyFrame(msg)
			}

		case <-ticker.Chan():
			s.tick()
		}
	}
}

// decodeFrame decodes one frame. Malformed frames are dropped.
func (s *Session) decodeFrame(data []byte) (events.Message, bool) {
	msg, err := events.Decode(data)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed frame")
		for _, o := range s.observers {
			o.OnProtocolError(err)
		}
		return nil, false
	}
	return msg, true
}

// applyFrame applies one decoded frame and notifies observers.
func (s *Session) applyFrame(msg events.Message) bool {
	prev := s.store.Snapshot()
	if err := s.store.Apply(msg); err != nil {
		log.Warn().Err(err).Str("frame_type", string(msg.Type())).Msg("dropping frame")
		for _, o := range s.observers {
			o.OnProtocolError(err)
		}
		return false
	}
	next := s.store.Snapshot()
	now := s.reconciler.Now()

	for _, o := range s.observers {
		o.OnState(next)
	}

	if pick, resolution, ok := s.submitter.Resolve(next); ok {
		log.Info().
			Int("pick_number", pick.PickNumber).
			Str("player_id", pick.PlayerID).
			Str("resolution", string(resolution)).
			Msg("pending pick settled")
		for _, o := range s.observers {
			o.OnPickResolved(pick, resolution)
		}
	}

	if !prev.Session.Complete && next.Session.Complete {
		log.Info().Str("league_id", s.config.LeagueID).Msg("draft complete")
	}

	s.checkTransitions(next, now)

	countdown := s.reconciler.countdownAt(next, now)
	for _, o := range s.observers {
		o.OnTick(countdown)
	}
	return true
}

// forgetView drops the store, the pending pick and the transition memory of
// the previous connection.
func (s *Session) forgetView() {
	s.store.Reset()
	s.submitter.Forget()
	s.lastCanAct = false
	s.lastPhase = ""
}

func (s *Session) tick() {
	state := s.store.Snapshot()
	now := s.reconciler.Now()

	s.checkTransitions(state, now)

	countdown := s.reconciler.countdownAt(state, now)
	if countdown.Urgent && s.lastCanAct {
		slot, _ := state.ActiveEntry()
		s.alert(AlertTimeLow, state, slot.PickNumber, countdown.Pick)
	}

	for _, o := range s.observers {
		o.OnTick(countdown)
	}
}

// checkTransitions raises alerts when the turn or phase changes, whether
// because of a frame or because the start time passed.
func (s *Session) checkTransitions(state State, now time.Time) {
	decision := s.gate.Evaluate(state, now)
	if decision.Allowed && !s.lastCanAct {
		log.Info().
			Str("league_id", s.config.LeagueID).
			Int("pick_number", decision.Slot.PickNumber).
			Msg("your turn to pick")
		s.alert(AlertTurnStarted, state, decision.Slot.PickNumber, 0)
	}
	s.lastCanAct = decision.Allowed

	phase := state.Phase(now)
	if phase != s.lastPhase {
		log.Info().
			Str("league_id", s.config.LeagueID).
			Str("from", string(s.lastPhase)).
			Str("to", string(phase)).
			Msg("draft phase changed")
		if phase == models.DraftPhaseComplete && s.lastPhase != "" {
			s.alert(AlertDraftComplete, state, 0, 0)
		}
		s.lastPhase = phase
	}
}

func (s *Session) alert(kind AlertKind, state State, pickNumber int, remaining time.Duration) {
	if s.alerter == nil {
		return
	}
	s.alerter.Emit(Alert{
		Kind:       kind,
		LeagueID:   s.config.LeagueID,
		TeamID:     state.Actor.TeamID,
		PickNumber: pickNumber,
		Remaining:  remaining,
	})
}

// State returns a snapshot of the draft.
func (s *Session) State() State {
	return s.store.Snapshot()
}

// Decision evaluates the turn gate now. Nothing is allowed unless the
// session is live.
func (s *Session) Decision() Decision {
	if !s.live() {
		return Decision{Reason: ReasonOffline}
	}
	return s.gate.Evaluate(s.store.Snapshot(), s.reconciler.Now())
}

// CanAct reports whether the local team may pick now.
func (s *Session) CanAct() bool {
	return s.Decision().Allowed
}

// Countdown computes the clocks now.
func (s *Session) Countdown() Countdown {
	return s.reconciler.Countdown(s.store.Snapshot())
}

// Status returns the connection status and the error that caused it, if any.
func (s *Session) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.statusErr
}

// Submit sends a pick for the slot on the clock. See Submitter.Submit.
func (s *Session) Submit(ctx context.Context, playerID string) (Outcome, error) {
	if !s.live() {
		return "", ErrNotOpen
	}
	return s.submitter.Submit(ctx, playerID)
}

// Pending returns the pick awaiting a broadcast, if any.
func (s *Session) Pending() (PendingPick, bool) {
	return s.submitter.Pending()
}

// Close stops the session: the tick loop has stopped and the socket is
// released when Close returns. Safe to call more than once, but not from an
// Observer callback.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	running := s.running
	cancel := s.cancel
	stopped := s.stopped
	s.mu.Unlock()

	s.dropConn()
	if running {
		cancel()
		<-stopped
	}
	s.submitter.Forget()
	s.alerter.Wait()
	s.setStatus(StatusClosed, nil)

	log.Debug().Str("league_id", s.config.LeagueID).Msg("draft session closed")
	return nil
}

func (s *Session) live() bool {
	status, _ := s.Status()
	return status == StatusLive
}

// liveState is what the submitter acts on: the store while live, an empty
// state otherwise.
func (s *Session) liveState() State {
	if !s.live() {
		return emptyState()
	}
	return s.store.Snapshot()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) setStatus(status Status, err error) {
	s.mu.Lock()
	if s.status == status && s.statusErr == err {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.statusErr = err
	s.mu.Unlock()

	for _, o := range s.observers {
		o.OnStatus(status, err)
	}
}

func (s *Session) setConn(conn Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *Session) dropConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (s *Session) currentConn() Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// sessionSender sends on whichever connection the session currently holds.
type sessionSender struct {
	s *Session
}

func (ss sessionSender) Send(frame []byte) error {
	conn := ss.s.currentConn()
	if conn == nil {
		log.Warn().Str("league_id", ss.s.config.LeagueID).Msg("dropping frame, no connection")
		return ErrNotOpen
	}
	return conn.Send(frame)
}

func (ss sessionSender) IsOpen() bool {
	conn := ss.s.currentConn()
	return conn != nil && conn.IsOpen()
}
