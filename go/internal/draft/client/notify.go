package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// AlertKind identifies a turn alert.
type AlertKind string

const (
	AlertTurnStarted   AlertKind = "turn-started"
	AlertTimeLow       AlertKind = "time-low"
	AlertDraftComplete AlertKind = "draft-complete"
)

// Alert is a fire-and-forget side effect of a state transition, e.g. a
// desktop notification or a sound.
type Alert struct {
	ID         string        `json:"id"`
	Kind       AlertKind     `json:"kind"`
	LeagueID   string        `json:"leagueId"`
	TeamID     string        `json:"teamId"`
	PickNumber int           `json:"pickNumber,omitempty"`
	Remaining  time.Duration `json:"remaining,omitempty"`
	At         time.Time     `json:"at"`
}

func (a Alert) dedupKey() string {
	return fmt.Sprintf("%s/%s/%s/%d", a.LeagueID, a.TeamID, a.Kind, a.PickNumber)
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the log.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(_ context.Context, alert Alert) error {
	log.Info().
		Str("alert", string(alert.Kind)).
		Str("league_id", alert.LeagueID).
		Str("team_id", alert.TeamID).
		Int("pick_number", alert.PickNumber).
		Dur("remaining", alert.Remaining).
		Msg("draft alert")
	return nil
}

// Alerter suppresses duplicate alerts and dispatches the rest without
// blocking the caller. Seen keys live in a fixed-size LRU and expire after
// a fixed window.
type Alerter struct {
	notifier Notifier
	clock    clockwork.Clock
	window   time.Duration
	timeout  time.Duration

	mu   sync.Mutex
	seen *lru.Cache
	wg   sync.WaitGroup
}

// NewAlerter creates an alerter delivering to notifier
func NewAlerter(notifier Notifier, clock clockwork.Clock, size int, window time.Duration) (*Alerter, error) {
	if size <= 0 {
		size = DefaultConfig().AlertCacheSize
	}
	if window <= 0 {
		window = DefaultConfig().AlertWindow
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	seen, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create alert cache: %w", err)
	}

	return &Alerter{
		notifier: notifier,
		clock:    clock,
		window:   window,
		timeout:  5 * time.Second,
		seen:     seen,
	}, nil
}

// Emit dispatches alert unless an identical one was emitted within the
// window. It reports whether the alert was dispatched.
func (a *Alerter) Emit(alert Alert) bool {
	if a == nil || a.notifier == nil {
		return false
	}

	now := a.clock.Now()
	key := alert.dedupKey()

	a.mu.Lock()
	if v, ok := a.seen.Get(key); ok {
		if at, _ := v.(time.Time); now.Sub(at) < a.window {
			a.mu.Unlock()
			return false
		}
	}
	a.seen.Add(key, now)
	a.mu.Unlock()

	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.At.IsZero() {
		alert.At = now
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("alert", string(alert.Kind)).Msg("notifier panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.notifier.Notify(ctx, alert); err != nil {
			log.Warn().Err(err).Str("alert", string(alert.Kind)).Msg("failed to deliver alert")
		}
	}()
	return true
}

// Wait blocks until dispatched alerts have been delivered.
func (a *Alerter) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}
