package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *recordingNotifier) Notify(_ context.Context, alert Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *recordingNotifier) received() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

func (r *recordingNotifier) kinds() []AlertKind {
	var kinds []AlertKind
	for _, a := range r.received() {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(context.Context, Alert) error { panic("notifier bug") }

func TestAlerterSuppressesDuplicates(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	notifier := &recordingNotifier{}
	alerter, err := NewAlerter(notifier, clock, 16, time.Minute)
	require.NoError(t, err)

	turn := Alert{Kind: AlertTurnStarted, LeagueID: "l1", TeamID: "B", PickNumber: 2}

	assert.True(t, alerter.Emit(turn))
	assert.False(t, alerter.Emit(turn))

	// a different slot is a different alert
	next := turn
	next.PickNumber = 6
	assert.True(t, alerter.Emit(next))

	clock.Advance(time.Minute)
	assert.True(t, alerter.Emit(turn))

	alerter.Wait()
	alerts := notifier.received()
	require.Len(t, alerts, 3)
	for _, a := range alerts {
		assert.NotEmpty(t, a.ID)
		assert.False(t, a.At.IsZero())
	}
}

func TestAlerterEvictsOldestKey(t *testing.T) {
	notifier := &recordingNotifier{}
	alerter, err := NewAlerter(notifier, clockwork.NewFakeClockAt(t0), 1, time.Hour)
	require.NoError(t, err)

	a := Alert{Kind: AlertTimeLow, LeagueID: "l1", TeamID: "B", PickNumber: 2}
	b := Alert{Kind: AlertTimeLow, LeagueID: "l1", TeamID: "B", PickNumber: 6}

	assert.True(t, alerter.Emit(a))
	assert.True(t, alerter.Emit(b))
	// a was evicted by b, so it is delivered again
	assert.True(t, alerter.Emit(a))

	alerter.Wait()
	assert.Len(t, notifier.received(), 3)
}

func TestAlerterSurvivesNotifierPanic(t *testing.T) {
	alerter, err := NewAlerter(panickingNotifier{}, clockwork.NewFakeClockAt(t0), 0, 0)
	require.NoError(t, err)

	assert.True(t, alerter.Emit(Alert{Kind: AlertDraftComplete, LeagueID: "l1"}))
	alerter.Wait()
}

func TestNilAlerterIsNoop(t *testing.T) {
	var alerter *Alerter
	assert.False(t, alerter.Emit(Alert{Kind: AlertTurnStarted}))
	alerter.Wait()
}

func TestNATSSubject(t *testing.T) {
	n := &NATSNotifier{prefix: "draft.alerts"}
	assert.Equal(t, "draft.alerts.l1.B", n.Subject(Alert{LeagueID: "l1", TeamID: "B"}))
	assert.Equal(t, "draft.alerts.l1.observer", n.Subject(Alert{LeagueID: "l1"}))
}
