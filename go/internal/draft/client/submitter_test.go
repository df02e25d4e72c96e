package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/events"
)

type submitterFixture struct {
	store    *Store
	clock    *clockwork.FakeClock
	sender   *recordingSender
	prompted []ConfirmRequest
	answer   bool
	onPrompt func()
	sub      *Submitter
}

// newSubmitterFixture puts team B on the clock with a 60s timer anchored at t0.
func newSubmitterFixture(t *testing.T) *submitterFixture {
	t.Helper()

	f := &submitterFixture{
		store:  NewStore(),
		clock:  clockwork.NewFakeClockAt(t0),
		sender: &recordingSender{open: true},
		answer: true,
	}
	msg := initMsg("B", t0, order(2, map[int]string{1: "P1"}, "A", "B", "C", "D"), players("P2", "P3", "P4"))
	msg.Timer = &events.TimerPayload{StartTime: events.Instant{Time: t0}, TimeoutMs: 60_000}
	require.NoError(t, f.store.Apply(msg))

	confirm := ConfirmFunc(func(ctx context.Context, req ConfirmRequest) (bool, error) {
		f.prompted = append(f.prompted, req)
		if f.onPrompt != nil {
			f.onPrompt()
		}
		return f.answer, nil
	})
	f.sub = NewSubmitter("league-1", f.store.Snapshot, f.sender, NewGate(false), NewReconciler(f.clock, 10*time.Second), 10*time.Second, confirm)
	return f
}

func TestSubmitConfirmsWithTimeToSpare(t *testing.T) {
	f := newSubmitterFixture(t)
	f.clock.Advance(20 * time.Second)

	outcome, err := f.sub.Submit(testContext(t), "P3")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)

	require.Len(t, f.prompted, 1)
	assert.Equal(t, "P3", f.prompted[0].Player.ID)
	assert.Equal(t, 2, f.prompted[0].Slot.PickNumber)
	assert.Equal(t, 40*time.Second, f.prompted[0].Remaining)

	frames := f.sender.sent()
	require.Len(t, frames, 1)
	msg, err := events.DecodeClient(frames[0])
	require.NoError(t, err)
	pick, ok := msg.(events.Pick)
	require.True(t, ok)
	assert.Equal(t, events.PickPayload{Player: "P3", LeagueID: "league-1", Pick: 2}, pick.PickPayload)

	pending, ok := f.sub.Pending()
	require.True(t, ok)
	assert.Equal(t, PendingPick{PickNumber: 2, PlayerID: "P3", SentAt: t0.Add(20 * time.Second)}, pending)
}

func TestSubmitSkipsConfirmationWhenTimeIsLow(t *testing.T) {
	f := newSubmitterFixture(t)
	f.clock.Advance(50 * time.Second) // exactly at the threshold

	outcome, err := f.sub.Submit(testContext(t), "P2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Empty(t, f.prompted)
	assert.Len(t, f.sender.sent(), 1)
}

func TestSubmitDeclined(t *testing.T) {
	f := newSubmitterFixture(t)
	f.answer = false

	outcome, err := f.sub.Submit(testContext(t), "P2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeclined, outcome)
	assert.Empty(t, f.sender.sent())
	_, ok := f.sub.Pending()
	assert.False(t, ok)
}

func TestSubmitRechecksAfterConfirmation(t *testing.T) {
	t.Run("turn moved on", func(t *testing.T) {
		f := newSubmitterFixture(t)
		f.onPrompt = func() {
			// the server auto-picked for B while the prompt was open
			require.NoError(t, f.store.Apply(pickMade(
				order(3, map[int]string{1: "P1", 2: "P4"}, "A", "B", "C", "D"),
				players("P2", "P3"),
				false,
			)))
		}

		outcome, err := f.sub.Submit(testContext(t), "P2")
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotYourTurn, outcome)
		assert.Empty(t, f.sender.sent())
	})

	t.Run("player taken", func(t *testing.T) {
		f := newSubmitterFixture(t)
		f.onPrompt = func() {
			// a cold rejoin removed the player while B is still on the clock
			msg := initMsg("B", t0, order(2, map[int]string{1: "P1"}, "A", "B", "C", "D"), players("P3", "P4"))
			require.NoError(t, f.store.Apply(msg))
		}

		_, err := f.sub.Submit(testContext(t), "P2")
		assert.ErrorIs(t, err, ErrPlayerUnavailable)
		assert.Empty(t, f.sender.sent())
	})
}

func TestSubmitNotYourTurnSendsNothing(t *testing.T) {
	f := newSubmitterFixture(t)
	require.NoError(t, f.store.Apply(pickMade(
		order(3, map[int]string{1: "P1", 2: "P2"}, "A", "B", "C", "D"),
		players("P3", "P4"),
		false,
	)))

	outcome, err := f.sub.Submit(testContext(t), "P3")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotYourTurn, outcome)
	assert.Empty(t, f.prompted)
	assert.Empty(t, f.sender.sent())
}

func TestSubmitErrors(t *testing.T) {
	t.Run("unknown player", func(t *testing.T) {
		f := newSubmitterFixture(t)
		_, err := f.sub.Submit(testContext(t), "P1")
		assert.ErrorIs(t, err, ErrPlayerUnavailable)
		assert.Empty(t, f.sender.sent())
	})

	t.Run("connection closed", func(t *testing.T) {
		f := newSubmitterFixture(t)
		f.sender.open = false
		_, err := f.sub.Submit(testContext(t), "P2")
		assert.ErrorIs(t, err, ErrNotOpen)
		assert.Empty(t, f.prompted)
	})

	t.Run("confirmer failed", func(t *testing.T) {
		f := newSubmitterFixture(t)
		boom := errors.New("boom")
		f.sub.confirmer = ConfirmFunc(func(context.Context, ConfirmRequest) (bool, error) { return false, boom })
		_, err := f.sub.Submit(testContext(t), "P2")
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, f.sender.sent())
	})
}

func TestSubmitOncePerSlot(t *testing.T) {
	f := newSubmitterFixture(t)

	outcome, err := f.sub.Submit(testContext(t), "P2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)

	outcome, err = f.sub.Submit(testContext(t), "P3")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyPending, outcome)
	assert.Len(t, f.sender.sent(), 1)
}

func TestConcurrentSubmitsSendOnce(t *testing.T) {
	f := newSubmitterFixture(t)

	// both callers are inside the confirmation before either sends
	var prompts sync.WaitGroup
	prompts.Add(2)
	confirm := ConfirmFunc(func(context.Context, ConfirmRequest) (bool, error) {
		prompts.Done()
		prompts.Wait()
		return true, nil
	})
	sub := NewSubmitter("league-1", f.store.Snapshot, f.sender, NewGate(false), NewReconciler(f.clock, 10*time.Second), 10*time.Second, confirm)

	outcomes := make(chan Outcome, 2)
	for _, id := range []string{"P2", "P3"} {
		id := id
		go func() {
			outcome, err := sub.Submit(testContext(t), id)
			assert.NoError(t, err)
			outcomes <- outcome
		}()
	}

	got := []Outcome{<-outcomes, <-outcomes}
	assert.ElementsMatch(t, []Outcome{OutcomeSent, OutcomeAlreadyPending}, got)
	assert.Len(t, f.sender.sent(), 1)
}

func TestResolvePendingPick(t *testing.T) {
	cases := []struct {
		name   string
		filled string
		want   Resolution
	}{
		{name: "our player", filled: "P2", want: ResolutionConfirmed},
		{name: "server picked someone else", filled: "P4", want: ResolutionSuperseded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSubmitterFixture(t)
			_, err := f.sub.Submit(testContext(t), "P2")
			require.NoError(t, err)

			// a timer frame does not settle anything
			require.NoError(t, f.store.Apply(timerStart(t0.Add(time.Second), time.Minute)))
			_, _, ok := f.sub.Resolve(f.store.Snapshot())
			assert.False(t, ok)

			remaining := []string{"P2", "P3", "P4"}
			pool := make([]string, 0, 2)
			for _, id := range remaining {
				if id != tc.filled {
					pool = append(pool, id)
				}
			}
			require.NoError(t, f.store.Apply(pickMade(
				order(3, map[int]string{1: "P1", 2: tc.filled}, "A", "B", "C", "D"),
				players(pool...),
				false,
			)))

			pending, resolution, ok := f.sub.Resolve(f.store.Snapshot())
			require.True(t, ok)
			assert.Equal(t, tc.want, resolution)
			assert.Equal(t, "P2", pending.PlayerID)

			_, stillPending := f.sub.Pending()
			assert.False(t, stillPending)
		})
	}
}

func TestSubmitterForget(t *testing.T) {
	f := newSubmitterFixture(t)
	_, err := f.sub.Submit(testContext(t), "P2")
	require.NoError(t, err)

	f.sub.Forget()
	_, ok := f.sub.Pending()
	assert.False(t, ok)
}

func TestPickFrameWireShape(t *testing.T) {
	f := newSubmitterFixture(t)
	f.clock.Advance(55 * time.Second)
	_, err := f.sub.Submit(testContext(t), "P4")
	require.NoError(t, err)

	var frame struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(f.sender.sent()[0], &frame))
	assert.Equal(t, "pick", frame.Type)
	assert.JSONEq(t, `{"player":"P4","leagueId":"league-1","pick":2}`, string(frame.Payload))
}
