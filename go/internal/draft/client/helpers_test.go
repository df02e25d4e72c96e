package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/events"
	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

var t0 = time.Date(2025, time.September, 7, 17, 0, 0, 0, time.UTC)

func team(id string) models.FantasyTeam {
	return models.FantasyTeam{ID: id, Name: "Team " + id}
}

func player(id string) models.Player {
	return models.Player{ID: id, Name: "Player " + id, Position: "WR", Team: "NYJ"}
}

func players(ids ...string) []models.Player {
	out := make([]models.Player, len(ids))
	for i, id := range ids {
		out[i] = player(id)
	}
	return out
}

// order builds one round with the given teams, marking active (1-based pick
// number, 0 for none) and filling the slots in picked by pick number.
func order(active int, picked map[int]string, teams ...string) []models.DraftOrderEntry {
	out := make([]models.DraftOrderEntry, len(teams))
	for i, id := range teams {
		out[i] = models.DraftOrderEntry{PickNumber: i + 1, Team: team(id)}
		if i+1 == active {
			out[i].IsActiveSlot = true
		}
		if pid, ok := picked[i+1]; ok {
			p := player(pid)
			out[i].Player = &p
		}
	}
	return out
}

func initMsg(myTeam string, start time.Time, ord []models.DraftOrderEntry, pool []models.Player) events.Init {
	return events.Init{InitPayload: events.InitPayload{
		DraftOrder:       ord,
		AvailablePlayers: pool,
		MyTeamID:         myTeam,
		DraftStartTime:   events.Instant{Time: start},
		PickTimeLimitSec: 60,
	}}
}

func pickMade(ord []models.DraftOrderEntry, pool []models.Player, complete bool) events.PickMade {
	return events.PickMade{
		Frame: events.FramePickMade,
		PickMadePayload: events.PickMadePayload{
			DraftOrder:       ord,
			AvailablePlayers: pool,
			DraftComplete:    &complete,
		},
	}
}

func timerStart(start time.Time, d time.Duration) events.TimerStarted {
	return events.TimerStarted{
		Frame:        events.FrameTimerStart,
		TimerPayload: events.TimerPayload{StartTime: events.Instant{Time: start}, TimeoutMs: d.Milliseconds()},
	}
}

func mustEncode(m events.Message) []byte {
	data, err := events.Encode(m)
	if err != nil {
		panic(err)
	}
	return data
}

// scenarioState is four slots for teams A..D with pick 1 on the clock and
// players P1..P6 available, seen by team B.
func scenarioState() State {
	store := NewStore()
	msg := initMsg("B", t0, order(1, nil, "A", "B", "C", "D"), players("P1", "P2", "P3", "P4", "P5", "P6"))
	msg.Timer = &events.TimerPayload{StartTime: events.Instant{Time: t0}, TimeoutMs: 60_000}
	if err := store.Apply(msg); err != nil {
		panic(err)
	}
	return store.Snapshot()
}

type recordingSender struct {
	mu     sync.Mutex
	open   bool
	frames [][]byte
}

func (r *recordingSender) Send(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	r.frames = append(r.frames, frame)
	return nil
}

func (r *recordingSender) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

func (r *recordingSender) sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.frames...)
}
