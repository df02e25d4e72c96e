package arbiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

var boot = time.Date(2025, 9, 7, 17, 0, 0, 0, time.UTC)

func newTestDraft(t *testing.T) *Draft {
	t.Helper()
	f, err := ParseFixture([]byte(testFixture))
	require.NoError(t, err)
	return NewDraft(f, boot)
}

func teamIDs(order []models.DraftOrderEntry) []string {
	ids := make([]string, len(order))
	for i, e := range order {
		ids[i] = e.Team.ID
	}
	return ids
}

func TestGenerateOrder(t *testing.T) {
	teams := []models.FantasyTeam{{ID: "A"}, {ID: "B"}, {ID: "C"}}

	linear := GenerateOrder(teams, 2, OrderLinear)
	assert.Equal(t, []string{"A", "B", "C", "A", "B", "C"}, teamIDs(linear))

	snake := GenerateOrder(teams, 3, OrderSnake)
	assert.Equal(t, []string{"A", "B", "C", "C", "B", "A", "A", "B", "C"}, teamIDs(snake))

	for i, e := range snake {
		assert.Equal(t, i+1, e.PickNumber)
		assert.False(t, e.Filled())
		assert.False(t, e.IsActiveSlot)
	}
}

func TestDraftBeforeStart(t *testing.T) {
	d := newTestDraft(t)

	assert.False(t, d.Started())
	assert.Equal(t, boot.Add(5*time.Minute), d.StartTime())
	_, ok := d.Active()
	assert.False(t, ok)

	_, err := d.Pick("A", 1, "p1", boot)
	assert.ErrorIs(t, err, ErrNotStarted)
	_, err = d.AutoPick(BestAvailableStrategy{}, boot)
	assert.ErrorIs(t, err, ErrNotStarted)

	snap := d.InitPayload("A")
	assert.Nil(t, snap.Timer)
	assert.Equal(t, 45, snap.PickTimeLimitSec)
	assert.Len(t, snap.DraftOrder, 4)
	assert.Len(t, snap.AvailablePlayers, 5)
}

func TestDraftPickFlow(t *testing.T) {
	d := newTestDraft(t)
	start := boot.Add(5 * time.Minute)
	require.NoError(t, d.Start(start))
	assert.Error(t, d.Start(start), "a draft starts once")

	slot, ok := d.Active()
	require.True(t, ok)
	assert.Equal(t, 1, slot.PickNumber)
	anchor, ok := d.Anchor()
	require.True(t, ok)
	assert.Equal(t, models.TimerAnchor{Start: start, Duration: 45 * time.Second}, anchor)

	later := start.Add(10 * time.Second)
	entry, err := d.Pick("A", 1, "p3", later)
	require.NoError(t, err)
	assert.Equal(t, "p3", entry.Player.ID)
	assert.False(t, entry.IsActiveSlot)

	// the next slot is re-anchored at the time of the pick
	slot, _ = d.Active()
	assert.Equal(t, 2, slot.PickNumber)
	assert.Equal(t, "B", slot.Team.ID)
	anchor, _ = d.Anchor()
	assert.Equal(t, later, anchor.Start)

	payload := d.PickMadePayload()
	require.NotNil(t, payload.DraftComplete)
	assert.False(t, *payload.DraftComplete)
	assert.Len(t, payload.AvailablePlayers, 4)
	active := 0
	for _, e := range payload.DraftOrder {
		if e.IsActiveSlot {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestDraftRejectsBadPicks(t *testing.T) {
	d := newTestDraft(t)
	require.NoError(t, d.Start(boot))

	_, err := d.Pick("A", 2, "p1", boot)
	assert.ErrorIs(t, err, ErrWrongSlot)

	_, err = d.Pick("B", 1, "p1", boot)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = d.Pick("A", 1, "nobody", boot)
	assert.ErrorIs(t, err, ErrPlayerUnavailable)

	_, err = d.Pick("A", 1, "p1", boot)
	require.NoError(t, err)
	_, err = d.Pick("B", 2, "p1", boot)
	assert.ErrorIs(t, err, ErrPlayerUnavailable, "a drafted player leaves the pool")
}

func TestDraftCompletes(t *testing.T) {
	d := newTestDraft(t)
	require.NoError(t, d.Start(boot))

	// snake order: A, B, B, A
	for _, p := range []struct {
		team, player string
		number       int
	}{{"A", "p1", 1}, {"B", "p2", 2}, {"B", "p3", 3}, {"A", "p4", 4}} {
		_, err := d.Pick(p.team, p.number, p.player, boot)
		require.NoError(t, err)
	}

	assert.True(t, d.Complete())
	assert.True(t, d.Started())
	_, ok := d.Active()
	assert.False(t, ok)
	_, ok = d.Anchor()
	assert.False(t, ok)

	_, err := d.Pick("B", 5, "p5", boot)
	assert.ErrorIs(t, err, ErrDraftComplete)
	_, err = d.AutoPick(BestAvailableStrategy{}, boot)
	assert.ErrorIs(t, err, ErrDraftComplete)

	snap := d.InitPayload("")
	assert.True(t, snap.DraftComplete)
	assert.Nil(t, snap.Timer)
	assert.Equal(t, []models.Player{{ID: "p5", Name: "Five", Position: "K", Team: "BAL"}}, snap.AvailablePlayers)
}

func TestDraftPayloadsAreCopies(t *testing.T) {
	d := newTestDraft(t)
	require.NoError(t, d.Start(boot))
	_, err := d.Pick("A", 1, "p1", boot)
	require.NoError(t, err)

	payload := d.PickMadePayload()
	payload.DraftOrder[0].Player.Name = "changed"
	payload.AvailablePlayers[0].ID = "changed"

	again := d.InitPayload("A")
	assert.Equal(t, "One", again.DraftOrder[0].Player.Name)
	assert.Equal(t, "p2", again.AvailablePlayers[0].ID)
}

func TestAutoPickStrategies(t *testing.T) {
	pool := []models.Player{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}

	best, err := BestAvailableStrategy{}.Choose(pool)
	require.NoError(t, err)
	assert.Equal(t, "p1", best.ID)

	// the same seed yields the same sequence
	a, b := NewSeededStrategy(7), NewSeededStrategy(7)
	for i := 0; i < 10; i++ {
		pa, err := a.Choose(pool)
		require.NoError(t, err)
		pb, err := b.Choose(pool)
		require.NoError(t, err)
		assert.Equal(t, pa, pb)
		assert.Contains(t, pool, pa)
	}

	_, err = NewRandomStrategy().Choose(nil)
	assert.ErrorIs(t, err, errNoPlayers)
	_, err = BestAvailableStrategy{}.Choose(nil)
	assert.ErrorIs(t, err, errNoPlayers)
}

func TestAutoPickFillsTheActiveSlot(t *testing.T) {
	d := newTestDraft(t)
	require.NoError(t, d.Start(boot))

	entry, err := d.AutoPick(BestAvailableStrategy{}, boot.Add(45*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, entry.PickNumber)
	assert.Equal(t, "A", entry.Team.ID)
	assert.Equal(t, "p1", entry.Player.ID)

	slot, _ := d.Active()
	assert.Equal(t, 2, slot.PickNumber)
}
