package arbiter

import (
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/events"
	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

var (
	ErrWrongLeague       = errors.New("wrong league")
	ErrNotStarted        = errors.New("draft not started")
	ErrDraftComplete     = errors.New("draft complete")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrWrongSlot         = errors.New("pick number is not on the clock")
	ErrPlayerUnavailable = errors.New("player not available")
)

// GenerateOrder lays out every slot of the draft. Snake order reverses the
// team order on even rounds.
func GenerateOrder(teams []models.FantasyTeam, rounds int, orderType OrderType) []models.DraftOrderEntry {
	order := make([]models.DraftOrderEntry, 0, len(teams)*rounds)
	pick := 1
	for round := 1; round <= rounds; round++ {
		for i := range teams {
			idx := i
			if orderType == OrderSnake && round%2 == 0 {
				idx = len(teams) - 1 - i
			}
			order = append(order, models.DraftOrderEntry{PickNumber: pick, Team: teams[idx]})
			pick++
		}
	}
	return order
}

// Draft is the authoritative state of one league's draft. It is not safe for
// concurrent use; the Arbiter guards it.
type Draft struct {
	leagueID  string
	startTime time.Time
	pickTime  time.Duration

	order    []models.DraftOrderEntry
	pool     []models.Player
	active   int // index into order, -1 before start and after completion
	complete bool
	anchor   models.TimerAnchor
}

// NewDraft builds the draft described by a fixture.
func NewDraft(f *Fixture, boot time.Time) *Draft {
	return &Draft{
		leagueID:  f.LeagueID,
		startTime: f.Start(boot),
		pickTime:  f.PickTime,
		order:     GenerateOrder(f.fantasyTeams(), f.Rounds, f.Order),
		pool:      f.players(),
		active:    -1,
	}
}

// LeagueID returns the league the draft belongs to.
func (d *Draft) LeagueID() string { return d.leagueID }

// StartTime returns the scheduled start.
func (d *Draft) StartTime() time.Time { return d.startTime }

// Started reports whether picks are being taken or were taken.
func (d *Draft) Started() bool { return d.active >= 0 || d.complete }

// Complete reports whether every slot is filled.
func (d *Draft) Complete() bool { return d.complete }

// Active returns the slot on the clock.
func (d *Draft) Active() (models.DraftOrderEntry, bool) {
	if d.active < 0 {
		return models.DraftOrderEntry{}, false
	}
	return d.order[d.active], true
}

// Anchor returns the timer of the slot on the clock.
func (d *Draft) Anchor() (models.TimerAnchor, bool) {
	if d.active < 0 {
		return models.TimerAnchor{}, false
	}
	return d.anchor, true
}

// Start puts the first slot on the clock.
func (d *Draft) Start(now time.Time) error {
	if d.Started() {
		return fmt.Errorf("start: already started")
	}
	d.setActive(0, now)
	return nil
}

// Pick validates and records a pick by teamID for the slot numbered
// pickNumber.
func (d *Draft) Pick(teamID string, pickNumber int, playerID string, now time.Time) (models.DraftOrderEntry, error) {
	if d.complete {
		return models.DraftOrderEntry{}, ErrDraftComplete
	}
	slot, ok := d.Active()
	if !ok {
		return models.DraftOrderEntry{}, ErrNotStarted
	}
	if slot.PickNumber != pickNumber {
		return models.DraftOrderEntry{}, fmt.Errorf("%w: got %d, on the clock %d", ErrWrongSlot, pickNumber, slot.PickNumber)
	}
	if slot.Team.ID != teamID {
		return models.DraftOrderEntry{}, ErrNotYourTurn
	}
	return d.fill(playerID, now)
}

// AutoPick fills the slot on the clock on its team's behalf.
func (d *Draft) AutoPick(strategy AutoPickStrategy, now time.Time) (models.DraftOrderEntry, error) {
	if d.complete {
		return models.DraftOrderEntry{}, ErrDraftComplete
	}
	if _, ok := d.Active(); !ok {
		return models.DraftOrderEntry{}, ErrNotStarted
	}
	player, err := strategy.Choose(d.pool)
	if err != nil {
		return models.DraftOrderEntry{}, fmt.Errorf("choose auto-pick: %w", err)
	}
	return d.fill(player.ID, now)
}

func (d *Draft) fill(playerID string, now time.Time) (models.DraftOrderEntry, error) {
	idx := -1
	for i, p := range d.pool {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.DraftOrderEntry{}, fmt.Errorf("%w: %s", ErrPlayerUnavailable, playerID)
	}

	player := d.pool[idx]
	d.pool = append(d.pool[:idx:idx], d.pool[idx+1:]...)

	d.order[d.active].Player = &player
	filled := d.order[d.active]
	filled.IsActiveSlot = false

	next := d.active + 1
	if next >= len(d.order) || len(d.pool) == 0 {
		d.order[d.active].IsActiveSlot = false
		d.active = -1
		d.complete = true
		return filled, nil
	}
	d.setActive(next, now)
	return filled, nil
}

func (d *Draft) setActive(idx int, now time.Time) {
	if d.active >= 0 {
		d.order[d.active].IsActiveSlot = false
	}
	d.active = idx
	d.order[idx].IsActiveSlot = true
	d.anchor = models.TimerAnchor{Start: now, Duration: d.pickTime}
}

// InitPayload is the snapshot sent to a connection that joined as teamID.
func (d *Draft) InitPayload(teamID string) events.InitPayload {
	p := events.InitPayload{
		DraftOrder:       models.CloneOrder(d.order),
		AvailablePlayers: models.ClonePlayers(d.pool),
		MyTeamID:         teamID,
		DraftStartTime:   events.Instant{Time: d.startTime},
		DraftComplete:    d.complete,
		PickTimeLimitSec: int(d.pickTime / time.Second),
	}
	if anchor, ok := d.Anchor(); ok {
		timer := events.NewTimerPayload(anchor)
		p.Timer = &timer
	}
	return p
}

// PickMadePayload is the broadcast that follows a pick.
func (d *Draft) PickMadePayload() events.PickMadePayload {
	complete := d.complete
	return events.PickMadePayload{
		DraftOrder:       models.CloneOrder(d.order),
		AvailablePlayers: models.ClonePlayers(d.pool),
		DraftComplete:    &complete,
	}
}
