package events

import (
	"time"

	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

// Payload types shared between the draft client and the arbiter

// JoinPayload is sent once, right after the connection opens
type JoinPayload struct {
	Token    string `json:"token"`
	LeagueID string `json:"leagueId"`
}

// PickPayload is a pick intent for the slot on the clock
type PickPayload struct {
	Player   string `json:"player"`
	LeagueID string `json:"leagueId"`
	Pick     int    `json:"pick"` // pick number of the active slot
}

// TimerPayload anchors the countdown of the pick on the clock
type TimerPayload struct {
	StartTime Instant `json:"startTime"`
	TimeoutMs int64   `json:"timeoutMs"`
}

// Anchor converts the payload into a timer anchor.
func (p TimerPayload) Anchor() models.TimerAnchor {
	return models.TimerAnchor{
		Start:    p.StartTime.Time,
		Duration: time.Duration(p.TimeoutMs) * time.Millisecond,
	}
}

// NewTimerPayload builds the wire form of an anchor.
func NewTimerPayload(anchor models.TimerAnchor) TimerPayload {
	return TimerPayload{
		StartTime: Instant{anchor.Start},
		TimeoutMs: anchor.Duration.Milliseconds(),
	}
}

// InitPayload is a full snapshot of the draft for one connection
type InitPayload struct {
	DraftOrder       []models.DraftOrderEntry `json:"draftOrder"`
	AvailablePlayers []models.Player          `json:"availablePlayers"`
	MyTeamID         string                   `json:"myTeamId"`
	DraftStartTime   Instant                  `json:"draftStartTime"`
	DraftComplete    bool                     `json:"draftComplete"`
	PickTimeLimitSec int                      `json:"pickTimeLimit,omitempty"`
	Timer            *TimerPayload            `json:"timer,omitempty"`
}

// PickMadePayload carries the order and pool after a pick, manual or automatic
type PickMadePayload struct {
	DraftOrder       []models.DraftOrderEntry `json:"draftOrder"`
	AvailablePlayers []models.Player          `json:"availablePlayers"`
	DraftComplete    *bool                    `json:"draftComplete,omitempty"`
}
