package models

import "encoding/json"

// DraftOrderEntry is one slot of the draft order.
type DraftOrderEntry struct {
	PickNumber   int         `json:"pickNumber"` // 1-based, immutable
	Team         FantasyTeam `json:"team"`
	Player       *Player     `json:"player,omitempty"` // nil until picked
	IsActiveSlot bool        `json:"isActiveSlot"`
}

// Filled reports whether a player has been selected at this slot.
func (e DraftOrderEntry) Filled() bool {
	return e.Player != nil && e.Player.ID != ""
}

// UnmarshalJSON also understands the legacy `currentPick: 1` marker for the
// slot on the clock.
func (e *DraftOrderEntry) UnmarshalJSON(data []byte) error {
	type plain DraftOrderEntry
	var v struct {
		plain
		CurrentPick *int `json:"currentPick"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = DraftOrderEntry(v.plain)
	if v.CurrentPick != nil && *v.CurrentPick == 1 {
		e.IsActiveSlot = true
	}
	return nil
}

// CloneOrder deep-copies a draft order so callers cannot alias player pointers.
func CloneOrder(order []DraftOrderEntry) []DraftOrderEntry {
	if order == nil {
		return nil
	}
	out := make([]DraftOrderEntry, len(order))
	for i, entry := range order {
		out[i] = entry
		if entry.Player != nil {
			p := *entry.Player
			out[i].Player = &p
		}
	}
	return out
}

// ClonePlayers copies a player pool.
func ClonePlayers(players []Player) []Player {
	if players == nil {
		return nil
	}
	out := make([]Player, len(players))
	copy(out, players)
	return out
}
