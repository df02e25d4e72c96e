package models

import (
	"bytes"
	"encoding/json"
)

// Player represents a draftable sports player
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Position string `json:"position,omitempty"`
	Team     string `json:"team,omitempty"` // pro team abbreviation
}

// UnmarshalJSON accepts either a full player object or a bare player id.
func (p *Player) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = Player{ID: id}
		return nil
	}

	type plain Player
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Player(v)
	return nil
}
