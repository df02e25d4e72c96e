package models

import (
	"bytes"
	"encoding/json"
)

// FantasyTeam is a team owner's draft identity within a league.
type FantasyTeam struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts either a full team object or a bare team id.
func (t *FantasyTeam) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*t = FantasyTeam{ID: id}
		return nil
	}

	type plain FantasyTeam
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = FantasyTeam(p)
	return nil
}
