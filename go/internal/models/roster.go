package models

// RosterEntry is a player a team drafted and the slot it was taken with
type RosterEntry struct {
	PickNumber int    `json:"pickNumber"`
	Player     Player `json:"player"`
}

// Roster is one team's haul so far, in pick order
type Roster struct {
	Team    FantasyTeam   `json:"team"`
	Entries []RosterEntry `json:"entries"`
}

// Positions counts drafted players per position.
func (r Roster) Positions() map[string]int {
	counts := make(map[string]int)
	for _, e := range r.Entries {
		counts[e.Player.Position]++
	}
	return counts
}

// RosterOf collects the filled slots of teamID from a draft order.
func RosterOf(order []DraftOrderEntry, teamID string) Roster {
	roster := Roster{Team: FantasyTeam{ID: teamID}}
	for _, entry := range order {
		if entry.Team.ID != teamID {
			continue
		}
		if entry.Team.Name != "" {
			roster.Team.Name = entry.Team.Name
		}
		if entry.Filled() {
			roster.Entries = append(roster.Entries, RosterEntry{PickNumber: entry.PickNumber, Player: *entry.Player})
		}
	}
	return roster
}
