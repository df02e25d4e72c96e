package arbiter

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

// OrderType defines how the pick order repeats across rounds.
type OrderType string

const (
	OrderLinear OrderType = "linear"
	OrderSnake  OrderType = "snake"
)

// TeamFixture is a team and the token its owner joins with
type TeamFixture struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
}

// PlayerFixture is a draftable player, listed best first
type PlayerFixture struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Position string `yaml:"position"`
	Team     string `yaml:"team"`
}

// Fixture describes one league's draft
type Fixture struct {
	LeagueID        string          `yaml:"league_id"`
	StartTime       *time.Time      `yaml:"start_time"` // absolute start, wins over start_in
	StartIn         time.Duration   `yaml:"start_in"`   // start relative to boot
	PickTime        time.Duration   `yaml:"pick_time"`
	Rounds          int             `yaml:"rounds"`
	Order           OrderType       `yaml:"order"`
	AllowSpectators bool            `yaml:"allow_spectators"`
	Teams           []TeamFixture   `yaml:"teams"`
	Players         []PlayerFixture `yaml:"players"`
}

// LoadFixture reads and validates a YAML fixture file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses and validates a YAML fixture
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the fixture can produce a draft and fills defaults
func (f *Fixture) Validate() error {
	if f.LeagueID == "" {
		return errors.New("fixture: league_id is required")
	}
	if len(f.Teams) == 0 {
		return errors.New("fixture: at least one team is required")
	}
	if f.Rounds <= 0 {
		f.Rounds = 1
	}
	if f.PickTime <= 0 {
		f.PickTime = 90 * time.Second
	}
	switch f.Order {
	case "":
		f.Order = OrderSnake
	case OrderLinear, OrderSnake:
	default:
		return fmt.Errorf("fixture: unknown order %q", f.Order)
	}

	seen := make(map[string]bool, len(f.Teams))
	tokens := make(map[string]bool, len(f.Teams))
	for _, t := range f.Teams {
		if t.ID == "" || t.Token == "" {
			return fmt.Errorf("fixture: team %q needs an id and a token", t.Name)
		}
		if seen[t.ID] {
			return fmt.Errorf("fixture: duplicate team %q", t.ID)
		}
		if tokens[t.Token] {
			return fmt.Errorf("fixture: duplicate token for team %q", t.ID)
		}
		seen[t.ID] = true
		tokens[t.Token] = true
	}

	if need := len(f.Teams) * f.Rounds; len(f.Players) < need {
		return fmt.Errorf("fixture: %d players cannot fill %d slots", len(f.Players), need)
	}
	players := make(map[string]bool, len(f.Players))
	for _, p := range f.Players {
		if p.ID == "" || players[p.ID] {
			return fmt.Errorf("fixture: player id %q missing or duplicated", p.ID)
		}
		players[p.ID] = true
	}
	return nil
}

// Start returns when the draft begins, relative to boot.
func (f *Fixture) Start(boot time.Time) time.Time {
	if f.StartTime != nil {
		return *f.StartTime
	}
	return boot.Add(f.StartIn)
}

func (f *Fixture) fantasyTeams() []models.FantasyTeam {
	teams := make([]models.FantasyTeam, len(f.Teams))
	for i, t := range f.Teams {
		teams[i] = models.FantasyTeam{ID: t.ID, Name: t.Name}
	}
	return teams
}

func (f *Fixture) players() []models.Player {
	players := make([]models.Player, len(f.Players))
	for i, p := range f.Players {
		players[i] = models.Player{ID: p.ID, Name: p.Name, Position: p.Position, Team: p.Team}
	}
	return players
}
