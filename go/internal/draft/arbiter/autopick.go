package arbiter

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

var errNoPlayers = errors.New("no available players")

// AutoPickStrategy selects a player for a team whose pick timed out.
type AutoPickStrategy interface {
	Choose(pool []models.Player) (models.Player, error)
}

// RandomStrategy uses random choice for the player.
type RandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomStrategy constructs a RandomStrategy with its own seed.
func NewRandomStrategy() *RandomStrategy {
	return NewSeededStrategy(time.Now().UnixNano())
}

// NewSeededStrategy constructs a RandomStrategy with a fixed seed.
func NewSeededStrategy(seed int64) *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewSource(seed))}
}

// Choose implements AutoPickStrategy.
func (s *RandomStrategy) Choose(pool []models.Player) (models.Player, error) {
	if len(pool) == 0 {
		return models.Player{}, errNoPlayers
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return pool[s.rng.Intn(len(pool))], nil
}

// BestAvailableStrategy takes the first player in the pool, which fixtures
// list best first.
type BestAvailableStrategy struct{}

// Choose implements AutoPickStrategy.
func (BestAvailableStrategy) Choose(pool []models.Player) (models.Player, error) {
	if len(pool) == 0 {
		return models.Player{}, errNoPlayers
	}
	return pool[0], nil
}
