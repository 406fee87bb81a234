// Package selection implements the account and template picking strategies:
// round-robin over a stable ordering, uniform random, and weighted random.
package selection

import (
	"math/rand"
	"sync"
	"time"

	"github.com/Past-Tang/x/internal/models"
)

// CursorStore holds round-robin positions keyed by pool name. Cursors are
// process-local; a restart simply begins the rotation again.
type CursorStore struct {
	mu      sync.Mutex
	cursors map[string]int
}

func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: make(map[string]int)}
}

// Next returns the current position modulo n and advances the cursor.
// n must be positive.
func (s *CursorStore) Next(key string, n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.cursors[key] % n
	s.cursors[key] = pos + 1
	return pos
}

// Reset clears the cursor for a pool.
func (s *CursorStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cursors, key)
}

// Engine picks items from candidate pools according to a strategy.
type Engine struct {
	cursors *CursorStore

	mu  sync.Mutex
	rng *rand.Rand
}

func NewEngine(cursors *CursorStore) *Engine {
	return &Engine{
		cursors: cursors,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewEngineWithSeed builds an engine with a deterministic random source.
func NewEngineWithSeed(cursors *CursorStore, seed int64) *Engine {
	return &Engine{
		cursors: cursors,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.rng.Intn(n)
}

// PickAccount selects one account from the candidate pool. Returns false
// when the pool is empty. The weighted strategy degrades to uniform random
// when every weight is zero.
func (e *Engine) PickAccount(strategy models.Strategy, cursorKey string, accounts []*models.Account) (*models.Account, bool) {
	if len(accounts) == 0 {
		return nil, false
	}

	switch strategy {
	case models.StrategyRandom:
		return accounts[e.intn(len(accounts))], true
	case models.StrategyWeighted:
		return accounts[e.pickWeighted(accountWeights(accounts))], true
	default:
		return accounts[e.cursors.Next(cursorKey, len(accounts))], true
	}
}

// PickTemplate selects one reply template from the candidate pool. Templates
// carry no weights, so the weighted strategy behaves as uniform random.
func (e *Engine) PickTemplate(strategy models.Strategy, cursorKey string, templates []*models.ReplyTemplate) (*models.ReplyTemplate, bool) {
	if len(templates) == 0 {
		return nil, false
	}

	switch strategy {
	case models.StrategyRandom, models.StrategyWeighted:
		return templates[e.intn(len(templates))], true
	default:
		return templates[e.cursors.Next(cursorKey, len(templates))], true
	}
}

func accountWeights(accounts []*models.Account) []int {
	weights := make([]int, len(accounts))
	for i, a := range accounts {
		if a.Weight > 0 {
			weights[i] = a.Weight
		}
	}
	return weights
}

func (e *Engine) pickWeighted(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return e.intn(len(weights))
	}

	r := e.intn(total)
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}
