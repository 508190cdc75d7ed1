// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// This is the default persistence layer for live rounds: rounds are short
// lived and only one is active per player, so durability is not required.
//
// Characteristics:
//   - Stores *game.Round values keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Save and Get copy the round, so handlers never share a mutable value.
//   - A round untouched for the TTL expires, like its Redis counterpart;
//     expired entries are swept out on Save.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/mathle/internal/game"
)

// ErrNotFound is returned by Get for unknown or expired round IDs.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for live rounds.
// Implementations are backed by memory (this file) or Redis (redis.go).
// Both expire rounds that have not been saved for a while.
type Store interface {
	// Save persists or updates a round and restarts its TTL.
	Save(ctx context.Context, r *game.Round) error

	// Get retrieves a round by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*game.Round, error)
}

type entry struct {
	round   *game.Round
	expires time.Time
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu        sync.RWMutex     // guards rounds and nextSweep
	rounds    map[string]entry // keyed by Round.ID
	ttl       time.Duration
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryStore constructs a new in-memory Store. A zero ttl uses
// DefaultRoundTTL.
func NewMemoryStore(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultRoundTTL
	}
	return &memory{rounds: make(map[string]entry), ttl: ttl, now: time.Now}
}

func (m *memory) Save(ctx context.Context, r *game.Round) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.After(m.nextSweep) {
		for id, e := range m.rounds {
			if now.After(e.expires) {
				delete(m.rounds, id)
			}
		}
		m.nextSweep = now.Add(m.ttl / 4)
	}
	m.rounds[r.ID] = entry{round: r.Clone(), expires: now.Add(m.ttl)}
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.rounds[id]; ok && !m.now().After(e.expires) {
		return e.round.Clone(), nil
	}
	return nil, ErrNotFound
}
