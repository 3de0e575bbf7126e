package rating

import (
	"context"
	"sync"
)

// Player identifies one side of a completed round.
type Player struct {
	Identity string
	Username string
}

type Record struct {
	Identity string `json:"identity"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

// Outcome is the pair of ratings after a round is settled.
type Outcome struct {
	Winner Record
	Loser  Record
}

// Store is the authority's rating table.
type Store interface {
	Get(ctx context.Context, identity string) (Record, error)
	// Settle applies +Delta to winner and -Delta to loser atomically.
	Settle(ctx context.Context, winner, loser Player) (Outcome, error)
}

type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Get(_ context.Context, identity string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[identity]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) Settle(_ context.Context, winner, loser Player) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Outcome{
		Winner: m.adjust(winner, Delta),
		Loser:  m.adjust(loser, -Delta),
	}, nil
}

func (m *MemoryStore) adjust(p Player, delta int) Record {
	r, ok := m.records[p.Identity]
	if !ok {
		r = Record{Identity: p.Identity, Rating: Initial}
	}
	r.Username = p.Username
	r.Rating += delta
	m.records[p.Identity] = r
	return r
}
