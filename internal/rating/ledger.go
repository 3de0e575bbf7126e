// Package rating holds the running skill value of each identity and the
// zero-sum adjustment applied when a round completes.
package rating

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// Delta is the fixed magnitude of every rating adjustment.
	Delta = 25
	// Initial is the rating of an identity that has never played.
	Initial = 1000
)

var ErrNotFound = errors.New("rating not found")

// Profile is the locally persisted state of one identity.
type Profile struct {
	Identity string
	Username string
	Rating   int
}

// ProfileStore persists the local profile across process restarts.
type ProfileStore interface {
	Load() (Profile, error)
	Save(Profile) error
}

// Ledger applies per-round adjustments to the local identity's rating.
type Ledger struct {
	mu      sync.Mutex
	store   ProfileStore
	profile Profile
}

func NewLedger(store ProfileStore) (*Ledger, error) {
	p, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &Ledger{store: store, profile: p}, nil
}

func (l *Ledger) Profile() Profile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.profile
}

func (l *Ledger) Rating() int { return l.Profile().Rating }

// Rename updates the display name and persists it.
func (l *Ledger) Rename(username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.profile.Username = username
	return l.store.Save(l.profile)
}

// Settle applies +Delta when won and -Delta otherwise, then persists the new
// value. The in-memory value is updated even when persisting fails.
func (l *Ledger) Settle(won bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delta := -Delta
	if won {
		delta = Delta
	}
	l.profile.Rating += delta
	if err := l.store.Save(l.profile); err != nil {
		return delta, fmt.Errorf("persist rating: %w", err)
	}
	return delta, nil
}
