// Package memory provides a concurrent in-memory implementation of every
// xpkit store contract. Per-user records carry their own mutex, so the
// read-modify-write sequences of the engine are serialized per user.
package memory

import (
	"context"
	"sync"
	"time"

	"xpkit/boost"
	"xpkit/core"
	"xpkit/streak"
)

// Store is a concurrent in-memory storage implementation.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord
}

type userRecord struct {
	mu      sync.Mutex
	state   core.PlayerState
	streaks map[string]streak.State
	boosts  []boost.Boost
}

func New() *Store { return &Store{} }

func (s *Store) getOrCreate(user core.UserID) *userRecord {
	if v, ok := s.users.Load(user); ok {
		return v.(*userRecord)
	}
	rec := &userRecord{
		state: core.PlayerState{
			UserID:  user,
			Stats:   map[string]int64{},
			Updated: time.Now().UTC(),
		},
		streaks: map[string]streak.State{},
	}
	actual, _ := s.users.LoadOrStore(user, rec)
	return actual.(*userRecord)
}

func (s *Store) AddXP(_ context.Context, user core.UserID, delta int64) (int64, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	next, err := core.AddSafe(rec.state.TotalXP, delta)
	if err != nil {
		return 0, err
	}
	rec.state.TotalXP = next
	rec.state.Updated = time.Now().UTC()
	return next, nil
}

func (s *Store) GetState(_ context.Context, user core.UserID) (core.PlayerState, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state.Clone(), nil
}

func (s *Store) SetLevel(_ context.Context, user core.UserID, level int64) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.state.Level = level
	rec.state.Updated = time.Now().UTC()
	return nil
}

func (s *Store) GetCounter(_ context.Context, user core.UserID, key string) (int64, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state.Stats[key], nil
}

func (s *Store) SetStat(_ context.Context, user core.UserID, key string, value int64) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.state.Stats[key] = value
	rec.state.Updated = time.Now().UTC()
	return nil
}

func (s *Store) GetStats(_ context.Context, user core.UserID) (map[string]int64, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make(map[string]int64, len(rec.state.Stats))
	for k, v := range rec.state.Stats {
		out[k] = v
	}
	return out, nil
}

func (s *Store) Streak(_ context.Context, user core.UserID, streakID string) (streak.State, bool, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	st, ok := rec.streaks[streakID]
	return st, ok, nil
}

func (s *Store) SaveStreak(_ context.Context, user core.UserID, streakID string, st streak.State) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.streaks[streakID] = st
	return nil
}

func (s *Store) Boosts(_ context.Context, user core.UserID) ([]boost.Boost, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]boost.Boost, len(rec.boosts))
	copy(out, rec.boosts)
	return out, nil
}

func (s *Store) SaveBoost(_ context.Context, user core.UserID, b boost.Boost) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.boosts = append(rec.boosts, b)
	return nil
}

var (
	_ streak.Store = (*Store)(nil)
	_ boost.Store  = (*Store)(nil)
)
