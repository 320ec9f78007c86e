package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"xpkit/boost"
	"xpkit/core"
	"xpkit/streak"
)

// Store persists entire state to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data map[core.UserID]userDoc
}

type userDoc struct {
	State   core.PlayerState        `json:"state"`
	Streaks map[string]streak.State `json:"streaks,omitempty"`
	Boosts  []boost.Boost           `json:"boosts,omitempty"`
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.UserID]userDoc{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]userDoc
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		s.data[core.UserID(k)] = v
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	raw := make(map[string]userDoc, len(s.data))
	for k, v := range s.data {
		raw[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) get(user core.UserID) userDoc {
	if doc, ok := s.data[user]; ok {
		return doc
	}
	doc := userDoc{
		State: core.PlayerState{
			UserID:  user,
			Stats:   map[string]int64{},
			Updated: time.Now().UTC(),
		},
		Streaks: map[string]streak.State{},
	}
	s.data[user] = doc
	return doc
}

func (s *Store) AddXP(_ context.Context, user core.UserID, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	next, err := core.AddSafe(doc.State.TotalXP, delta)
	if err != nil {
		return 0, err
	}
	doc.State.TotalXP = next
	doc.State.Updated = time.Now().UTC()
	s.data[user] = doc
	if err := s.persist(); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) GetState(_ context.Context, user core.UserID) (core.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	return doc.State.Clone(), nil
}

func (s *Store) SetLevel(_ context.Context, user core.UserID, level int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	doc.State.Level = level
	doc.State.Updated = time.Now().UTC()
	s.data[user] = doc
	return s.persist()
}

func (s *Store) GetCounter(_ context.Context, user core.UserID, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	return doc.State.Stats[key], nil
}

func (s *Store) SetStat(_ context.Context, user core.UserID, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	doc.State.Stats[key] = value
	doc.State.Updated = time.Now().UTC()
	s.data[user] = doc
	return s.persist()
}

func (s *Store) GetStats(_ context.Context, user core.UserID) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	out := make(map[string]int64, len(doc.State.Stats))
	for k, v := range doc.State.Stats {
		out[k] = v
	}
	return out, nil
}

func (s *Store) Streak(_ context.Context, user core.UserID, streakID string) (streak.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	st, ok := doc.Streaks[streakID]
	return st, ok, nil
}

func (s *Store) SaveStreak(_ context.Context, user core.UserID, streakID string, st streak.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	if doc.Streaks == nil {
		doc.Streaks = map[string]streak.State{}
	}
	doc.Streaks[streakID] = st
	s.data[user] = doc
	return s.persist()
}

func (s *Store) Boosts(_ context.Context, user core.UserID) ([]boost.Boost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	out := make([]boost.Boost, len(doc.Boosts))
	copy(out, doc.Boosts)
	return out, nil
}

func (s *Store) SaveBoost(_ context.Context, user core.UserID, b boost.Boost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	doc.Boosts = append(doc.Boosts, b)
	s.data[user] = doc
	return s.persist()
}

var (
	_ streak.Store = (*Store)(nil)
	_ boost.Store  = (*Store)(nil)
)
