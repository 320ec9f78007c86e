package rules

import (
	"context"
	"sync"
	"time"

	"xpkit/core"
)

// MemoryStore is the default per-process WindowStore. Window state lives in
// process memory only: it does not survive restarts and is not shared
// across instances. Use a shared-store implementation when that matters.
type MemoryStore struct {
	users sync.Map // map[core.UserID]*userWindows
}

type userWindows struct {
	mu         sync.Mutex
	dayKey     string
	dailyXP    int64
	hourKey    string
	hourlyActs int64
	lastAction map[core.Action]time.Time
}

// NewMemoryStore returns an empty in-memory window store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) getOrCreate(user core.UserID) *userWindows {
	if v, ok := s.users.Load(user); ok {
		return v.(*userWindows)
	}
	w := &userWindows{lastAction: map[core.Action]time.Time{}}
	actual, _ := s.users.LoadOrStore(user, w)
	return actual.(*userWindows)
}

func (s *MemoryStore) DailyXP(_ context.Context, user core.UserID, dayKey string) (int64, error) {
	w := s.getOrCreate(user)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dayKey != dayKey {
		return 0, nil
	}
	return w.dailyXP, nil
}

func (s *MemoryStore) AddDailyXP(_ context.Context, user core.UserID, dayKey string, xp int64) error {
	w := s.getOrCreate(user)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dayKey != dayKey {
		w.dayKey = dayKey
		w.dailyXP = 0
	}
	w.dailyXP += xp
	return nil
}

func (s *MemoryStore) HourlyActions(_ context.Context, user core.UserID, hourKey string) (int64, error) {
	w := s.getOrCreate(user)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hourKey != hourKey {
		return 0, nil
	}
	return w.hourlyActs, nil
}

func (s *MemoryStore) IncrHourlyActions(_ context.Context, user core.UserID, hourKey string) error {
	w := s.getOrCreate(user)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hourKey != hourKey {
		w.hourKey = hourKey
		w.hourlyActs = 0
	}
	w.hourlyActs++
	return nil
}

func (s *MemoryStore) LastAction(_ context.Context, user core.UserID, action core.Action) (time.Time, bool, error) {
	w := s.getOrCreate(user)
	w.mu.Lock()
	defer w.mu.Unlock()
	at, ok := w.lastAction[action]
	return at, ok, nil
}

func (s *MemoryStore) SetLastAction(_ context.Context, user core.UserID, action core.Action, at time.Time) error {
	w := s.getOrCreate(user)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastAction[action] = at
	return nil
}

var _ WindowStore = (*MemoryStore)(nil)
