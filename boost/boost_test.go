package boost

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpkit/core"
)

type memStore struct {
	mu     sync.Mutex
	boosts map[core.UserID][]Boost
}

func newMemStore() *memStore { return &memStore{boosts: map[core.UserID][]Boost{}} }

func (s *memStore) Boosts(_ context.Context, user core.UserID) ([]Boost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Boost, len(s.boosts[user]))
	copy(out, s.boosts[user])
	return out, nil
}

func (s *memStore) SaveBoost(_ context.Context, user core.UserID, b Boost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boosts[user] = append(s.boosts[user], b)
	return nil
}

func TestStackEmptyIsExactlyOne(t *testing.T) {
	assert.Equal(t, 1.0, Stack(nil, time.Now(), 5.0))
}

func TestStackClampsToCap(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	boosts := []Boost{
		{ID: "a", Multiplier: 3.0, ActivatedAt: now, Duration: time.Hour},
		{ID: "b", Multiplier: 3.0, ActivatedAt: now, Duration: time.Hour},
		{ID: "c", Multiplier: 3.0, ActivatedAt: now, Duration: time.Hour},
	}
	assert.Equal(t, 5.0, Stack(boosts, now, 5.0))
}

func TestStackIgnoresExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	boosts := []Boost{
		{ID: "live", Multiplier: 2.0, ActivatedAt: now.Add(-30 * time.Minute), Duration: time.Hour},
		{ID: "dead", Multiplier: 10.0, ActivatedAt: now.Add(-2 * time.Hour), Duration: time.Hour},
	}
	assert.Equal(t, 2.0, Stack(boosts, now, 5.0))
}

func TestActivateStampsAndPersists(t *testing.T) {
	store := newMemStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(DefaultConfig(), store, WithClock(func() time.Time { return now }))

	b, err := m.Activate(context.Background(), "U1", Boost{ID: "double", Multiplier: 2.0, Duration: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, now, b.ActivatedAt)
	assert.Equal(t, now.Add(time.Hour), b.ExpiresAt())

	mult, err := m.MultiplierFor(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, mult)
}

func TestActivateRejectsAtStackLimit(t *testing.T) {
	store := newMemStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(Config{MaxStackable: 2, MaxMultiplier: 10}, store, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i, id := range []string{"a", "b"} {
		_, err := m.Activate(ctx, "u1", Boost{ID: id, Multiplier: 1.5, Duration: time.Hour})
		require.NoError(t, err, "boost %d", i)
	}
	_, err := m.Activate(ctx, "u1", Boost{ID: "c", Multiplier: 1.5, Duration: time.Hour})
	assert.ErrorIs(t, err, ErrBoostLimit)
}

func TestExpiredBoostsFreeStackSlots(t *testing.T) {
	store := newMemStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	m := NewManager(Config{MaxStackable: 1, MaxMultiplier: 10}, store, WithClock(func() time.Time { return *clock }))
	ctx := context.Background()

	_, err := m.Activate(ctx, "u1", Boost{ID: "a", Multiplier: 2.0, Duration: time.Hour})
	require.NoError(t, err)

	later := now.Add(2 * time.Hour)
	clock = &later
	_, err = m.Activate(ctx, "u1", Boost{ID: "b", Multiplier: 2.0, Duration: time.Hour})
	require.NoError(t, err)

	mult, err := m.MultiplierFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, mult)
}

func TestActivatePreconditions(t *testing.T) {
	m := NewManager(DefaultConfig(), newMemStore())
	ctx := context.Background()

	_, err := m.Activate(ctx, "", Boost{ID: "a", Multiplier: 2, Duration: time.Hour})
	assert.Error(t, err)
	_, err = m.Activate(ctx, "u1", Boost{Multiplier: 2, Duration: time.Hour})
	assert.Error(t, err)
	_, err = m.Activate(ctx, "u1", Boost{ID: "a", Multiplier: 0, Duration: time.Hour})
	assert.Error(t, err)
	_, err = m.Activate(ctx, "u1", Boost{ID: "a", Multiplier: 2})
	assert.Error(t, err)
}

func TestActivateEmitsEvent(t *testing.T) {
	store := newMemStore()
	var events []core.Event
	sink := sinkFunc(func(_ context.Context, ev core.Event) { events = append(events, ev) })
	m := NewManager(DefaultConfig(), store, WithEventSink(sink))

	_, err := m.Activate(context.Background(), "u1", Boost{ID: "double", Multiplier: 2.0, Duration: time.Hour})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventBoostActivated, events[0].Type)
	assert.Equal(t, "double", events[0].BoostID)
}

type sinkFunc func(context.Context, core.Event)

func (f sinkFunc) Publish(ctx context.Context, ev core.Event) { f(ctx, ev) }
