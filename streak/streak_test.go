package streak

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
	mu      sync.Mutex
	streaks map[string]State
}

func newMemStore() *memStore { return &memStore{streaks: map[string]State{}} }

func (s *memStore) key(user core.UserID, streakID string) string {
	return string(user) + "/" + streakID
}

func (s *memStore) Streak(_ context.Context, user core.UserID, streakID string) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streaks[s.key(user, streakID)]
	return st, ok, nil
}

func (s *memStore) SaveStreak(_ context.Context, user core.UserID, streakID string, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[s.key(user, streakID)] = st
	return nil
}

type sinkFunc func(context.Context, core.Event)

func (f sinkFunc) Publish(ctx context.Context, ev core.Event) { f(ctx, ev) }

func mustDef(t *testing.T, period Period, grace time.Duration, milestones []Milestone) Definition {
	t.Helper()
	d, err := NewDefinition("checkin", period, grace, milestones)
	require.NoError(t, err)
	return d
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTracker(t *testing.T, def Definition, events *[]core.Event) (*Tracker, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	var opts []Option
	opts = append(opts, WithClock(clk.Now))
	if events != nil {
		opts = append(opts, WithEventSink(sinkFunc(func(_ context.Context, ev core.Event) {
			*events = append(*events, ev)
		})))
	}
	return NewTracker([]Definition{def}, newMemStore(), opts...), clk
}

func TestFirstRecordStartsStreak(t *testing.T) {
	tr, _ := newTracker(t, mustDef(t, PeriodDaily, 12*time.Hour, nil), nil)
	st, err := tr.Record(context.Background(), "u1", "checkin")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, 1, st.Best)
	require.NotNil(t, st.LastRecordedAt)
}

func TestSamePeriodRecordIsNoOp(t *testing.T) {
	tr, clk := newTracker(t, mustDef(t, PeriodDaily, 12*time.Hour, nil), nil)
	ctx := context.Background()

	first, err := tr.Record(ctx, "u1", "checkin")
	require.NoError(t, err)

	clk.Advance(time.Hour)
	second, err := tr.Record(ctx, "u1", "checkin")
	require.NoError(t, err)
	assert.Equal(t, first.Current, second.Current)
	assert.Equal(t, first.LastRecordedAt, second.LastRecordedAt)
}

func TestGraceContinuation(t *testing.T) {
	// daily streak with 36h of total allowance; record again 30h later
	tr, clk := newTracker(t, mustDef(t, PeriodDaily, 12*time.Hour, nil), nil)
	ctx := context.Background()

	_, err := tr.Record(ctx, "u1", "checkin")
	require.NoError(t, err)

	clk.Advance(30 * time.Hour)
	st, err := tr.Record(ctx, "u1", "checkin")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Current)
}

func TestBreakPreservesBest(t *testing.T) {
	tr, clk := newTracker(t, mustDef(t, PeriodDaily, 6*time.Hour, nil), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		st, err := tr.Record(ctx, "u1", "checkin")
		require.NoError(t, err)
		require.Equal(t, i+1, st.Current)
		clk.Advance(24 * time.Hour)
	}

	clk.Advance(72 * time.Hour)
	st, err := tr.Record(ctx, "u1", "checkin")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, 5, st.Best)
}

func TestWeeklyPeriod(t *testing.T) {
	tr, clk := newTracker(t, mustDef(t, PeriodWeekly, 24*time.Hour, nil), nil)
	ctx := context.Background()

	_, err := tr.Record(ctx, "u1", "checkin")
	require.NoError(t, err)

	clk.Advance(3 * 24 * time.Hour)
	st, err := tr.Record(ctx, "u1", "checkin")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Current, "mid-week record is a no-op")

	clk.Advance(4*24*time.Hour + time.Hour)
	st, err = tr.Record(ctx, "u1", "checkin")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Current)
}

func TestMilestoneFiresOnExactMatchOnly(t *testing.T) {
	var events []core.Event
	def := mustDef(t, PeriodDaily, 6*time.Hour, []Milestone{
		{Days: 3, XPBonus: 50, Badge: "streak_3"},
		{Days: 3, XPBonus: 999, Badge: "streak_3_dup"},
		{Days: 7, XPBonus: 200, Badge: "streak_7"},
	})
	tr, clk := newTracker(t, def, &events)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := tr.Record(ctx, "u1", "checkin")
		require.NoError(t, err)
		clk.Advance(24 * time.Hour)
	}

	// only the day-3 milestone fired, and only its first entry
	require.Len(t, events, 1)
	assert.Equal(t, core.EventStreakMilestone, events[0].Type)
	assert.Equal(t, 3, events[0].MilestoneDays)
	assert.Equal(t, core.Badge("streak_3"), events[0].Badge)
}

func TestGetReportsDeadStreakAsZero(t *testing.T) {
	tr, clk := newTracker(t, mustDef(t, PeriodDaily, 6*time.Hour, nil), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := tr.Record(ctx, "u1", "checkin")
		require.NoError(t, err)
		clk.Advance(24 * time.Hour)
	}

	st, err := tr.Get(ctx, "u1", "checkin")
	require.NoError(t, err)
	assert.Equal(t, 3, st.Current, "still inside grace")

	clk.Advance(5 * 24 * time.Hour)
	st, err = tr.Get(ctx, "u1", "checkin")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Current)
	assert.Equal(t, 3, st.Best)

	// Get never persists: a later in-grace read is unaffected... and the
	// stored counters are still intact for Record to break properly.
	raw, found, err := tr.store.Streak(ctx, "u1", "checkin")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, raw.Current)
}

func TestGetUnknownUserIsZeroState(t *testing.T) {
	tr, _ := newTracker(t, mustDef(t, PeriodDaily, 0, nil), nil)
	st, err := tr.Get(context.Background(), "ghost", "checkin")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Current)
	assert.Equal(t, 0, st.Best)
	assert.Nil(t, st.LastRecordedAt)
}

func TestUnknownStreakIsAnError(t *testing.T) {
	tr, _ := newTracker(t, mustDef(t, PeriodDaily, 0, nil), nil)
	_, err := tr.Record(context.Background(), "u1", "nope")
	assert.Error(t, err)
	_, err = tr.Get(context.Background(), "u1", "nope")
	assert.Error(t, err)
}

func TestDefinitionValidation(t *testing.T) {
	_, err := NewDefinition("", PeriodDaily, 0, nil)
	assert.Error(t, err)
	_, err = NewDefinition("s", "monthly", 0, nil)
	assert.Error(t, err)
	_, err = NewDefinition("s", PeriodDaily, -time.Hour, nil)
	assert.Error(t, err)
	_, err = NewDefinition("s", PeriodDaily, 0, []Milestone{{Days: 0}})
	assert.Error(t, err)
}
