// Package streak tracks consecutive-period activity with a grace window
// before a streak breaks, and detects milestone crossings.
package streak

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"xpkit/core"
)

// Period is the nominal cadence a streak must be kept at.
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

// Duration returns the fixed length of the period window.
func (p Period) Duration() time.Duration {
	if p == PeriodWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Milestone rewards reaching an exact streak length.
type Milestone struct {
	Days    int        `json:"days"`
	XPBonus int64      `json:"xp_bonus"`
	Badge   core.Badge `json:"badge"`
}

// Definition is the immutable configuration of one streak.
type Definition struct {
	id         string
	period     Period
	grace      time.Duration
	milestones []Milestone
}

// NewDefinition builds a streak definition. Milestones are copied and
// ordered ascending by days.
func NewDefinition(id string, period Period, grace time.Duration, milestones []Milestone) (Definition, error) {
	if id == "" {
		return Definition{}, errors.New("streak id cannot be empty")
	}
	if period != PeriodDaily && period != PeriodWeekly {
		return Definition{}, fmt.Errorf("unknown streak period %q", period)
	}
	if grace < 0 {
		return Definition{}, errors.New("grace period cannot be negative")
	}
	ms := make([]Milestone, len(milestones))
	copy(ms, milestones)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Days < ms[j].Days })
	for _, m := range ms {
		if m.Days <= 0 {
			return Definition{}, errors.New("milestone days must be positive")
		}
	}
	return Definition{id: id, period: period, grace: grace, milestones: ms}, nil
}

// ID returns the streak identifier.
func (d Definition) ID() string { return d.id }

// Period returns the streak cadence.
func (d Definition) Period() Period { return d.period }

// Grace returns the extra delay allowed beyond the period before breaking.
func (d Definition) Grace() time.Duration { return d.grace }

// State is a player's persisted streak counters. Best never decreases and
// is always >= Current.
type State struct {
	Current        int        `json:"current"`
	Best           int        `json:"best"`
	LastRecordedAt *time.Time `json:"last_recorded_at,omitempty"`
}

// Store persists per-user streak state.
type Store interface {
	Streak(ctx context.Context, user core.UserID, streakID string) (State, bool, error)
	SaveStreak(ctx context.Context, user core.UserID, streakID string, st State) error
}

// EventSink receives streak-milestone events.
type EventSink interface {
	Publish(ctx context.Context, ev core.Event)
}

// Tracker applies the continuation state machine for a set of streak
// definitions.
type Tracker struct {
	defs  map[string]Definition
	store Store
	sink  EventSink
	now   func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithEventSink wires milestone events to a sink.
func WithEventSink(s EventSink) Option { return func(t *Tracker) { t.sink = s } }

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

// NewTracker builds a Tracker over the given store.
func NewTracker(defs []Definition, store Store, opts ...Option) *Tracker {
	if store == nil {
		panic("streak.NewTracker requires a non-nil store")
	}
	t := &Tracker{defs: make(map[string]Definition, len(defs)), store: store, now: time.Now}
	for _, d := range defs {
		t.defs[d.id] = d
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Record notes one activity occurrence and applies the continuation rules:
// a first record starts the streak at 1; a re-record inside the current
// period is a no-op; a record inside period+grace continues the streak;
// anything later breaks it back to 1. Best is preserved across breaks.
// Exactly one milestone fires per call, when Current lands exactly on its
// day count.
func (t *Tracker) Record(ctx context.Context, user core.UserID, streakID string) (State, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return State{}, err
	}
	def, ok := t.defs[streakID]
	if !ok {
		return State{}, fmt.Errorf("unknown streak %q", streakID)
	}
	st, _, err := t.store.Streak(ctx, normalized, streakID)
	if err != nil {
		return State{}, err
	}
	now := t.now().UTC()

	if st.LastRecordedAt == nil {
		st.Current = 1
	} else {
		elapsed := now.Sub(*st.LastRecordedAt)
		period := def.period.Duration()
		switch {
		case elapsed < period:
			// same-period re-record: idempotent, nothing advances
			return st, nil
		case elapsed <= period+def.grace:
			st.Current++
		default:
			st.Current = 1
		}
	}
	if st.Current > st.Best {
		st.Best = st.Current
	}
	st.LastRecordedAt = &now

	if err := t.store.SaveStreak(ctx, normalized, streakID, st); err != nil {
		return State{}, err
	}

	if t.sink != nil {
		for _, m := range def.milestones {
			if m.Days == st.Current {
				t.sink.Publish(ctx, core.NewStreakMilestone(normalized, streakID, m.Days, st.Current, m.Badge))
				break
			}
		}
	}
	return st, nil
}

// Get reads the streak without mutating it. A streak whose grace window has
// lapsed reports Current as 0 at presentation time while keeping the true
// Best; nothing is persisted.
func (t *Tracker) Get(ctx context.Context, user core.UserID, streakID string) (State, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return State{}, err
	}
	def, ok := t.defs[streakID]
	if !ok {
		return State{}, fmt.Errorf("unknown streak %q", streakID)
	}
	st, found, err := t.store.Streak(ctx, normalized, streakID)
	if err != nil {
		return State{}, err
	}
	if !found {
		return State{}, nil
	}
	now := t.now().UTC()
	alive := st.LastRecordedAt != nil && now.Sub(*st.LastRecordedAt) <= def.period.Duration()+def.grace
	if !alive {
		st.Current = 0
	}
	return st, nil
}
