package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"xpkit/core"
)

// Tier is a percentile-based rank bracket such as Bronze or Gold.
// MaxPercentile is the upper bound (inclusive) of the percentile range the
// tier covers, in (0, 1].
type Tier struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Icon          string  `json:"icon,omitempty"`
	MaxPercentile float64 `json:"max_percentile"`
}

// TierSet is an immutable ordered tier list, ascending by MaxPercentile.
// The last tier should sit at exactly 1.0 for total coverage; when it does
// not, lookups fall back to the highest tier.
type TierSet struct {
	tiers []Tier
}

// NewTierSet validates and orders the tiers. MaxPercentile values must be
// strictly increasing (after sorting) and within (0, 1].
func NewTierSet(tiers ...Tier) (TierSet, error) {
	cp := make([]Tier, len(tiers))
	copy(cp, tiers)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].MaxPercentile < cp[j].MaxPercentile })
	seen := map[string]struct{}{}
	prev := 0.0
	for _, t := range cp {
		if t.ID == "" {
			return TierSet{}, errors.New("tier id cannot be empty")
		}
		if _, dup := seen[t.ID]; dup {
			return TierSet{}, fmt.Errorf("duplicate tier id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.MaxPercentile <= 0 || t.MaxPercentile > 1 {
			return TierSet{}, fmt.Errorf("tier %q: max percentile %v outside (0, 1]", t.ID, t.MaxPercentile)
		}
		if t.MaxPercentile <= prev {
			return TierSet{}, fmt.Errorf("tier %q: max percentile %v does not increase past %v", t.ID, t.MaxPercentile, prev)
		}
		prev = t.MaxPercentile
	}
	return TierSet{tiers: cp}, nil
}

// Empty reports whether no tiers are configured.
func (s TierSet) Empty() bool { return len(s.tiers) == 0 }

// Tiers returns a copy of the ordered tier list.
func (s TierSet) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// Lowest returns the worst tier (smallest MaxPercentile), or nil when empty.
func (s TierSet) Lowest() *Tier {
	if len(s.tiers) == 0 {
		return nil
	}
	t := s.tiers[0]
	return &t
}

// index returns the ascending-order position of a tier id, or -1.
func (s TierSet) index(id string) int {
	for i, t := range s.tiers {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// CalculateTier maps a 1-based rank out of totalPlayers to a tier.
// Percentile is 1 − (rank−1)/totalPlayers, so rank 1 of N scores 1.0 and
// rank N of N scores 1/N. The walk is ascending by MaxPercentile; the first
// tier covering the percentile wins, with the highest tier as fallback for
// any uncovered remainder. Returns nil when no tiers are configured or
// totalPlayers is zero.
func (s TierSet) CalculateTier(rank int, totalPlayers int) *Tier {
	if len(s.tiers) == 0 || totalPlayers <= 0 || rank < 1 {
		return nil
	}
	percentile := 1.0 - float64(rank-1)/float64(totalPlayers)
	for _, t := range s.tiers {
		if t.MaxPercentile >= percentile {
			cp := t
			return &cp
		}
	}
	cp := s.tiers[len(s.tiers)-1]
	return &cp
}

// Standing is a player's position on the default leaderboard period.
type Standing struct {
	UserID           core.UserID `json:"user_id"`
	Rank             int         `json:"rank"`
	XP               int64       `json:"xp"`
	Tier             *Tier       `json:"tier,omitempty"`
	PointsToNextTier int64       `json:"points_to_next_tier"`
	TotalPlayers     int         `json:"total_players"`
	Ranked           bool        `json:"ranked"`
}

// EventSink receives tier-change events.
type EventSink interface {
	Publish(ctx context.Context, ev core.Event)
}

// Manager keeps one standings board per configured period and detects tier
// promotions and demotions against the default period.
type Manager struct {
	tiers         TierSet
	boards        map[Period]Board
	periods       []Period
	defaultPeriod Period
	sink          EventSink
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEventSink wires tier-change events to a sink.
func WithEventSink(s EventSink) ManagerOption { return func(m *Manager) { m.sink = s } }

// NewManager builds a Manager with one skip-list board per period.
// defaultPeriod must be among periods; it is the basis for tier detection.
func NewManager(tiers TierSet, periods []Period, defaultPeriod Period, opts ...ManagerOption) (*Manager, error) {
	if len(periods) == 0 {
		return nil, errors.New("leaderboard: at least one period is required")
	}
	m := &Manager{
		tiers:         tiers,
		boards:        make(map[Period]Board, len(periods)),
		periods:       append([]Period(nil), periods...),
		defaultPeriod: defaultPeriod,
	}
	hasDefault := false
	for _, p := range periods {
		if _, dup := m.boards[p]; dup {
			return nil, fmt.Errorf("leaderboard: duplicate period %q", p)
		}
		m.boards[p] = NewSkipList()
		if p == defaultPeriod {
			hasDefault = true
		}
	}
	if !hasDefault {
		return nil, fmt.Errorf("leaderboard: default period %q is not configured", defaultPeriod)
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Tiers exposes the configured tier set.
func (m *Manager) Tiers() TierSet { return m.tiers }

// Board returns the standings board for a period, or nil if unconfigured.
func (m *Manager) Board(period Period) Board { return m.boards[period] }

// Top returns the n best entries for a period.
func (m *Manager) Top(period Period, n int) []Entry {
	b := m.boards[period]
	if b == nil {
		return nil
	}
	return b.TopN(n)
}

// Update writes the player's new XP to every configured period, then emits
// a tier-change event if the default-period tier moved. A first-time
// entrant settles into a tier silently.
func (m *Manager) Update(ctx context.Context, user core.UserID, xp int64) error {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return err
	}
	if xp < 0 {
		return errors.New("leaderboard: xp cannot be negative")
	}
	before := m.tierOf(normalized)
	for _, p := range m.periods {
		m.boards[p].Update(normalized, xp)
	}
	after := m.tierOf(normalized)

	if m.sink == nil || before == nil || after == nil || before.ID == after.ID {
		return nil
	}
	direction := core.TierDemoted
	if m.tiers.index(after.ID) > m.tiers.index(before.ID) {
		direction = core.TierPromoted
	}
	m.sink.Publish(ctx, core.NewTierChange(normalized, before.ID, after.ID, direction))
	return nil
}

// tierOf computes the player's current tier on the default period, or nil
// when unranked.
func (m *Manager) tierOf(user core.UserID) *Tier {
	board := m.boards[m.defaultPeriod]
	entries := board.Standings()
	for i, e := range entries {
		if e.User == user {
			return m.tiers.CalculateTier(i+1, len(entries))
		}
	}
	return nil
}

// Standing locates the player on the default period. An unranked player
// reports rank totalPlayers+1 with zero XP and the lowest tier.
func (m *Manager) Standing(user core.UserID) Standing {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Standing{UserID: user}
	}
	entries := m.boards[m.defaultPeriod].Standings()
	total := len(entries)

	st := Standing{UserID: normalized, TotalPlayers: total}
	for i, e := range entries {
		if e.User == normalized {
			st.Rank = i + 1
			st.XP = e.XP
			st.Ranked = true
			st.Tier = m.tiers.CalculateTier(st.Rank, total)
			break
		}
	}
	if !st.Ranked {
		st.Rank = total + 1
		st.Tier = m.tiers.Lowest()
	}
	st.PointsToNextTier = m.pointsToNextTier(entries, st.Tier, st.XP)
	return st
}

// pointsToNextTier is the XP gap to the minimum XP held by the
// lowest-ranked member of the next-better tier, clamped to >= 0.
func (m *Manager) pointsToNextTier(entries []Entry, current *Tier, xp int64) int64 {
	if current == nil {
		return 0
	}
	idx := m.tiers.index(current.ID)
	if idx < 0 || idx+1 >= len(m.tiers.tiers) {
		return 0 // already in the best tier
	}
	next := m.tiers.tiers[idx+1]
	total := len(entries)
	for i := total - 1; i >= 0; i-- {
		t := m.tiers.CalculateTier(i+1, total)
		if t != nil && t.ID == next.ID {
			gap := entries[i].XP - xp
			if gap < 0 {
				gap = 0
			}
			return gap
		}
	}
	return 0
}
