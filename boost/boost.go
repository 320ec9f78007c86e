// Package boost manages time-limited XP multipliers and the stacking math
// that combines them.
package boost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xpkit/core"
)

// ErrBoostLimit is returned by Activate when the user already has the
// maximum number of concurrently active boosts.
var ErrBoostLimit = errors.New("active boost limit reached")

// Boost is a temporary XP multiplier. Immutable once activated; it expires
// implicitly when its duration elapses.
type Boost struct {
	ID          string        `json:"id"`
	Multiplier  float64       `json:"multiplier"`
	ActivatedAt time.Time     `json:"activated_at"`
	Duration    time.Duration `json:"duration"`
	Reason      string        `json:"reason,omitempty"`
}

// ExpiresAt is the instant the boost stops applying.
func (b Boost) ExpiresAt() time.Time { return b.ActivatedAt.Add(b.Duration) }

// Active reports whether the boost still applies at now.
func (b Boost) Active(now time.Time) bool { return now.Before(b.ExpiresAt()) }

// Stack combines the multipliers of every boost active at now, starting from
// 1.0 and clamping the product to maxMultiplier. Multiplication is
// commutative, so iteration order does not matter. An empty active set
// yields exactly 1.0. A non-positive maxMultiplier disables the clamp.
func Stack(boosts []Boost, now time.Time, maxMultiplier float64) float64 {
	product := 1.0
	for _, b := range boosts {
		if b.Active(now) && b.Multiplier > 0 {
			product *= b.Multiplier
		}
	}
	if maxMultiplier > 0 && product > maxMultiplier {
		return maxMultiplier
	}
	return product
}

// Store persists per-user boost collections.
type Store interface {
	Boosts(ctx context.Context, user core.UserID) ([]Boost, error)
	SaveBoost(ctx context.Context, user core.UserID, b Boost) error
}

// EventSink receives boost-activated events.
type EventSink interface {
	Publish(ctx context.Context, ev core.Event)
}

// Config bounds boost stacking.
type Config struct {
	MaxStackable  int
	MaxMultiplier float64
}

// DefaultConfig allows three concurrent boosts capped at 5x.
func DefaultConfig() Config { return Config{MaxStackable: 3, MaxMultiplier: 5.0} }

// Manager activates boosts and computes effective multipliers against a
// Store collaborator.
type Manager struct {
	cfg   Config
	store Store
	sink  EventSink
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithEventSink wires boost-activated events to a sink.
func WithEventSink(s EventSink) Option { return func(m *Manager) { m.sink = s } }

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// NewManager builds a Manager over the given store.
func NewManager(cfg Config, store Store, opts ...Option) *Manager {
	if store == nil {
		panic("boost.NewManager requires a non-nil store")
	}
	m := &Manager{cfg: cfg, store: store, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Activate stamps the boost's activation time and persists it. It fails
// with ErrBoostLimit when the user is already at the stacking cap.
func (m *Manager) Activate(ctx context.Context, user core.UserID, b Boost) (Boost, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Boost{}, err
	}
	if b.ID == "" {
		return Boost{}, errors.New("boost id cannot be empty")
	}
	if b.Multiplier <= 0 {
		return Boost{}, errors.New("boost multiplier must be positive")
	}
	if b.Duration <= 0 {
		return Boost{}, errors.New("boost duration must be positive")
	}
	now := m.now().UTC()
	active, err := m.ActiveBoosts(ctx, normalized)
	if err != nil {
		return Boost{}, err
	}
	if m.cfg.MaxStackable > 0 && len(active) >= m.cfg.MaxStackable {
		return Boost{}, fmt.Errorf("%w: %d active", ErrBoostLimit, len(active))
	}
	b.ActivatedAt = now
	if err := m.store.SaveBoost(ctx, normalized, b); err != nil {
		return Boost{}, err
	}
	if m.sink != nil {
		m.sink.Publish(ctx, core.NewBoostActivated(normalized, b.ID, b.Multiplier))
	}
	return b, nil
}

// ActiveBoosts returns the user's currently active boosts.
func (m *Manager) ActiveBoosts(ctx context.Context, user core.UserID) ([]Boost, error) {
	all, err := m.store.Boosts(ctx, user)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	active := make([]Boost, 0, len(all))
	for _, b := range all {
		if b.Active(now) {
			active = append(active, b)
		}
	}
	return active, nil
}

// MultiplierFor computes the effective stacked multiplier for the user.
func (m *Manager) MultiplierFor(ctx context.Context, user core.UserID) (float64, error) {
	all, err := m.store.Boosts(ctx, user)
	if err != nil {
		return 0, err
	}
	return Stack(all, m.now().UTC(), m.cfg.MaxMultiplier), nil
}
