package engine

import (
	"context"
	"errors"
	"math"

	"xpkit/boost"
	"xpkit/core"
	"xpkit/rules"
)

// AwardResult is the outcome of one XP award. A throttled award is a normal
// result with zero XP applied, not an error, so hosts can message the
// player without special-casing failures.
type AwardResult struct {
	UserID        core.UserID `json:"user_id"`
	Action        core.Action `json:"action"`
	Throttled     bool        `json:"throttled"`
	Reason        string      `json:"reason,omitempty"`
	RequestedXP   int64       `json:"requested_xp"`
	AppliedXP     int64       `json:"applied_xp"`
	Multiplier    float64     `json:"multiplier"`
	TotalXP       int64       `json:"total_xp"`
	PreviousLevel int64       `json:"previous_level"`
	NewLevel      int64       `json:"new_level"`
	LeveledUp     bool        `json:"leveled_up"`
}

// XPService wires storage, the event bus, the leveling curve, and the
// optional rate limiter and boost manager into a cohesive award pipeline.
type XPService struct {
	storage Storage
	bus     *EventBus
	curve   *core.LevelingCurve
	limiter *rules.Limiter
	boosts  *boost.Manager
}

// ServiceOption configures an XPService.
type ServiceOption func(*XPService)

// WithLimiter enables anti-cheat rate limiting on awards.
func WithLimiter(l *rules.Limiter) ServiceOption { return func(s *XPService) { s.limiter = l } }

// WithBoosts enables XP multiplier boosts on awards.
func WithBoosts(m *boost.Manager) ServiceOption { return func(s *XPService) { s.boosts = m } }

// NewXPService builds the award pipeline. Storage, bus, and curve are
// mandatory collaborators.
func NewXPService(storage Storage, bus *EventBus, curve *core.LevelingCurve, opts ...ServiceOption) *XPService {
	if storage == nil || bus == nil || curve == nil {
		panic("NewXPService requires non-nil storage, bus, and curve")
	}
	s := &XPService{storage: storage, bus: bus, curve: curve}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe convenience method.
func (s *XPService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *XPService) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

// Curve exposes the configured leveling curve.
func (s *XPService) Curve() *core.LevelingCurve { return s.curve }

// AwardXP runs the full award pipeline: rate-limit validation, boost
// multiplication, XP write, level-crossing detection with one level-up
// event per crossed level, and rate-limit bookkeeping. The rate limiter
// sees the pre-boost amount on both Validate and RecordAction.
func (s *XPService) AwardXP(ctx context.Context, user core.UserID, action core.Action, amount int64) (AwardResult, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return AwardResult{}, err
	}
	if err := core.ValidateAction(action); err != nil {
		return AwardResult{}, err
	}
	if amount <= 0 {
		return AwardResult{}, errors.New("xp amount must be positive")
	}

	res := AwardResult{UserID: normalized, Action: action, RequestedXP: amount, Multiplier: 1.0}

	if s.limiter != nil {
		decision, err := s.limiter.Validate(ctx, normalized, action, amount)
		if err != nil {
			return AwardResult{}, err
		}
		if !decision.Allowed {
			res.Throttled = true
			res.Reason = decision.Reason
			return res, nil
		}
	}

	if s.boosts != nil {
		mult, err := s.boosts.MultiplierFor(ctx, normalized)
		if err != nil {
			return AwardResult{}, err
		}
		res.Multiplier = mult
	}
	applied := int64(math.Floor(float64(amount) * res.Multiplier))
	if applied < 0 {
		applied = 0
	}
	res.AppliedXP = applied

	before, err := s.storage.GetState(ctx, normalized)
	if err != nil {
		return AwardResult{}, err
	}
	res.PreviousLevel = s.curve.Level(before.TotalXP)

	total, err := s.storage.AddXP(ctx, normalized, applied)
	if err != nil {
		return AwardResult{}, err
	}
	res.TotalXP = total
	res.NewLevel = s.curve.Level(total)

	s.bus.Publish(ctx, core.NewXPAwarded(normalized, action, applied, total))

	if res.NewLevel > res.PreviousLevel {
		res.LeveledUp = true
		for lvl := res.PreviousLevel + 1; lvl <= res.NewLevel; lvl++ {
			s.bus.Publish(ctx, core.NewLevelUp(normalized, lvl-1, lvl, total))
		}
		// cached level for hosts reading state directly
		_ = s.storage.SetLevel(ctx, normalized, res.NewLevel)
	}

	if s.limiter != nil {
		if err := s.limiter.RecordAction(ctx, normalized, action, amount); err != nil {
			return res, err
		}
	}
	return res, nil
}

// GetState returns the player's stored XP snapshot.
func (s *XPService) GetState(ctx context.Context, user core.UserID) (core.PlayerState, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.PlayerState{}, err
	}
	return s.storage.GetState(ctx, normalized)
}

// Progress reports how far the player is into the current level band.
func (s *XPService) Progress(ctx context.Context, user core.UserID) (float64, error) {
	st, err := s.GetState(ctx, user)
	if err != nil {
		return 0, err
	}
	return s.curve.Progress(st.TotalXP), nil
}

func (s *XPService) Close() { s.bus.Close() }
