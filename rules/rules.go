// Package rules enforces anti-cheat rate limits on XP-earning actions:
// a daily XP cap, per-action cooldowns, and an hourly action cap.
// Denial is a first-class result value, never an error.
package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xpkit/core"
)

// Suspicious activity kinds surfaced on rate-limit denials.
const (
	KindDailyXPLimit      = "daily_xp_limit_exceeded"
	KindHourlyActionLimit = "hourly_action_limit_exceeded"
)

// Config holds the rate-limit thresholds. Zero values disable a check.
type Config struct {
	MaxDailyXP        int64
	MaxActionsPerHour int64
	Cooldowns         map[core.Action]time.Duration
}

// Decision is the outcome of a validation. Reason is set only on denial.
type Decision struct {
	Allowed bool
	Reason  string
}

// EventSink receives suspicious-activity events. Publishing is
// fire-and-forget; the limiter never inspects the outcome.
type EventSink interface {
	Publish(ctx context.Context, ev core.Event)
}

// WindowStore persists rolling-window counters keyed by UTC day and hour.
// Keys encode the window boundary, so a fresh key reads as zero and stale
// windows reset implicitly. Implementations backed by a shared store (for
// example Redis TTL counters) make the windows survive restarts and span
// horizontally scaled instances.
type WindowStore interface {
	DailyXP(ctx context.Context, user core.UserID, dayKey string) (int64, error)
	AddDailyXP(ctx context.Context, user core.UserID, dayKey string, xp int64) error
	HourlyActions(ctx context.Context, user core.UserID, hourKey string) (int64, error)
	IncrHourlyActions(ctx context.Context, user core.UserID, hourKey string) error
	LastAction(ctx context.Context, user core.UserID, action core.Action) (time.Time, bool, error)
	SetLastAction(ctx context.Context, user core.UserID, action core.Action, at time.Time) error
}

// Limiter validates and records XP-earning actions against the configured
// windows. Safe for concurrent use when its WindowStore is.
type Limiter struct {
	cfg   Config
	store WindowStore
	sink  EventSink
	now   func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithStore replaces the default in-memory window store.
func WithStore(s WindowStore) Option { return func(l *Limiter) { l.store = s } }

// WithEventSink wires suspicious-activity events to a sink.
func WithEventSink(s EventSink) Option { return func(l *Limiter) { l.sink = s } }

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option { return func(l *Limiter) { l.now = now } }

// New builds a Limiter with an in-memory window store by default.
func New(cfg Config, opts ...Option) *Limiter {
	l := &Limiter{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	if l.store == nil {
		l.store = NewMemoryStore()
	}
	return l
}

// DayKey formats t as the UTC calendar-day window key.
func DayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// HourKey formats t as the UTC calendar-hour window key. The key includes
// the day, so hour 3 today never collides with hour 3 yesterday.
func HourKey(t time.Time) string { return t.UTC().Format("2006-01-02T15") }

func (l *Limiter) checkArgs(user core.UserID, action core.Action, xp int64) error {
	if _, err := core.NormalizeUserID(user); err != nil {
		return err
	}
	if err := core.ValidateAction(action); err != nil {
		return err
	}
	if xp <= 0 {
		return errors.New("xp amount must be positive")
	}
	return nil
}

// Validate decides whether the action may earn xp right now. Checks run in
// order: daily XP cap, per-action cooldown, hourly action cap; the daily-XP
// denial is the most actionable signal so it surfaces first. Cap denials
// emit a suspicious-activity event on every occurrence.
func (l *Limiter) Validate(ctx context.Context, user core.UserID, action core.Action, xp int64) (Decision, error) {
	if err := l.checkArgs(user, action, xp); err != nil {
		return Decision{}, err
	}
	now := l.now().UTC()

	if l.cfg.MaxDailyXP > 0 {
		accumulated, err := l.store.DailyXP(ctx, user, DayKey(now))
		if err != nil {
			return Decision{}, err
		}
		if accumulated+xp > l.cfg.MaxDailyXP {
			l.publish(ctx, core.NewSuspiciousActivity(user, KindDailyXPLimit,
				fmt.Sprintf("daily XP %d + requested %d exceeds limit %d", accumulated, xp, l.cfg.MaxDailyXP)))
			return Decision{Reason: fmt.Sprintf("daily XP limit of %d reached", l.cfg.MaxDailyXP)}, nil
		}
	}

	if cooldown, ok := l.cfg.Cooldowns[action]; ok && cooldown > 0 {
		last, found, err := l.store.LastAction(ctx, user, action)
		if err != nil {
			return Decision{}, err
		}
		if found && now.Sub(last) < cooldown {
			return Decision{Reason: fmt.Sprintf("action %q is on cooldown", action)}, nil
		}
	}

	if l.cfg.MaxActionsPerHour > 0 {
		count, err := l.store.HourlyActions(ctx, user, HourKey(now))
		if err != nil {
			return Decision{}, err
		}
		if count >= l.cfg.MaxActionsPerHour {
			l.publish(ctx, core.NewSuspiciousActivity(user, KindHourlyActionLimit,
				fmt.Sprintf("%d actions this hour, limit %d", count, l.cfg.MaxActionsPerHour)))
			return Decision{Reason: fmt.Sprintf("hourly action limit of %d reached", l.cfg.MaxActionsPerHour)}, nil
		}
	}

	return Decision{Allowed: true}, nil
}

// RecordAction books the effects of an allowed action: adds xp to the daily
// window, stamps the action's last-performed time, and increments the hourly
// counter. Callers must not record denied actions. Partial writes on
// cancellation are best-effort bookkeeping, not a correctness guarantee.
func (l *Limiter) RecordAction(ctx context.Context, user core.UserID, action core.Action, xp int64) error {
	if err := l.checkArgs(user, action, xp); err != nil {
		return err
	}
	now := l.now().UTC()
	if err := l.store.AddDailyXP(ctx, user, DayKey(now), xp); err != nil {
		return err
	}
	if err := l.store.SetLastAction(ctx, user, action, now); err != nil {
		return err
	}
	return l.store.IncrHourlyActions(ctx, user, HourKey(now))
}

func (l *Limiter) publish(ctx context.Context, ev core.Event) {
	if l.sink != nil {
		l.sink.Publish(ctx, ev)
	}
}
