package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventXPAwarded          EventType = "xp_awarded"
	EventLevelUp            EventType = "level_up"
	EventSuspiciousActivity EventType = "suspicious_activity"
	EventStreakMilestone    EventType = "streak_milestone"
	EventTierChange         EventType = "tier_change"
	EventBoostActivated     EventType = "boost_activated"
)

// AllEventTypes lists every event type the toolkit emits.
func AllEventTypes() []EventType {
	return []EventType{
		EventXPAwarded,
		EventLevelUp,
		EventSuspiciousActivity,
		EventStreakMilestone,
		EventTierChange,
		EventBoostActivated,
	}
}

// TierDirection indicates whether a tier change moved the player up or down.
type TierDirection string

const (
	TierPromoted TierDirection = "promoted"
	TierDemoted  TierDirection = "demoted"
)

// Event represents an immutable domain event.
type Event struct {
	Type   EventType `json:"type"`
	Time   time.Time `json:"time"`
	UserID UserID    `json:"user_id"`

	Action Action `json:"action,omitempty"`
	Amount int64  `json:"amount,omitempty"`
	Total  int64  `json:"total,omitempty"`

	PreviousLevel int64 `json:"previous_level,omitempty"`
	NewLevel      int64 `json:"new_level,omitempty"`

	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`

	StreakID      string `json:"streak_id,omitempty"`
	MilestoneDays int    `json:"milestone_days,omitempty"`
	CurrentStreak int    `json:"current_streak,omitempty"`
	Badge         Badge  `json:"badge,omitempty"`

	PreviousTier string        `json:"previous_tier,omitempty"`
	NewTier      string        `json:"new_tier,omitempty"`
	Direction    TierDirection `json:"direction,omitempty"`

	BoostID    string  `json:"boost_id,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewXPAwarded(user UserID, action Action, amount int64, total int64) Event {
	return Event{Type: EventXPAwarded, Time: time.Now().UTC(), UserID: user, Action: action, Amount: amount, Total: total}
}

func NewLevelUp(user UserID, previous int64, level int64, total int64) Event {
	return Event{Type: EventLevelUp, Time: time.Now().UTC(), UserID: user, PreviousLevel: previous, NewLevel: level, Total: total}
}

func NewSuspiciousActivity(user UserID, kind string, details string) Event {
	return Event{Type: EventSuspiciousActivity, Time: time.Now().UTC(), UserID: user, Kind: kind, Details: details}
}

func NewStreakMilestone(user UserID, streakID string, days int, current int, badge Badge) Event {
	return Event{Type: EventStreakMilestone, Time: time.Now().UTC(), UserID: user, StreakID: streakID, MilestoneDays: days, CurrentStreak: current, Badge: badge}
}

func NewTierChange(user UserID, previous string, next string, direction TierDirection) Event {
	return Event{Type: EventTierChange, Time: time.Now().UTC(), UserID: user, PreviousTier: previous, NewTier: next, Direction: direction}
}

func NewBoostActivated(user UserID, boostID string, multiplier float64) Event {
	return Event{Type: EventBoostActivated, Time: time.Now().UTC(), UserID: user, BoostID: boostID, Multiplier: multiplier}
}
