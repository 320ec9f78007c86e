package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// UserID uniquely identifies a player in the gamification domain.
type UserID string

// Action names an XP-earning activity such as "quiz_completed".
type Action string

// Badge represents a named badge identifier.
type Badge string

// PlayerState is an immutable snapshot of a player's XP state.
// Implementations should return deep copies to maintain immutability guarantees.
type PlayerState struct {
	UserID  UserID           `json:"user_id"`
	TotalXP int64            `json:"total_xp"`
	Level   int64            `json:"level"`
	Stats   map[string]int64 `json:"stats"`
	Updated time.Time        `json:"updated"`
}

// Clone returns a deep copy of the state to uphold immutability.
func (s PlayerState) Clone() PlayerState {
	cp := PlayerState{
		UserID:  s.UserID,
		TotalXP: s.TotalXP,
		Level:   s.Level,
		Stats:   make(map[string]int64, len(s.Stats)),
		Updated: s.Updated,
	}
	for k, v := range s.Stats {
		cp.Stats[k] = v
	}
	return cp
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, errors.New("integer overflow in AddSafe")
	}
	return base + delta, nil
}

// NormalizeUserID trims and lowercases user identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(strings.ToLower(s)), nil
}

// ValidateAction ensures non-empty action id with simple charset check.
func ValidateAction(a Action) error {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return errors.New("empty action id")
	}
	// simple check: alnum, dash, underscore, dot
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.' {
			continue
		}
		return errors.New("invalid action id")
	}
	return nil
}

// ValidateBadgeID ensures non-empty badge id with simple charset check.
func ValidateBadgeID(b Badge) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return errors.New("empty badge id")
	}
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return errors.New("invalid badge id")
	}
	return nil
}
