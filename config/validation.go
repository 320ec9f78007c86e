package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate validates leveling configuration
func (l *LevelingConfig) Validate() error {
	var errs []string

	switch l.Kind {
	case "linear":
		if l.BaseXP <= 0 {
			errs = append(errs, "base_xp must be positive for linear curves")
		}
	case "exponential":
		if l.BaseXP <= 0 {
			errs = append(errs, "base_xp must be positive for exponential curves")
		}
		if l.Multiplier <= 1.0 {
			errs = append(errs, "multiplier must be greater than 1.0 for exponential curves")
		}
	case "custom":
		if len(l.CustomThresholds) == 0 {
			errs = append(errs, "custom_thresholds cannot be empty for custom curves")
		}
		for i, th := range l.CustomThresholds {
			if th <= 0 {
				errs = append(errs, fmt.Sprintf("custom_thresholds[%d] must be positive", i))
				break
			}
		}
	default:
		errs = append(errs, "kind must be one of: linear, exponential, custom")
	}

	if l.MaxLevel <= 0 {
		errs = append(errs, "max_level must be positive")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// Validate validates anti-abuse rule configuration
func (r *RulesConfig) Validate() error {
	var errs []string

	if r.MaxDailyXP < 0 {
		errs = append(errs, "max_daily_xp cannot be negative")
	}

	if r.MaxActionsPerHour < 0 {
		errs = append(errs, "max_actions_per_hour cannot be negative")
	}

	for action, raw := range r.Cooldowns {
		if strings.TrimSpace(action) == "" {
			errs = append(errs, "cooldown action name cannot be empty")
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("cooldowns[%s]: invalid duration %q", action, raw))
			continue
		}
		if d < 0 {
			errs = append(errs, fmt.Sprintf("cooldowns[%s] cannot be negative", action))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// Validate validates boost configuration
func (b *BoostsConfig) Validate() error {
	var errs []string

	if b.MaxStackable <= 0 {
		errs = append(errs, "max_stackable must be positive")
	}

	if b.MaxMultiplier < 1.0 {
		errs = append(errs, "max_multiplier must be at least 1.0")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

var validPeriods = []string{"daily", "weekly", "monthly", "alltime"}

// Validate validates leaderboard configuration
func (l *LeaderboardConfig) Validate() error {
	var errs []string

	if len(l.Periods) == 0 {
		errs = append(errs, "periods cannot be empty")
	}
	seen := map[string]bool{}
	for _, p := range l.Periods {
		if !isValidPeriod(p) {
			errs = append(errs, fmt.Sprintf("period must be one of: %s", strings.Join(validPeriods, ", ")))
			continue
		}
		if seen[p] {
			errs = append(errs, fmt.Sprintf("duplicate period %q", p))
		}
		seen[p] = true
	}

	if l.DefaultPeriod != "" && !seen[l.DefaultPeriod] {
		errs = append(errs, fmt.Sprintf("default_period %q is not in periods", l.DefaultPeriod))
	}

	prev := 0.0
	tierIDs := map[string]bool{}
	for i, tier := range l.Tiers {
		if strings.TrimSpace(tier.ID) == "" {
			errs = append(errs, fmt.Sprintf("tiers[%d]: id cannot be empty", i))
		}
		if tierIDs[tier.ID] {
			errs = append(errs, fmt.Sprintf("tiers[%d]: duplicate id %q", i, tier.ID))
		}
		tierIDs[tier.ID] = true
		if tier.MaxPercentile <= prev || tier.MaxPercentile > 1.0 {
			errs = append(errs, fmt.Sprintf("tiers[%d]: max_percentile must be strictly increasing within (0, 1]", i))
		}
		prev = tier.MaxPercentile
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func isValidPeriod(p string) bool {
	for _, v := range validPeriods {
		if p == v {
			return true
		}
	}
	return false
}

// Validate validates a streak definition
func (s *StreakConfig) Validate() error {
	var errs []string

	if strings.TrimSpace(s.ID) == "" {
		errs = append(errs, "id cannot be empty")
	}

	if s.Period != "daily" && s.Period != "weekly" {
		errs = append(errs, "period must be one of: daily, weekly")
	}

	if s.GracePeriod < 0 {
		errs = append(errs, "grace_period cannot be negative")
	}

	for i, m := range s.Milestones {
		if m.Days <= 0 {
			errs = append(errs, fmt.Sprintf("milestones[%d]: days must be positive", i))
		}
		if m.XPBonus < 0 {
			errs = append(errs, fmt.Sprintf("milestones[%d]: xp_bonus cannot be negative", i))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// Validate validates event dispatch configuration
func (e *EventsConfig) Validate() error {
	if e.Dispatch != "sync" && e.Dispatch != "async" {
		return errors.New("dispatch must be one of: sync, async")
	}
	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	var errs []string

	validAdapters := []string{"memory", "redis", "sql", "file"}
	isValidAdapter := false
	for _, adapter := range validAdapters {
		if s.Adapter == adapter {
			isValidAdapter = true
			break
		}
	}

	if !isValidAdapter {
		errs = append(errs, fmt.Sprintf("adapter must be one of: %s", strings.Join(validAdapters, ", ")))
	}

	// Validate adapter-specific configs
	switch s.Adapter {
	case "file":
		if err := s.File.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("file config: %v", err))
		}
	case "sql":
		if s.SQL.DSN == "" {
			errs = append(errs, "sql config: dsn cannot be empty")
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// Validate validates file storage configuration
func (f *FileConfig) Validate() error {
	if f.Path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	var errs []string

	validLevels := []string{"debug", "info", "warn", "error"}
	isValidLevel := false
	for _, level := range validLevels {
		if l.Level == level {
			isValidLevel = true
			break
		}
	}

	if !isValidLevel {
		errs = append(errs, fmt.Sprintf("level must be one of: %s", strings.Join(validLevels, ", ")))
	}

	validFormats := []string{"json", "text"}
	isValidFormat := false
	for _, format := range validFormats {
		if l.Format == format {
			isValidFormat = true
			break
		}
	}

	if !isValidFormat {
		errs = append(errs, fmt.Sprintf("format must be one of: %s", strings.Join(validFormats, ", ")))
	}

	validOutputs := []string{"stdout", "stderr"}
	isValidOutput := false
	for _, output := range validOutputs {
		if l.Output == output {
			isValidOutput = true
			break
		}
	}

	if !isValidOutput {
		errs = append(errs, fmt.Sprintf("output must be one of: %s", strings.Join(validOutputs, ", ")))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}
