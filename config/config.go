package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xpkit/adapters/redis"
	"xpkit/adapters/sqlx"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete toolkit configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"XPKIT_ENV"`
	Profile     string      `json:"profile" env:"XPKIT_PROFILE"`

	// Leveling curve configuration
	Leveling LevelingConfig `json:"leveling"`

	// Anti-abuse rule configuration
	Rules RulesConfig `json:"rules"`

	// Boost stacking configuration
	Boosts BoostsConfig `json:"boosts"`

	// Leaderboard and tier configuration
	Leaderboard LeaderboardConfig `json:"leaderboard"`

	// Streak definitions
	Streaks []StreakConfig `json:"streaks,omitempty"`

	// Event dispatch configuration
	Events EventsConfig `json:"events"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`
}

// LevelingConfig describes the progression curve.
type LevelingConfig struct {
	Kind             string  `json:"kind" env:"XPKIT_LEVELING_KIND"`
	BaseXP           int64   `json:"base_xp" env:"XPKIT_LEVELING_BASE_XP"`
	Multiplier       float64 `json:"multiplier" env:"XPKIT_LEVELING_MULTIPLIER"`
	MaxLevel         int64   `json:"max_level" env:"XPKIT_LEVELING_MAX_LEVEL"`
	CustomThresholds []int64 `json:"custom_thresholds,omitempty" env:"XPKIT_LEVELING_CUSTOM_THRESHOLDS"`
}

// RulesConfig describes anti-abuse limits. Zero values disable a limit.
// Cooldowns maps action names to duration strings ("30s", "5m").
type RulesConfig struct {
	MaxDailyXP        int64             `json:"max_daily_xp" env:"XPKIT_RULES_MAX_DAILY_XP"`
	MaxActionsPerHour int64             `json:"max_actions_per_hour" env:"XPKIT_RULES_MAX_ACTIONS_PER_HOUR"`
	Cooldowns         map[string]string `json:"cooldowns,omitempty" env:"XPKIT_RULES_COOLDOWNS"`
}

// BoostsConfig describes boost stacking limits.
type BoostsConfig struct {
	MaxStackable  int     `json:"max_stackable" env:"XPKIT_BOOSTS_MAX_STACKABLE"`
	MaxMultiplier float64 `json:"max_multiplier" env:"XPKIT_BOOSTS_MAX_MULTIPLIER"`
}

// LeaderboardConfig describes ranking periods and tier boundaries.
type LeaderboardConfig struct {
	Periods       []string     `json:"periods" env:"XPKIT_LEADERBOARD_PERIODS"`
	DefaultPeriod string       `json:"default_period" env:"XPKIT_LEADERBOARD_DEFAULT_PERIOD"`
	Tiers         []TierConfig `json:"tiers,omitempty"`
}

// TierConfig describes a single percentile tier.
type TierConfig struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Icon          string  `json:"icon,omitempty"`
	MaxPercentile float64 `json:"max_percentile"`
}

// StreakConfig describes one tracked streak.
type StreakConfig struct {
	ID          string            `json:"id"`
	Period      string            `json:"period"`
	GracePeriod time.Duration     `json:"grace_period"`
	Milestones  []MilestoneConfig `json:"milestones,omitempty"`
}

// MilestoneConfig describes a streak milestone reward.
type MilestoneConfig struct {
	Days    int    `json:"days"`
	XPBonus int64  `json:"xp_bonus,omitempty"`
	Badge   string `json:"badge,omitempty"`
}

// EventsConfig describes event bus dispatch.
type EventsConfig struct {
	Dispatch string `json:"dispatch" env:"XPKIT_EVENTS_DISPATCH"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" env:"XPKIT_STORAGE_ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty"`
	SQL     sqlx.Config  `json:"sql,omitempty"`
	File    FileConfig   `json:"file,omitempty"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" env:"XPKIT_STORAGE_FILE_PATH"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"XPKIT_LOG_LEVEL"`
	Format     string            `json:"format" env:"XPKIT_LOG_FORMAT"`
	Output     string            `json:"output" env:"XPKIT_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load from environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadProfile returns the default configuration adjusted for a named
// environment profile.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	switch Environment(name) {
	case EnvDevelopment:
		cfg.Environment = EnvDevelopment
	case EnvTesting:
		cfg.Environment = EnvTesting
		cfg.Events.Dispatch = "sync"
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.Logging.Level = "debug"
	case EnvProduction:
		cfg.Environment = EnvProduction
		cfg.Events.Dispatch = "async"
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	cfg.Profile = name
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(path string) (*Config, error) {
	// Validate the path for security
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	// Open the file safely after validation
	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Environment variables override file values
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Leveling: LevelingConfig{
			Kind:       "linear",
			BaseXP:     100,
			Multiplier: 1.5,
			MaxLevel:   100,
		},
		Rules: RulesConfig{
			MaxDailyXP:        0,
			MaxActionsPerHour: 0,
		},
		Boosts: BoostsConfig{
			MaxStackable:  3,
			MaxMultiplier: 5.0,
		},
		Leaderboard: LeaderboardConfig{
			Periods:       []string{"daily", "weekly", "monthly", "alltime"},
			DefaultPeriod: "alltime",
			Tiers: []TierConfig{
				{ID: "bronze", Name: "Bronze", Icon: "🥉", MaxPercentile: 0.5},
				{ID: "silver", Name: "Silver", Icon: "🥈", MaxPercentile: 0.8},
				{ID: "gold", Name: "Gold", Icon: "🥇", MaxPercentile: 0.95},
				{ID: "diamond", Name: "Diamond", Icon: "💎", MaxPercentile: 1.0},
			},
		},
		Streaks: []StreakConfig{
			{ID: "daily", Period: "daily", GracePeriod: 6 * time.Hour},
		},
		Events: EventsConfig{
			Dispatch: "sync",
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/xpkit.json",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	// Validate environment
	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	// Validate leveling config
	if err := c.Leveling.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("leveling config: %v", err))
	}

	// Validate rules config
	if err := c.Rules.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rules config: %v", err))
	}

	// Validate boosts config
	if err := c.Boosts.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("boosts config: %v", err))
	}

	// Validate leaderboard config
	if err := c.Leaderboard.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("leaderboard config: %v", err))
	}

	// Validate streak configs
	for i, s := range c.Streaks {
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("streaks[%d]: %v", i, err))
		}
	}

	// Validate events config
	if err := c.Events.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("events config: %v", err))
	}

	// Validate storage config
	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	// Validate logging config
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	// Create a copy for redaction
	cfg := *c

	// Redact sensitive information
	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
