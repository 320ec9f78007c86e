// Package redis implements the xpkit store contracts on Redis. XP totals
// use an atomic Lua increment, streaks and boosts live in hashes, and the
// rate-limit windows are TTL counters, which makes them survive restarts
// and work across horizontally scaled instances.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"xpkit/boost"
	"xpkit/core"
	"xpkit/rules"
	"xpkit/streak"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements engine.Storage, streak.Store, boost.Store, and
// rules.WindowStore using Redis as the backend.
// Data structure:
// - user:{user_id}:xp -> int64 (XP total)
// - user:{user_id}:level -> int64 (cached level)
// - user:{user_id}:stats -> hash of stat name -> int64
// - user:{user_id}:streaks -> hash of streak id -> JSON streak state
// - user:{user_id}:boosts -> hash of boost id -> JSON boost
// - rl:{user_id}:daily:{day} -> int64 TTL counter (daily XP window)
// - rl:{user_id}:hourly:{hour} -> int64 TTL counter (hourly action window)
// - rl:{user_id}:last:{action} -> RFC3339Nano last-performed instant
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func userXPKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:xp", userID)
}

func userLevelKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:level", userID)
}

func userStatsKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:stats", userID)
}

func userStreaksKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:streaks", userID)
}

func userBoostsKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:boosts", userID)
}

func dailyWindowKey(userID core.UserID, dayKey string) string {
	return fmt.Sprintf("rl:%s:daily:%s", userID, dayKey)
}

func hourlyWindowKey(userID core.UserID, hourKey string) string {
	return fmt.Sprintf("rl:%s:hourly:%s", userID, hourKey)
}

func lastActionKey(userID core.UserID, action core.Action) string {
	return fmt.Sprintf("rl:%s:last:%s", userID, action)
}

// Lua script for atomic XP addition with overflow protection
var addXPScript = redis.NewScript(`
	local key = KEYS[1]
	local delta = tonumber(ARGV[1])
	local current = tonumber(redis.call('GET', key) or '0')
	local next_val = current + delta

	-- Check for overflow (simplified check for large numbers)
	if next_val > 9223372036854775807 or next_val < -9223372036854775808 then
		return redis.error_reply('integer overflow')
	end

	redis.call('SET', key, next_val)
	return next_val
`)

// AddXP atomically adds XP to a user's total with overflow protection
func (s *Store) AddXP(ctx context.Context, userID core.UserID, delta int64) (int64, error) {
	result, err := addXPScript.Run(ctx, s.client, []string{userXPKey(userID)}, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to add XP: %w", err)
	}
	total, ok := result.(int64)
	if !ok {
		return 0, errors.New("unexpected result type from Redis script")
	}
	return total, nil
}

// GetState retrieves the player's XP snapshot
func (s *Store) GetState(ctx context.Context, userID core.UserID) (core.PlayerState, error) {
	state := core.PlayerState{
		UserID:  userID,
		Stats:   make(map[string]int64),
		Updated: time.Now().UTC(),
	}

	xp, err := s.client.Get(ctx, userXPKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return core.PlayerState{}, fmt.Errorf("failed to get XP: %w", err)
	}
	state.TotalXP = xp

	level, err := s.client.Get(ctx, userLevelKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return core.PlayerState{}, fmt.Errorf("failed to get level: %w", err)
	}
	state.Level = level

	stats, err := s.client.HGetAll(ctx, userStatsKey(userID)).Result()
	if err != nil {
		return core.PlayerState{}, fmt.Errorf("failed to get stats: %w", err)
	}
	for k, raw := range stats {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue // Skip invalid entries
		}
		state.Stats[k] = v
	}
	return state, nil
}

// SetLevel sets the user's cached level
func (s *Store) SetLevel(ctx context.Context, userID core.UserID, level int64) error {
	if err := s.client.Set(ctx, userLevelKey(userID), level, 0).Err(); err != nil {
		return fmt.Errorf("failed to set level: %w", err)
	}
	return nil
}

// GetCounter reads a single named counter
func (s *Store) GetCounter(ctx context.Context, userID core.UserID, key string) (int64, error) {
	v, err := s.client.HGet(ctx, userStatsKey(userID), key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counter: %w", err)
	}
	return v, nil
}

// SetStat writes a single named stat
func (s *Store) SetStat(ctx context.Context, userID core.UserID, key string, value int64) error {
	if err := s.client.HSet(ctx, userStatsKey(userID), key, value).Err(); err != nil {
		return fmt.Errorf("failed to set stat: %w", err)
	}
	return nil
}

// GetStats returns all named stats for the user
func (s *Store) GetStats(ctx context.Context, userID core.UserID) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, userStatsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	out := make(map[string]int64, len(raw))
	for k, rv := range raw {
		v, err := strconv.ParseInt(rv, 10, 64)
		if err != nil {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// Streak loads one streak state from the user's streak hash
func (s *Store) Streak(ctx context.Context, userID core.UserID, streakID string) (streak.State, bool, error) {
	data, err := s.client.HGet(ctx, userStreaksKey(userID), streakID).Bytes()
	if errors.Is(err, redis.Nil) {
		return streak.State{}, false, nil
	}
	if err != nil {
		return streak.State{}, false, fmt.Errorf("failed to get streak: %w", err)
	}
	var st streak.State
	if err := json.Unmarshal(data, &st); err != nil {
		return streak.State{}, false, fmt.Errorf("failed to decode streak: %w", err)
	}
	return st, true, nil
}

// SaveStreak stores one streak state in the user's streak hash
func (s *Store) SaveStreak(ctx context.Context, userID core.UserID, streakID string, st streak.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, userStreaksKey(userID), streakID, data).Err(); err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}

// Boosts returns every stored boost for the user, pruning expired entries
// opportunistically
func (s *Store) Boosts(ctx context.Context, userID core.UserID) ([]boost.Boost, error) {
	raw, err := s.client.HGetAll(ctx, userBoostsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get boosts: %w", err)
	}
	now := time.Now().UTC()
	out := make([]boost.Boost, 0, len(raw))
	var stale []string
	for id, data := range raw {
		var b boost.Boost
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			stale = append(stale, id)
			continue
		}
		if !b.Active(now) {
			stale = append(stale, id)
			continue
		}
		out = append(out, b)
	}
	if len(stale) > 0 {
		_ = s.client.HDel(ctx, userBoostsKey(userID), stale...).Err()
	}
	return out, nil
}

// SaveBoost stores one boost in the user's boost hash
func (s *Store) SaveBoost(ctx context.Context, userID core.UserID, b boost.Boost) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, userBoostsKey(userID), b.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to save boost: %w", err)
	}
	return nil
}

// Window TTLs: generous enough to outlive the window they key, tight
// enough to keep stale counters from accumulating.
const (
	dailyWindowTTL  = 48 * time.Hour
	hourlyWindowTTL = 2 * time.Hour
	lastActionTTL   = 7 * 24 * time.Hour
)

// DailyXP reads the TTL counter for the given UTC day window
func (s *Store) DailyXP(ctx context.Context, userID core.UserID, dayKey string) (int64, error) {
	v, err := s.client.Get(ctx, dailyWindowKey(userID, dayKey)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get daily window: %w", err)
	}
	return v, nil
}

// AddDailyXP atomically increments the daily window counter
func (s *Store) AddDailyXP(ctx context.Context, userID core.UserID, dayKey string, xp int64) error {
	key := dailyWindowKey(userID, dayKey)
	pipe := s.client.TxPipeline()
	pipe.IncrBy(ctx, key, xp)
	pipe.Expire(ctx, key, dailyWindowTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add daily XP: %w", err)
	}
	return nil
}

// HourlyActions reads the TTL counter for the given UTC hour window
func (s *Store) HourlyActions(ctx context.Context, userID core.UserID, hourKey string) (int64, error) {
	v, err := s.client.Get(ctx, hourlyWindowKey(userID, hourKey)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get hourly window: %w", err)
	}
	return v, nil
}

// IncrHourlyActions atomically increments the hourly window counter
func (s *Store) IncrHourlyActions(ctx context.Context, userID core.UserID, hourKey string) error {
	key := hourlyWindowKey(userID, hourKey)
	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, hourlyWindowTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment hourly actions: %w", err)
	}
	return nil
}

// LastAction reads the last-performed instant for an action
func (s *Store) LastAction(ctx context.Context, userID core.UserID, action core.Action) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, lastActionKey(userID, action)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last action: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse last action time: %w", err)
	}
	return at, true, nil
}

// SetLastAction stamps the last-performed instant for an action
func (s *Store) SetLastAction(ctx context.Context, userID core.UserID, action core.Action, at time.Time) error {
	key := lastActionKey(userID, action)
	if err := s.client.Set(ctx, key, at.UTC().Format(time.RFC3339Nano), lastActionTTL).Err(); err != nil {
		return fmt.Errorf("failed to set last action: %w", err)
	}
	return nil
}

var (
	_ streak.Store      = (*Store)(nil)
	_ boost.Store       = (*Store)(nil)
	_ rules.WindowStore = (*Store)(nil)
)
