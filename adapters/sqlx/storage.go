// Package sqlx provides a SQL-backed storage implementation built on
// jmoiron/sqlx. It works against Postgres and MySQL and expects the
// following tables to exist:
//
//	player_xp      (user_id PK, total_xp, level, created_at, updated_at)
//	player_stats   (user_id, stat, value, created_at, updated_at) PK (user_id, stat)
//	player_streaks (user_id, streak_id, current, best, last_recorded_at) PK (user_id, streak_id)
//	player_boosts  (user_id, boost_id, multiplier, activated_at, duration_ns, reason)
//
// Schema management (migrations, DDL) is left to the host application.
package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// database drivers registered for New()
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"xpkit/boost"
	"xpkit/core"
	"xpkit/streak"
)

// Driver identifies the SQL dialect in use.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL storage configuration.
type Config struct {
	Driver          Driver        `json:"driver" env:"XPKIT_SQL_DRIVER"`
	DSN             string        `json:"dsn" env:"XPKIT_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" env:"XPKIT_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"XPKIT_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"XPKIT_SQL_CONN_MAX_LIFETIME"`
}

// DefaultConfig returns sensible pool defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store is a SQL-backed storage implementation.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New opens a connection pool using the config DSN.
func New(cfg Config) (*Store, error) {
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverMySQL {
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("dsn is required")
	}
	db, err := sqlx.Connect(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return NewWithDB(db, cfg.Driver), nil
}

// NewWithDB wraps an existing sqlx.DB. Useful for tests and shared pools.
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) AddXP(ctx context.Context, user core.UserID, delta int64) (int64, error) {
	if delta == 0 {
		return 0, errors.New("delta must be non-zero")
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	err = tx.GetContext(ctx, &current,
		s.db.Rebind(`SELECT total_xp FROM player_xp WHERE user_id = ?`), user)
	now := time.Now().UTC()
	switch {
	case errors.Is(err, sql.ErrNoRows):
		next, aerr := core.AddSafe(0, delta)
		if aerr != nil {
			return 0, aerr
		}
		if _, err := tx.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO player_xp (user_id, total_xp, level, created_at, updated_at) VALUES (?, ?, 0, ?, ?)`),
			user, next, now, now); err != nil {
			return 0, fmt.Errorf("insert xp: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("commit: %w", err)
		}
		return next, nil
	case err != nil:
		return 0, fmt.Errorf("select xp: %w", err)
	}

	next, err := core.AddSafe(current, delta)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		s.db.Rebind(`UPDATE player_xp SET total_xp = ?, updated_at = ? WHERE user_id = ?`),
		next, now, user); err != nil {
		return 0, fmt.Errorf("update xp: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func (s *Store) GetState(ctx context.Context, user core.UserID) (core.PlayerState, error) {
	state := core.PlayerState{UserID: user, Stats: map[string]int64{}}

	var row struct {
		TotalXP   int64     `db:"total_xp"`
		Level     int64     `db:"level"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT total_xp, level, updated_at FROM player_xp WHERE user_id = ?`), user)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// unknown user reads as zero state
	case err != nil:
		return core.PlayerState{}, fmt.Errorf("select xp: %w", err)
	default:
		state.TotalXP = row.TotalXP
		state.Level = row.Level
		state.Updated = row.UpdatedAt
	}

	rows, err := s.db.QueryxContext(ctx,
		s.db.Rebind(`SELECT stat, value FROM player_stats WHERE user_id = ?`), user)
	if err != nil {
		return core.PlayerState{}, fmt.Errorf("select stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var stat string
		var value int64
		if err := rows.Scan(&stat, &value); err != nil {
			return core.PlayerState{}, fmt.Errorf("scan stat: %w", err)
		}
		state.Stats[stat] = value
	}
	if err := rows.Err(); err != nil {
		return core.PlayerState{}, fmt.Errorf("iterate stats: %w", err)
	}
	return state, nil
}

func (s *Store) SetLevel(ctx context.Context, user core.UserID, level int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.GetContext(ctx, &exists,
		s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM player_xp WHERE user_id = ?)`), user); err != nil {
		return fmt.Errorf("select exists: %w", err)
	}
	now := time.Now().UTC()
	if exists {
		_, err = tx.ExecContext(ctx,
			s.db.Rebind(`UPDATE player_xp SET level = ?, updated_at = ? WHERE user_id = ?`),
			level, now, user)
	} else {
		_, err = tx.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO player_xp (user_id, total_xp, level, created_at, updated_at) VALUES (?, 0, ?, ?, ?)`),
			user, level, now, now)
	}
	if err != nil {
		return fmt.Errorf("write level: %w", err)
	}
	return tx.Commit()
}

func (s *Store) GetCounter(ctx context.Context, user core.UserID, key string) (int64, error) {
	var value int64
	err := s.db.GetContext(ctx, &value,
		s.db.Rebind(`SELECT value FROM player_stats WHERE user_id = ? AND stat = ?`), user, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select stat: %w", err)
	}
	return value, nil
}

func (s *Store) SetStat(ctx context.Context, user core.UserID, key string, value int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.GetContext(ctx, &exists,
		s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM player_stats WHERE user_id = ? AND stat = ?)`), user, key); err != nil {
		return fmt.Errorf("select exists: %w", err)
	}
	now := time.Now().UTC()
	if exists {
		_, err = tx.ExecContext(ctx,
			s.db.Rebind(`UPDATE player_stats SET value = ?, updated_at = ? WHERE user_id = ? AND stat = ?`),
			value, now, user, key)
	} else {
		_, err = tx.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO player_stats (user_id, stat, value, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
			user, key, value, now, now)
	}
	if err != nil {
		return fmt.Errorf("write stat: %w", err)
	}
	return tx.Commit()
}

func (s *Store) GetStats(ctx context.Context, user core.UserID) (map[string]int64, error) {
	rows, err := s.db.QueryxContext(ctx,
		s.db.Rebind(`SELECT stat, value FROM player_stats WHERE user_id = ?`), user)
	if err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var stat string
		var value int64
		if err := rows.Scan(&stat, &value); err != nil {
			return nil, fmt.Errorf("scan stat: %w", err)
		}
		out[stat] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return out, nil
}

func (s *Store) Streak(ctx context.Context, user core.UserID, streakID string) (streak.State, bool, error) {
	var row struct {
		Current        int          `db:"current"`
		Best           int          `db:"best"`
		LastRecordedAt sql.NullTime `db:"last_recorded_at"`
	}
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT current, best, last_recorded_at FROM player_streaks WHERE user_id = ? AND streak_id = ?`),
		user, streakID)
	if errors.Is(err, sql.ErrNoRows) {
		return streak.State{}, false, nil
	}
	if err != nil {
		return streak.State{}, false, fmt.Errorf("select streak: %w", err)
	}
	st := streak.State{Current: row.Current, Best: row.Best}
	if row.LastRecordedAt.Valid {
		at := row.LastRecordedAt.Time.UTC()
		st.LastRecordedAt = &at
	}
	return st, true, nil
}

func (s *Store) SaveStreak(ctx context.Context, user core.UserID, streakID string, st streak.State) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.GetContext(ctx, &exists,
		s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM player_streaks WHERE user_id = ? AND streak_id = ?)`),
		user, streakID); err != nil {
		return fmt.Errorf("select exists: %w", err)
	}
	var last sql.NullTime
	if st.LastRecordedAt != nil {
		last = sql.NullTime{Time: st.LastRecordedAt.UTC(), Valid: true}
	}
	if exists {
		_, err = tx.ExecContext(ctx,
			s.db.Rebind(`UPDATE player_streaks SET current = ?, best = ?, last_recorded_at = ? WHERE user_id = ? AND streak_id = ?`),
			st.Current, st.Best, last, user, streakID)
	} else {
		_, err = tx.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO player_streaks (user_id, streak_id, current, best, last_recorded_at) VALUES (?, ?, ?, ?, ?)`),
			user, streakID, st.Current, st.Best, last)
	}
	if err != nil {
		return fmt.Errorf("write streak: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Boosts(ctx context.Context, user core.UserID) ([]boost.Boost, error) {
	rows, err := s.db.QueryxContext(ctx,
		s.db.Rebind(`SELECT boost_id, multiplier, activated_at, duration_ns, reason FROM player_boosts WHERE user_id = ?`),
		user)
	if err != nil {
		return nil, fmt.Errorf("select boosts: %w", err)
	}
	defer rows.Close()
	var out []boost.Boost
	for rows.Next() {
		var (
			b          boost.Boost
			durationNS int64
		)
		if err := rows.Scan(&b.ID, &b.Multiplier, &b.ActivatedAt, &durationNS, &b.Reason); err != nil {
			return nil, fmt.Errorf("scan boost: %w", err)
		}
		b.ActivatedAt = b.ActivatedAt.UTC()
		b.Duration = time.Duration(durationNS)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boosts: %w", err)
	}
	return out, nil
}

func (s *Store) SaveBoost(ctx context.Context, user core.UserID, b boost.Boost) error {
	if _, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO player_boosts (user_id, boost_id, multiplier, activated_at, duration_ns, reason) VALUES (?, ?, ?, ?, ?, ?)`),
		user, b.ID, b.Multiplier, b.ActivatedAt.UTC(), int64(b.Duration), b.Reason); err != nil {
		return fmt.Errorf("insert boost: %w", err)
	}
	return nil
}

var (
	_ streak.Store = (*Store)(nil)
	_ boost.Store  = (*Store)(nil)
)
