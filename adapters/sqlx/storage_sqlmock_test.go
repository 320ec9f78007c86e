package sqlx_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "xpkit/adapters/sqlx"
	"xpkit/boost"
	"xpkit/core"
	"xpkit/streak"
)

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, "postgres"), storage.DriverPostgres)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func TestSQLMock_AddXP_Insert(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	user := core.UserID("u1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT total_xp FROM player_xp`).
		WithArgs(user).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO player_xp`).
		WithArgs(user, int64(10), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	total, err := store.AddXP(ctx, user, 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddXP_Update(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	user := core.UserID("u1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT total_xp FROM player_xp`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"total_xp"}).AddRow(40))
	mock.ExpectExec(`UPDATE player_xp SET total_xp`).
		WithArgs(int64(55), sqlmock.AnyArg(), user).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	total, err := store.AddXP(ctx, user, 15)
	require.NoError(t, err)
	require.Equal(t, int64(55), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetState(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	user := core.UserID("u1")

	mock.ExpectQuery(`SELECT total_xp, level, updated_at FROM player_xp`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"total_xp", "level", "updated_at"}).
			AddRow(150, 2, time.Now().UTC()))

	mock.ExpectQuery(`SELECT stat, value FROM player_stats`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"stat", "value"}).
			AddRow("quizzes", 4).
			AddRow("logins", 12))

	state, err := store.GetState(ctx, user)
	require.NoError(t, err)
	require.Equal(t, int64(150), state.TotalXP)
	require.Equal(t, int64(2), state.Level)
	require.Equal(t, int64(4), state.Stats["quizzes"])
	require.Equal(t, int64(12), state.Stats["logins"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SetLevel_Insert(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	user := core.UserID("u1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO player_xp`).
		WithArgs(user, int64(2), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SetLevel(ctx, user, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SetStat_Update(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	user := core.UserID("u1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(user, "quizzes").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`UPDATE player_stats SET value`).
		WithArgs(int64(9), sqlmock.AnyArg(), user, "quizzes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SetStat(ctx, user, "quizzes", 9))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_StreakRoundTrip(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	user := core.UserID("u1")
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(user, "daily").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO player_streaks`).
		WithArgs(user, "daily", 3, 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveStreak(ctx, user, "daily", streak.State{Current: 3, Best: 7, LastRecordedAt: &now}))

	mock.ExpectQuery(`SELECT current, best, last_recorded_at FROM player_streaks`).
		WithArgs(user, "daily").
		WillReturnRows(sqlmock.NewRows([]string{"current", "best", "last_recorded_at"}).
			AddRow(3, 7, now))

	st, found, err := store.Streak(ctx, user, "daily")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 3, st.Current)
	require.Equal(t, 7, st.Best)
	require.NotNil(t, st.LastRecordedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Boosts(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	user := core.UserID("u1")
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO player_boosts`).
		WithArgs(user, "weekend", 2.0, sqlmock.AnyArg(), int64(time.Hour), "weekend event").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.SaveBoost(ctx, user, boost.Boost{
		ID: "weekend", Multiplier: 2.0, ActivatedAt: now, Duration: time.Hour, Reason: "weekend event",
	}))

	mock.ExpectQuery(`SELECT boost_id, multiplier, activated_at, duration_ns, reason FROM player_boosts`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"boost_id", "multiplier", "activated_at", "duration_ns", "reason"}).
			AddRow("weekend", 2.0, now, int64(time.Hour), "weekend event"))

	boosts, err := store.Boosts(ctx, user)
	require.NoError(t, err)
	require.Len(t, boosts, 1)
	require.Equal(t, "weekend", boosts[0].ID)
	require.Equal(t, time.Hour, boosts[0].Duration)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddXP_ZeroDelta(t *testing.T) {
	store, _, cleanup := newMockStore(t)
	defer cleanup()

	_, err := store.AddXP(context.Background(), "u1", 0)
	require.Error(t, err)
}
