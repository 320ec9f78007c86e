package engine

import (
	"context"

	"xpkit/core"
)

// Storage abstracts persistence for player XP state and named counters.
// The counter/stat primitives back host-side condition evaluation; the XP
// methods are the engine's own read-modify-write surface. Implementations
// must serialize concurrent mutations per user or expose atomic increments.
type Storage interface {
	AddXP(ctx context.Context, user core.UserID, delta int64) (newTotal int64, err error)
	GetState(ctx context.Context, user core.UserID) (core.PlayerState, error)
	SetLevel(ctx context.Context, user core.UserID, level int64) error

	GetCounter(ctx context.Context, user core.UserID, key string) (int64, error)
	SetStat(ctx context.Context, user core.UserID, key string, value int64) error
	GetStats(ctx context.Context, user core.UserID) (map[string]int64, error)
}
