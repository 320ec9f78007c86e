// Package leaderboard maintains per-period XP standings and assigns
// percentile-based tiers with promotion/demotion detection.
package leaderboard

import "xpkit/core"

// Entry represents one player's standing score.
type Entry struct {
	User core.UserID
	XP   int64
}

// Period names a standings window such as daily, weekly, or alltime.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "alltime"
)

// Board abstracts a sorted standings store. Entries are ordered by XP
// descending with stable tie-breaking on user id.
type Board interface {
	Update(user core.UserID, xp int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
	Standings() []Entry
	Len() int
}
