package core

import (
	"errors"
	"fmt"
	"math"
)

// CurveKind selects how level-up costs grow.
type CurveKind string

const (
	CurveLinear      CurveKind = "linear"
	CurveExponential CurveKind = "exponential"
	CurveCustom      CurveKind = "custom"
)

// LevelingCurve maps accumulated XP to levels. It is immutable after
// construction; share one instance across goroutines freely.
type LevelingCurve struct {
	kind       CurveKind
	baseXP     int64
	multiplier float64
	maxLevel   int64
	thresholds []int64
}

// NewLinearCurve builds a curve where every level-up costs exactly baseXP.
func NewLinearCurve(baseXP int64, maxLevel int64) (*LevelingCurve, error) {
	if baseXP <= 0 {
		return nil, errors.New("leveling curve: base XP must be positive")
	}
	if maxLevel < 1 {
		return nil, errors.New("leveling curve: max level must be >= 1")
	}
	return &LevelingCurve{kind: CurveLinear, baseXP: baseXP, maxLevel: maxLevel}, nil
}

// NewExponentialCurve builds a curve where the cost to go from level L to L+1
// is baseXP * multiplier^(L-1), so level 2 costs exactly baseXP.
func NewExponentialCurve(baseXP int64, multiplier float64, maxLevel int64) (*LevelingCurve, error) {
	if baseXP <= 0 {
		return nil, errors.New("leveling curve: base XP must be positive")
	}
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return nil, errors.New("leveling curve: multiplier must be a positive finite number")
	}
	if maxLevel < 1 {
		return nil, errors.New("leveling curve: max level must be >= 1")
	}
	return &LevelingCurve{kind: CurveExponential, baseXP: baseXP, multiplier: multiplier, maxLevel: maxLevel}, nil
}

// NewCustomCurve builds a curve from explicit cumulative thresholds.
// thresholds[i] is the total XP required to reach level i+2; the sequence
// must be non-decreasing. The attainable level is capped at
// len(thresholds)+1 and then by maxLevel.
func NewCustomCurve(thresholds []int64, maxLevel int64) (*LevelingCurve, error) {
	if len(thresholds) == 0 {
		return nil, errors.New("leveling curve: custom thresholds cannot be empty")
	}
	if maxLevel < 1 {
		return nil, errors.New("leveling curve: max level must be >= 1")
	}
	cp := make([]int64, len(thresholds))
	copy(cp, thresholds)
	prev := int64(0)
	for i, t := range cp {
		if t < prev {
			return nil, fmt.Errorf("leveling curve: threshold %d (%d) decreases below %d", i, t, prev)
		}
		prev = t
	}
	return &LevelingCurve{kind: CurveCustom, thresholds: cp, maxLevel: maxLevel}, nil
}

// Kind reports which curve family this is.
func (c *LevelingCurve) Kind() CurveKind { return c.kind }

// MaxLevel reports the configured level ceiling.
func (c *LevelingCurve) MaxLevel() int64 { return c.maxLevel }

// highestLevel is the effective level cap: maxLevel, further limited by the
// custom threshold table when present.
func (c *LevelingCurve) highestLevel() int64 {
	if c.kind == CurveCustom {
		if top := int64(len(c.thresholds)) + 1; top < c.maxLevel {
			return top
		}
	}
	return c.maxLevel
}

// Level returns the level reached with totalXP. Non-positive XP is level 1.
//
// The search accumulates per-level costs ascending from level 2; the
// accumulated sum is the source of truth and matches TotalXPForLevel exactly.
// Termination is strict: exactly matching a threshold reaches the level.
func (c *LevelingCurve) Level(totalXP int64) int64 {
	if totalXP <= 0 {
		return 1
	}
	top := c.highestLevel()
	level := int64(1)
	var accumulated int64
	cost := float64(c.baseXP)
	for level < top {
		need := c.stepCost(level, cost, accumulated)
		if accumulated+need > totalXP {
			break
		}
		accumulated += need
		level++
		cost *= c.multiplier
	}
	return level
}

// stepCost is the XP needed to go from level to level+1. For the exponential
// curve the running cost is carried by the caller so repeated calls follow
// the same ascending multiplication order everywhere.
func (c *LevelingCurve) stepCost(level int64, runningCost float64, accumulated int64) int64 {
	switch c.kind {
	case CurveLinear:
		return c.baseXP
	case CurveExponential:
		return int64(math.Round(runningCost))
	case CurveCustom:
		// cumulative XP for level+1 sits at thresholds[level-1]
		return c.thresholds[level-1] - accumulated
	}
	return 0
}

// XPForLevel returns the incremental XP required to advance from level-1 to
// level. Level 1 and below cost nothing.
func (c *LevelingCurve) XPForLevel(level int64) int64 {
	if level <= 1 || level > c.highestLevel() {
		return 0
	}
	switch c.kind {
	case CurveLinear:
		return c.baseXP
	case CurveCustom:
		if level == 2 {
			return c.thresholds[0]
		}
		return c.thresholds[level-2] - c.thresholds[level-3]
	}
	cost := float64(c.baseXP)
	for l := int64(2); l < level; l++ {
		cost *= c.multiplier
	}
	return int64(math.Round(cost))
}

// TotalXPForLevel returns the cumulative XP required to reach level,
// summing per-level costs ascending from level 2.
func (c *LevelingCurve) TotalXPForLevel(level int64) int64 {
	if level <= 1 {
		return 0
	}
	if top := c.highestLevel(); level > top {
		level = top
	}
	if c.kind == CurveCustom {
		return c.thresholds[level-2]
	}
	var total int64
	cost := float64(c.baseXP)
	for l := int64(2); l <= level; l++ {
		if c.kind == CurveLinear {
			total += c.baseXP
		} else {
			total += int64(math.Round(cost))
			cost *= c.multiplier
		}
	}
	return total
}

// Progress reports how far into the current level band totalXP sits, in
// [0, 1]. At the effective level cap, or when the band has zero width
// (duplicate custom thresholds), it is exactly 1.
func (c *LevelingCurve) Progress(totalXP int64) float64 {
	level := c.Level(totalXP)
	if level >= c.highestLevel() {
		return 1.0
	}
	bandStart := c.TotalXPForLevel(level)
	width := c.XPForLevel(level + 1)
	if width <= 0 {
		return 1.0
	}
	earned := totalXP - bandStart
	if earned <= 0 {
		return 0.0
	}
	p := float64(earned) / float64(width)
	if p > 1.0 {
		return 1.0
	}
	return p
}
