package core

import "testing"

func TestLinearCurveScenario(t *testing.T) {
	c, err := NewLinearCurve(100, 50)
	if err != nil {
		t.Fatal(err)
	}
	if lvl := c.Level(50); lvl != 1 {
		t.Fatalf("50 XP should stay level 1, got %d", lvl)
	}
	if lvl := c.Level(110); lvl != 2 {
		t.Fatalf("110 XP should reach level 2, got %d", lvl)
	}
	// exact threshold reaches the level
	if lvl := c.Level(100); lvl != 2 {
		t.Fatalf("exactly 100 XP should reach level 2, got %d", lvl)
	}
	if lvl := c.Level(0); lvl != 1 {
		t.Fatalf("zero XP is level 1, got %d", lvl)
	}
	if lvl := c.Level(-5); lvl != 1 {
		t.Fatalf("negative XP is level 1, got %d", lvl)
	}
}

func TestExponentialCurveScenario(t *testing.T) {
	c, err := NewExponentialCurve(100, 1.5, 100)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.XPForLevel(2); got != 100 {
		t.Fatalf("XPForLevel(2)=%d, want 100", got)
	}
	if got := c.XPForLevel(3); got != 150 {
		t.Fatalf("XPForLevel(3)=%d, want 150", got)
	}
	if got := c.TotalXPForLevel(3); got != 250 {
		t.Fatalf("TotalXPForLevel(3)=%d, want 250", got)
	}
	if lvl := c.Level(250); lvl != 3 {
		t.Fatalf("250 XP should reach level 3, got %d", lvl)
	}
	if lvl := c.Level(249); lvl != 2 {
		t.Fatalf("249 XP should stay level 2, got %d", lvl)
	}
}

func TestCurveRoundTrip(t *testing.T) {
	curves := map[string]*LevelingCurve{}
	if c, err := NewLinearCurve(75, 40); err == nil {
		curves["linear"] = c
	}
	if c, err := NewExponentialCurve(100, 1.5, 40); err == nil {
		curves["exponential"] = c
	}
	for name, c := range curves {
		for lvl := int64(1); lvl <= c.MaxLevel(); lvl++ {
			total := c.TotalXPForLevel(lvl)
			if got := c.Level(total); got != lvl {
				t.Fatalf("%s: Level(TotalXPForLevel(%d))=%d", name, lvl, got)
			}
		}
	}
}

func TestCurveMonotonicAndCapped(t *testing.T) {
	c, err := NewExponentialCurve(50, 1.2, 10)
	if err != nil {
		t.Fatal(err)
	}
	prev := int64(0)
	for xp := int64(0); xp <= 20000; xp += 37 {
		lvl := c.Level(xp)
		if lvl < prev {
			t.Fatalf("level decreased from %d to %d at xp=%d", prev, lvl, xp)
		}
		if lvl > c.MaxLevel() {
			t.Fatalf("level %d exceeds max %d", lvl, c.MaxLevel())
		}
		prev = lvl
	}
	if c.Level(1 << 40) != 10 {
		t.Fatalf("huge XP should be capped at max level")
	}
}

func TestCustomCurve(t *testing.T) {
	c, err := NewCustomCurve([]int64{100, 250, 500}, 50)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		xp   int64
		want int64
	}{
		{0, 1}, {99, 1}, {100, 2}, {249, 2}, {250, 3}, {500, 4}, {10_000, 4},
	}
	for _, tc := range cases {
		if got := c.Level(tc.xp); got != tc.want {
			t.Fatalf("Level(%d)=%d, want %d", tc.xp, got, tc.want)
		}
	}
	if got := c.XPForLevel(3); got != 150 {
		t.Fatalf("XPForLevel(3)=%d, want 150", got)
	}
	// level table shorter than max level caps the curve
	if got := c.Level(1 << 30); got != 4 {
		t.Fatalf("custom curve should cap at thresholds+1, got %d", got)
	}
}

func TestCustomCurveMaxLevelWins(t *testing.T) {
	c, err := NewCustomCurve([]int64{10, 20, 30, 40}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Level(1000); got != 3 {
		t.Fatalf("maxLevel should cap below thresholds+1, got %d", got)
	}
}

func TestCustomCurveRejectsDecreasing(t *testing.T) {
	if _, err := NewCustomCurve([]int64{100, 50}, 10); err == nil {
		t.Fatalf("expected error for decreasing thresholds")
	}
}

func TestProgress(t *testing.T) {
	c, err := NewLinearCurve(100, 5)
	if err != nil {
		t.Fatal(err)
	}
	if p := c.Progress(0); p != 0.0 {
		t.Fatalf("Progress(0)=%v, want 0", p)
	}
	if p := c.Progress(50); p != 0.5 {
		t.Fatalf("Progress(50)=%v, want 0.5", p)
	}
	if p := c.Progress(150); p != 0.5 {
		t.Fatalf("Progress(150)=%v, want 0.5", p)
	}
	// at max level progress pins to 1
	if p := c.Progress(c.TotalXPForLevel(5)); p != 1.0 {
		t.Fatalf("Progress at max level=%v, want 1", p)
	}
}

func TestProgressZeroWidthBand(t *testing.T) {
	c, err := NewCustomCurve([]int64{100, 100, 300}, 10)
	if err != nil {
		t.Fatal(err)
	}
	// duplicate thresholds collapse the level 2 band; 100 XP lands on level 3
	if lvl := c.Level(100); lvl != 3 {
		t.Fatalf("Level(100)=%d, want 3", lvl)
	}
	if p := c.Progress(100); p < 0 || p > 1 {
		t.Fatalf("Progress out of range: %v", p)
	}
}

func TestCurveConstructorValidation(t *testing.T) {
	if _, err := NewLinearCurve(0, 10); err == nil {
		t.Fatal("expected error for zero base XP")
	}
	if _, err := NewExponentialCurve(100, 0, 10); err == nil {
		t.Fatal("expected error for zero multiplier")
	}
	if _, err := NewLinearCurve(100, 0); err == nil {
		t.Fatal("expected error for zero max level")
	}
	if _, err := NewCustomCurve(nil, 10); err == nil {
		t.Fatal("expected error for empty thresholds")
	}
}
