package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"xpkit/boost"
	"xpkit/core"
	"xpkit/streak"
)

func TestMemoryStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	total, err := s.AddXP(ctx, core.UserID("u"), 5)
	if err != nil || total != 5 {
		t.Fatalf("got %v %v", total, err)
	}
	if err := s.SetStat(ctx, core.UserID("u"), "quizzes", 3); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetCounter(ctx, core.UserID("u"), "quizzes"); v != 3 {
		t.Fatalf("counter=%d", v)
	}
	st, _ := s.GetState(ctx, core.UserID("u"))
	if st.TotalXP != 5 {
		t.Fatalf("state xp=%d", st.TotalXP)
	}
	stats, _ := s.GetStats(ctx, core.UserID("u"))
	if stats["quizzes"] != 3 {
		t.Fatalf("stats=%v", stats)
	}
}

func TestMemoryStoreStreaksAndBoosts(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, found, _ := s.Streak(ctx, "u", "daily"); found {
		t.Fatal("unexpected streak")
	}
	if err := s.SaveStreak(ctx, "u", "daily", streak.State{Current: 2, Best: 4, LastRecordedAt: &now}); err != nil {
		t.Fatal(err)
	}
	st, found, _ := s.Streak(ctx, "u", "daily")
	if !found || st.Current != 2 || st.Best != 4 {
		t.Fatalf("streak=%+v found=%v", st, found)
	}

	if err := s.SaveBoost(ctx, "u", boost.Boost{ID: "b1", Multiplier: 2, ActivatedAt: now, Duration: time.Hour}); err != nil {
		t.Fatal(err)
	}
	boosts, _ := s.Boosts(ctx, "u")
	if len(boosts) != 1 || boosts[0].ID != "b1" {
		t.Fatalf("boosts=%v", boosts)
	}
}

func TestMemoryStoreConcurrentAdds(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddXP(ctx, "u", 2); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	st, _ := s.GetState(ctx, "u")
	if st.TotalXP != 100 {
		t.Fatalf("xp=%d, want 100", st.TotalXP)
	}
}
