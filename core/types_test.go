package core

import (
	"math"
	"testing"
)

func TestAddSafe(t *testing.T) {
	if v, err := AddSafe(10, 5); err != nil || v != 15 {
		t.Fatalf("got %v %v", v, err)
	}
	if _, err := AddSafe(math.MaxInt64, 1); err == nil {
		t.Fatalf("expected overflow")
	}
}

func TestNormalizeUserID(t *testing.T) {
	id, err := NormalizeUserID(" Alice ")
	if err != nil || id != "alice" {
		t.Fatalf("got %v %v", id, err)
	}
	if _, err := NormalizeUserID("   "); err == nil {
		t.Fatalf("expected empty error")
	}
}

func TestValidateAction(t *testing.T) {
	if err := ValidateAction("quiz.completed"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := ValidateAction("bad action"); err == nil {
		t.Fatalf("expected invalid action error")
	}
	if err := ValidateAction(""); err == nil {
		t.Fatalf("expected empty action error")
	}
}

func TestValidateBadgeID(t *testing.T) {
	if err := ValidateBadgeID("streak_7"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := ValidateBadgeID("bad badge"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPlayerStateClone(t *testing.T) {
	st := PlayerState{UserID: "u1", TotalXP: 10, Stats: map[string]int64{"logins": 3}}
	cp := st.Clone()
	cp.Stats["logins"] = 99
	if st.Stats["logins"] != 3 {
		t.Fatalf("clone should not share stats map")
	}
}
