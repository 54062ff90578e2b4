package attempt

import "testing"

func TestRemainingIdempotent(t *testing.T) {
	start := int64(1_700_000_000)
	now := start + 100
	a := Remaining(600, start, now)
	b := Remaining(600, start, now)
	if a != b {
		t.Fatalf("two computations at the same instant differ: %d vs %d", a, b)
	}
	if a != 500 {
		t.Fatalf("remaining = %d, want 500", a)
	}
}

// A reload 70% through a 600s window must resume at ~180s, not reset to 600.
func TestRemainingSurvivesReload(t *testing.T) {
	start := int64(1_700_000_000)
	now := start + 420
	if got := Remaining(600, start, now); got != 180 {
		t.Fatalf("remaining after reload = %d, want 180", got)
	}
}

func TestRemainingClampsAtZero(t *testing.T) {
	start := int64(1_700_000_000)
	if got := Remaining(600, start, start+601); got != 0 {
		t.Fatalf("remaining past deadline = %d, want 0", got)
	}
	if !Expired(600, start, start+3600) {
		t.Fatal("long-gone session not reported expired")
	}
	if Expired(600, start, start+599) {
		t.Fatal("live session reported expired")
	}
}

func TestElapsedNeverNegative(t *testing.T) {
	start := int64(1_700_000_000)
	if got := Elapsed(start, start-5); got != 0 {
		t.Fatalf("elapsed with skewed clock = %d, want 0", got)
	}
}
