package core

import (
	"testing"
	"time"
)

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	start := clock.Now()
	time.Sleep(10 * time.Millisecond)
	if elapsed := clock.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("RealClock.Since() returned %v, expected >= 10ms", elapsed)
	}
}

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if !clock.Now().Equal(start) {
		t.Fatalf("FakeClock.Now() should start at %v", start)
	}
	if a, b := clock.Now(), clock.Now(); !a.Equal(b) {
		t.Error("FakeClock without step should not move on Now()")
	}

	clock.Advance(5 * time.Minute)
	if got := clock.Since(start); got != 5*time.Minute {
		t.Errorf("after Advance(5m), Since(start) = %v, expected 5m", got)
	}
}

func TestSteppingClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewSteppingClock(start, 30*time.Second)

	first := clock.Now()
	if !first.Equal(start) {
		t.Errorf("first Now() = %v, expected %v", first, start)
	}
	if got := clock.Since(first); got != 30*time.Second {
		t.Errorf("Since(first) = %v, expected 30s", got)
	}
}
