package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("RealClock.Now() = %v, expected between %v and %v", now, before, after)
	}
	if clock.Since(before) < 0 {
		t.Error("RealClock.Since() returned a negative duration")
	}
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	clock.Advance(5 * time.Minute)
	if got := clock.Since(start); got != 5*time.Minute {
		t.Errorf("Since() = %v, want 5m", got)
	}

	later := start.Add(24 * time.Hour)
	clock.Set(later)
	if got := clock.Now(); !got.Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", got, later)
	}
}

func TestMockClock_Step(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	clock := NewMockClock(start)
	clock.SetStep(250 * time.Millisecond)

	first := clock.Now()
	second := clock.Now()

	if !first.Equal(start) {
		t.Errorf("first Now() = %v, want %v", first, start)
	}
	if d := second.Sub(first); d != 250*time.Millisecond {
		t.Errorf("step between calls = %v, want 250ms", d)
	}
	if got := clock.Since(start); got != 500*time.Millisecond {
		t.Errorf("Since() = %v, want 500ms", got)
	}
}

func TestMockClock_Sleep(t *testing.T) {
	start := time.Unix(1000, 0)
	clock := NewMockClock(start)

	clock.Sleep(10 * time.Millisecond)
	clock.Sleep(20 * time.Millisecond)

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 recorded sleeps, got %d", len(sleeps))
	}
	if sleeps[0] != 10*time.Millisecond || sleeps[1] != 20*time.Millisecond {
		t.Errorf("unexpected sleeps: %v", sleeps)
	}
	if got := clock.Since(start); got != 30*time.Millisecond {
		t.Errorf("Sleep should advance the clock, Since() = %v", got)
	}
}
