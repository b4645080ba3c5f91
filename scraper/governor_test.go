package scraper

import (
	"context"
	"testing"
	"time"
)

func TestGovernorAllowsUpToCeiling(t *testing.T) {
	g := NewGovernor()
	g.perMinute = 3
	g.perSession = 100

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := g.Acquire(ctx); err != nil {
			t.Fatalf("request %d blocked: %v", i, err)
		}
	}
	if g.windowCount != 3 {
		t.Errorf("windowCount = %d", g.windowCount)
	}
}

func TestGovernorSleepsAtCeiling(t *testing.T) {
	g := NewGovernor()
	g.perMinute = 1
	var slept time.Duration
	g.sleep = func(ctx context.Context, d time.Duration) error {
		slept = d
		// simulate the window rolling over while asleep
		g.mu.Lock()
		g.windowStart = time.Now().Add(-2 * time.Minute)
		g.mu.Unlock()
		return nil
	}

	ctx := context.Background()
	if err := g.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if slept <= 0 {
		t.Error("second acquire did not wait for the window")
	}
}

func TestGovernorCancelledWhileWaiting(t *testing.T) {
	g := NewGovernor()
	g.perMinute = 1

	ctx, cancel := context.WithCancel(context.Background())
	if err := g.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := g.Acquire(ctx); err == nil {
		t.Error("acquire after cancel should fail")
	}
}

func TestGovernorSessionBudget(t *testing.T) {
	g := NewGovernor()
	g.perMinute = 1000
	g.perSession = 2

	ctx := context.Background()
	g.Acquire(ctx)
	if g.SessionExhausted() {
		t.Error("exhausted after one request")
	}
	g.Acquire(ctx)
	if !g.SessionExhausted() {
		t.Error("not exhausted at the session ceiling")
	}
	g.ResetSession()
	if g.SessionExhausted() {
		t.Error("still exhausted after reset")
	}
}
