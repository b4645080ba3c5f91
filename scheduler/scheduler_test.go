package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"sorinflow/config"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep(ctx context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestIntervalSchedule(t *testing.T) {
	sw := &countingSweeper{}
	s := New(config.SchedulerConfig{Interval: 20 * time.Millisecond}, sw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for sw.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sweeps = %d, want at least 2", sw.calls.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestInvalidCronRejected(t *testing.T) {
	s := New(config.SchedulerConfig{Cron: "not a cron"}, &countingSweeper{})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestTriggerNow(t *testing.T) {
	sw := &countingSweeper{}
	s := New(config.SchedulerConfig{}, sw)
	if err := s.TriggerNow(context.Background()); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if sw.calls.Load() != 1 {
		t.Fatalf("sweeps = %d, want 1", sw.calls.Load())
	}
}
