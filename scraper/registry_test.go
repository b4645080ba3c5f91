package scraper

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestRegistryTracksRunningJobs(t *testing.T) {
	r := NewRegistry()
	if r.Running() != 0 {
		t.Fatalf("fresh registry reports %d running", r.Running())
	}

	_, cancel := context.WithCancel(context.Background())
	done := r.Add(uuid.New(), cancel)
	if r.Running() != 1 {
		t.Errorf("Running = %d, want 1", r.Running())
	}

	done()
	done() // second call must be a no-op
	if r.Running() != 0 {
		t.Errorf("Running = %d after done, want 0", r.Running())
	}
}

func TestRegistryShutdownCancelsJobs(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	done := r.Add(uuid.New(), cancel)

	go func() {
		<-ctx.Done()
		done()
	}()

	r.Shutdown()
	if ctx.Err() == nil {
		t.Error("shutdown did not cancel the job context")
	}
	if r.Running() != 0 {
		t.Errorf("Running = %d after shutdown", r.Running())
	}
}
