package scraper

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the jobs running inside this process. Cancellation
// normally travels through the job row, but shutdown needs a direct line to
// every in-flight runner.
type Registry struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]context.CancelFunc
	wg   sync.WaitGroup
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[uuid.UUID]context.CancelFunc)}
}

// Add registers a running job and returns a completion callback the runner
// goroutine must invoke when it exits.
func (r *Registry) Add(jobID uuid.UUID, cancel context.CancelFunc) (done func()) {
	r.mu.Lock()
	r.jobs[jobID] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.jobs, jobID)
			r.mu.Unlock()
			r.wg.Done()
		})
	}
}

// Running reports how many jobs this process is driving right now.
func (r *Registry) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Shutdown cancels every running job and waits for the runners to unwind.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	for _, cancel := range r.jobs {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
