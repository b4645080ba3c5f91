package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"sorinflow/stealth"
)

// Governor paces page requests. It enforces a per-minute ceiling by sleeping
// until the window rolls over and signals when the session has served enough
// requests that the browser should be rebuilt with a fresh identity.
type Governor struct {
	mu           sync.Mutex
	windowStart  time.Time
	windowCount  int
	sessionCount int
	perMinute    int
	perSession   int
	sleep        func(context.Context, time.Duration) error
}

func NewGovernor() *Governor {
	return &Governor{
		windowStart: time.Now(),
		perMinute:   stealth.MaxRequestsPerMinute,
		perSession:  stealth.MaxRequestsPerSession,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Acquire blocks until the next request is allowed. The error is non-nil
// only when ctx is cancelled while waiting.
func (g *Governor) Acquire(ctx context.Context) error {
	g.mu.Lock()

	now := time.Now()
	if now.Sub(g.windowStart) >= time.Minute {
		g.windowStart = now
		g.windowCount = 0
	}

	if g.windowCount >= g.perMinute {
		wait := time.Minute - now.Sub(g.windowStart)
		g.mu.Unlock()
		log.Debug().Dur("wait", wait).Msg("rate ceiling reached, pausing")
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
		return g.Acquire(ctx)
	}

	g.windowCount++
	g.sessionCount++
	g.mu.Unlock()
	return nil
}

// SessionExhausted reports whether the browser identity has served its
// request budget and must be recycled.
func (g *Governor) SessionExhausted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionCount >= g.perSession
}

// ResetSession starts counting for a fresh browser identity.
func (g *Governor) ResetSession() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessionCount = 0
}
