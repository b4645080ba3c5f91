package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"sorinflow/config"
)

// Sweeper runs one full scrape sweep. The runtime wires this to the job
// runner so scheduled sweeps flow through the same job table as API-launched
// ones.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Scheduler fires recurring scrape sweeps either on a cron expression or a
// fixed interval. With neither configured it stays idle and the API is the
// only way to start jobs.
type Scheduler struct {
	cfg     config.SchedulerConfig
	sweeper Sweeper
	cron    *cron.Cron
	ticker  *time.Ticker
	stopCh  chan struct{}
}

func New(cfg config.SchedulerConfig, sweeper Sweeper) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		sweeper: sweeper,
		cron:    cron.New(),
		stopCh:  make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	switch {
	case s.cfg.Cron != "":
		log.Info().Str("cron", s.cfg.Cron).Msg("scheduler starting with cron expression")
		_, err := s.cron.AddFunc(s.cfg.Cron, func() { s.run(ctx) })
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	case s.cfg.Interval > 0:
		log.Info().Dur("interval", s.cfg.Interval).Msg("scheduler starting with fixed interval")
		s.ticker = time.NewTicker(s.cfg.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.run(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	default:
		log.Info().Msg("no schedule configured, jobs start via the API only")
	}
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	if err := s.sweeper.Sweep(ctx); err != nil {
		log.Error().Err(err).Msg("scheduled sweep failed")
		return
	}
	log.Info().Dur("took", time.Since(start)).Msg("scheduled sweep finished")
}

// TriggerNow runs a sweep immediately, outside the schedule.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.sweeper.Sweep(ctx)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}
