package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/sgweather/station-aggregation/internal/collector"
)

// Scheduler runs collection cycles on a fixed interval.
type Scheduler struct {
	scheduler    *gocron.Scheduler
	service      *collector.Service
	interval     time.Duration
	cycleTimeout time.Duration
}

// New creates a scheduler. cycleTimeout bounds each collection cycle.
func New(service *collector.Service, interval, cycleTimeout time.Duration) *Scheduler {
	return &Scheduler{
		scheduler:    gocron.NewScheduler(time.UTC),
		service:      service,
		interval:     interval,
		cycleTimeout: cycleTimeout,
	}
}

// Start schedules the periodic cycle, runs the first one immediately, and
// starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	timeout := s.cycleTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	_, err := s.scheduler.Every(interval).StartImmediately().Do(func() {
		log.Println("scheduler: running collection cycle")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		snap, err := s.service.Collect(ctx)
		if err != nil {
			log.Printf("scheduler: collection failed: %v", err)
			return
		}
		log.Printf("scheduler: collection done: quality %d, %d stations used",
			snap.DataQualityScore, len(snap.StationsUsed))
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler; a running cycle finishes on its own.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
