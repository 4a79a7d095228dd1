package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Scheduler triggers the refresh job on a fixed interval. SingletonMode
// guarantees at most one run in flight: a run that outlasts the interval
// simply delays the next one.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher *Refresher
	interval  time.Duration
	log       *zap.Logger
}

func NewScheduler(refresher *Refresher, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		log:       logger,
	}
}

// Start schedules the periodic refresh and starts the underlying
// scheduler asynchronously.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	_, err := s.scheduler.Every(minutes).Minutes().SingletonMode().Do(func() {
		s.refresher.Run(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info("weather refresh scheduled", zap.Int("interval_minutes", minutes))
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
