// Package scheduler runs the backfill on a fixed daily schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Job is one scheduled execution, typically a backfill run.
type Job func(ctx context.Context) error

// Scheduler manages the periodic backfill task.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       Job
	at        string
	log       *zap.Logger

	ctx context.Context
}

// New creates a scheduler that triggers job daily at the given wall-clock
// time ("15:04", UTC).
func New(at string, job Job, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		job:       job,
		at:        at,
		log:       log,
	}
}

// Start registers the job and begins running it in the background. ctx is
// the parent of every job execution: cancelling it aborts a run in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	// a run must finish before the next one may start
	_, err := s.scheduler.Every(1).Day().At(s.at).SingletonMode().Do(s.execute)
	if err != nil {
		return fmt.Errorf("scheduler: register job at %q: %w", s.at, err)
	}
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", zap.String("daily_at", s.at))
	return nil
}

// Stop halts scheduling. A job in flight keeps its context and finishes on
// its own terms.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) execute() {
	s.log.Info("scheduled run starting")
	started := time.Now()
	if err := s.job(s.ctx); err != nil {
		s.log.Error("scheduled run failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled run finished", zap.Duration("took", time.Since(started)))
}
