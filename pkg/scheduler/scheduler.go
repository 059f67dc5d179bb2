// Package scheduler fires scheduled pipeline triggers on a fixed interval in daemon mode.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/pipeline"
)

//go:generate moq -out mocks/runner.go -pkg mocks -skip-ensure -fmt goimports . Runner

// DefaultInterval is the trigger interval when none is set. It must not exceed the gate window,
// otherwise ticks can step over the window every day.
const DefaultInterval = 10 * time.Minute

// Runner executes a pipeline run
type Runner interface {
	Run(ctx context.Context, trigger pipeline.Trigger) (pipeline.Result, error)
}

// Scheduler sends a scheduled trigger to the runner on every tick. The runner decides
// through its gate whether a trigger becomes a run.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// NewScheduler creates a scheduler ticking every interval, DefaultInterval when unset
func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{runner: runner, interval: interval}
}

// Start begins the trigger loop
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.triggerWorker(ctx)

	lgr.Printf("[INFO] scheduler started with trigger interval %v", s.interval)
}

// Stop gracefully stops the scheduler, waiting for an active trigger to finish
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

func (s *Scheduler) triggerWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// trigger immediately on start
	s.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context) {
	res, err := s.runner.Run(ctx, pipeline.TriggerScheduled)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		lgr.Printf("[INFO] scheduled trigger skipped, a run is active")
	case err != nil:
		lgr.Printf("[ERROR] scheduled run failed: %v", err)
	case res.Skipped == "":
		lgr.Printf("[INFO] scheduled run completed, %d new, %d updated", res.Stats.New, res.Stats.Updated)
	}
}
