// Package scheduler runs fetch-extract cycles one after another with a fixed delay between them.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"dataingest/ingest"
	"dataingest/utils"

	"go.uber.org/zap"
)

const (
	// DefaultInterval is the delay after a successful cycle.
	DefaultInterval = 24 * time.Hour
	// DefaultRetryInterval is the delay after a failed cycle.
	DefaultRetryInterval = time.Hour
)

// Runner performs one cycle; *ingest.Cycle is the production one.
type Runner interface {
	Run(ctx context.Context) ingest.Outcome
}

// Options configure the loop.
type Options struct {
	// Interval the delay after a successful cycle
	Interval time.Duration
	// RetryInterval the delay after a failed cycle
	RetryInterval time.Duration
	// MaxRuns stops the loop after that many cycles; 0 means forever
	MaxRuns int
}

// Scheduler invokes the runner sequentially: cycles never overlap.
type Scheduler struct {
	runner Runner
	opts   Options
	log    *utils.CustomLogger
	// wait blocks for d or until ctx is done; replaced in tests
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a scheduler; zero intervals fall back to the defaults.
func New(runner Runner, opts Options, log *utils.CustomLogger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	return &Scheduler{runner: runner, opts: opts, log: log, wait: sleep}
}

// Run loops until ctx is cancelled, MaxRuns cycles completed, or a cycle reports a fatal outcome.
// Cancellation and MaxRuns end the loop with a nil error; a fatal outcome returns its error.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("Data ingestion job started", zap.Duration("interval", s.opts.Interval),
		zap.Duration("retry_interval", s.opts.RetryInterval), zap.Int("max_runs", s.opts.MaxRuns))

	for runs := 1; ; runs++ {
		s.log.Info("Running daily data download...", zap.Int("run", runs))
		outcome := s.runner.Run(ctx)

		if outcome.Fatal {
			s.log.Error("Fatal cycle failure, stopping the job", zap.String("run_id", outcome.RunID),
				zap.Error(outcome.Err))
			return fmt.Errorf("run %d failed: %w", runs, outcome.Err)
		}
		if ctx.Err() != nil {
			s.log.Info("Data ingestion job cancelled", zap.Int("runs", runs))
			return nil
		}
		if s.opts.MaxRuns > 0 && runs >= s.opts.MaxRuns {
			s.log.Info("Data ingestion job finished", zap.Int("runs", runs))
			return nil
		}

		delay := s.next(outcome)
		if err := s.wait(ctx, delay); err != nil {
			s.log.Info("Data ingestion job cancelled", zap.Int("runs", runs))
			return nil
		}
	}
}

// next picks the delay after an outcome and logs the delay actually applied.
func (s *Scheduler) next(outcome ingest.Outcome) time.Duration {
	if outcome.Success {
		s.log.Info("Data download successful. Waiting for the next scheduled download.",
			zap.String("run_id", outcome.RunID), zap.Duration("delay", s.opts.Interval))
		return s.opts.Interval
	}
	s.log.Error(fmt.Sprintf("Data download failed. Retrying after %s.", s.opts.RetryInterval),
		zap.String("run_id", outcome.RunID), zap.String("kind", ingest.Kind(outcome.Err)),
		zap.Duration("delay", s.opts.RetryInterval))
	return s.opts.RetryInterval
}

// sleep waits for d unless ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
