package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gate-labs/qualgate"
	"github.com/gate-labs/qualgate/report"
)

// SchedulerConfig controls a cron-driven Scheduler.
type SchedulerConfig struct {
	// Runner executes each scheduled run. Required.
	Runner Runner

	// Expression is a standard five-field cron expression, evaluated
	// in UTC. Required.
	Expression string

	// Options are passed to every scheduled run.
	Options qualgate.Options

	// OnResult, when set, receives the report and error of each run.
	OnResult func(report.Report, error)

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Scheduler triggers quality runs on a cron schedule.
type Scheduler struct {
	runner   Runner
	schedule string
	options  qualgate.Options
	onResult func(report.Report, error)
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewScheduler validates the cron expression and builds a Scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("scheduler requires a runner")
	}
	if _, err := parseCronExpressionUTC(cfg.Expression); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Scheduler{
		runner:   cfg.Runner,
		schedule: cfg.Expression,
		options:  cfg.Options,
		onResult: cfg.OnResult,
		logger:   logger,
	}, nil
}

// Start launches the scheduling loop. It returns immediately; runs
// happen on a background goroutine until Stop is called or the parent
// context is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(runCtx, s.done)
	return nil
}

// Stop halts the scheduling loop and waits for an in-flight run to
// finish its cancellation.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// NextRun reports when the schedule fires next, relative to now.
func (s *Scheduler) NextRun(now time.Time) (time.Time, error) {
	return nextCronRunUTC(s.schedule, now)
}

// RunOnce executes a single run immediately, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) (report.Report, error) {
	rep, err := s.runner.Run(ctx, s.options)
	if s.onResult != nil {
		s.onResult(rep, err)
	}
	return rep, err
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		next, err := nextCronRunUTC(s.schedule, time.Now())
		if err != nil {
			// Expression was validated at construction time.
			s.logger.Error("cron schedule became invalid", "error", err)
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.logger.Info("scheduled run starting", "schedule", s.schedule)
		rep, err := s.runner.Run(ctx, s.options)
		if err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		} else {
			s.logger.Info("scheduled run finished",
				"classification", string(rep.Classification),
				"total", rep.Summary.Total)
		}
		if s.onResult != nil {
			s.onResult(rep, err)
		}
	}
}
