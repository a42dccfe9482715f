// Package scheduler triggers feed syncs on a cron schedule and on demand,
// never letting two runs overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/evcraddock/house-calendar/internal/feedsync"
)

var (
	// ErrRunInProgress is returned by Trigger while another run is active.
	ErrRunInProgress = errors.New("sync already in progress")
	// ErrStopped is returned by Trigger once Stop has been called.
	ErrStopped = errors.New("scheduler stopped")
)

// Runner performs one sync.
type Runner interface {
	Run(ctx context.Context) (*feedsync.Summary, error)
}

// Hook is called after every completed run.
type Hook func(ctx context.Context, sum *feedsync.Summary)

// Scheduler owns the in-flight guard for sync runs.
type Scheduler struct {
	runner   Runner
	logger   *slog.Logger
	cron     *cron.Cron
	running  atomic.Bool
	inFlight sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	hooks   []Hook
	last    *feedsync.Summary
	lastErr error
}

// New creates a scheduler. A nil logger uses slog.Default.
func New(r Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger}
	return &Scheduler{
		runner: r,
		logger: logger,
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
	}
}

// OnComplete registers a hook run after each successful sync.
func (s *Scheduler) OnComplete(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Trigger runs a sync now. It returns ErrRunInProgress without waiting
// if a run is already active, and ErrStopped after Stop.
func (s *Scheduler) Trigger(ctx context.Context) (*feedsync.Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	s.inFlight.Add(1)
	s.mu.Unlock()
	defer s.inFlight.Done()

	sum, err := s.runner.Run(ctx)

	s.mu.Lock()
	s.last, s.lastErr = sum, err
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	for _, h := range hooks {
		h(ctx, sum)
	}
	return sum, nil
}

// Running reports whether a sync is in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Last returns the outcome of the most recent run.
func (s *Scheduler) Last() (*feedsync.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

// Start schedules periodic runs using a standard cron expression. An
// empty schedule schedules nothing. Runs use ctx.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		s.logger.Info("periodic sync disabled")
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		_, err := s.Trigger(ctx)
		switch {
		case errors.Is(err, ErrRunInProgress):
			s.logger.Info("skipping scheduled sync, previous run still active")
		case errors.Is(err, ErrStopped):
		case err != nil:
			s.logger.Error("scheduled sync failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("parsing sync schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("periodic sync scheduled", "schedule", schedule)
	return nil
}

// Stop halts the schedule, refuses further triggers and waits for the
// running sync, cron-fired or on demand, to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
