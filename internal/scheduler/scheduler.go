package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crimson-sun/flightwatch/internal/logging"
)

// PassFunc runs one classification pass.
type PassFunc func(ctx context.Context) error

// Scheduler triggers passes on a cron cadence. A tick that fires while the
// previous pass is still running is skipped, and a panicking pass is
// recovered.
type Scheduler struct {
	cron *cron.Cron
	spec string
	run  PassFunc

	mu     sync.Mutex // serializes passes across cron and RunNow
	ctx    context.Context
	cancel context.CancelFunc
	entry  cron.EntryID
}

// New parses spec (standard 5-field cron or a descriptor such as
// "@every 30s") and prepares a scheduler that calls run on each tick.
func New(spec string, run PassFunc) (*Scheduler, error) {
	logger := cronLogger{log: slog.Default().With("component", "flightwatch.scheduler")}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, spec: spec, run: run, ctx: ctx, cancel: cancel}

	id, err := c.AddFunc(spec, s.tick)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("scheduler: parse %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Spec returns the configured cadence.
func (s *Scheduler) Spec() string { return s.spec }

// Next returns the next scheduled tick, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "schedule", s.spec)
}

// RunNow runs one pass synchronously, waiting for any pass in flight.
func (s *Scheduler) RunNow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx)
}

// Stop halts ticking and waits for a running pass. If ctx ends first the
// pass context is cancelled and ctx's error returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := logging.WithLogFields(s.ctx, logging.LogFields{Component: "flightwatch.scheduler"})
	if err := s.run(ctx); err != nil {
		slog.DebugContext(ctx, "pass ended with error", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
