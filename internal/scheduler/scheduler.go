// Package scheduler runs the screener on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/volscreen/internal/core"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler triggers a Job on a six-field cron spec. Overlapping triggers
// are skipped while a run is in progress.
type Scheduler struct {
	cron   *cron.Cron
	entry  cron.EntryID
	job    Job
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	loc *time.Location
}

// WithLocation evaluates the cron spec in loc instead of time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// New registers job under spec, e.g. "0 30 21 * * 1-5".
func New(spec string, job Job, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	o := options{loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		job:    job,
		logger: logger,
		ctx:    context.Background(),
	}
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(o.loc),
		cron.WithLogger(cronLogger{logger.Sugar()}),
	)

	id, err := s.cron.AddFunc(spec, s.trigger)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("schedule %q: %w", spec, err))
	}
	s.entry = id
	return s, nil
}

// Start begins firing the job. Runs inherit ctx; cancelling it aborts an
// in-flight run but does not stop the schedule.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Time("next_run", s.Next()))
}

// Stop halts the schedule and waits for a running job to return.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	<-done.Done()
	if cancel != nil {
		cancel()
	}
	s.logger.Info("scheduler stopped")
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// RunNow runs the job immediately unless a run is already in progress.
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.run(ctx, "manual")
}

func (s *Scheduler) trigger() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	_ = s.run(ctx, "cron")
}

func (s *Scheduler) run(ctx context.Context, source string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous run still in progress, skipping", zap.String("source", source))
		return ErrBusy
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	s.logger.Info("run started", zap.String("source", source))

	err := s.job(ctx)
	if err != nil {
		s.logger.Error("run failed", zap.String("source", source),
			zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return err
	}
	s.logger.Info("run finished", zap.String("source", source), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// ErrBusy is returned by RunNow when a run is already in progress.
var ErrBusy = errors.New("scheduler: run already in progress")

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
