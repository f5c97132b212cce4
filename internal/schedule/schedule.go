// Package schedule runs the host's periodic jobs (range refresh, marker
// tick, snapshot capture) on cron specs.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calview/internal/log"
)

var ErrUnknownJob = errors.New("unknown job")

// JobFunc is one unit of periodic work. The context is cancelled when the
// scheduler stops.
type JobFunc func(ctx context.Context) error

// Scheduler wraps a cron.Cron with named jobs. Overlapping runs of the same
// job are skipped.
type Scheduler struct {
	cron *cron.Cron

	mu     sync.Mutex
	jobs   map[string]JobFunc
	ids    map[string]cron.EntryID
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler evaluating specs in loc. Specs use the standard
// five-field format or descriptors such as "@hourly" and "@every 1m".
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs:   make(map[string]JobFunc),
		ids:    make(map[string]cron.EntryID),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers fn under name. An empty spec disables the job.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	if spec == "" {
		appLog.Info("schedule job disabled", "job", name)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("schedule: job %q already registered", name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("schedule: job %q spec %q: %w", name, spec, err)
	}
	s.jobs[name] = fn
	s.ids[name] = id
	appLog.Info("schedule job registered", "job", name, "spec", spec)
	return nil
}

// RunNow runs a registered job synchronously on the caller's goroutine.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	fn, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return s.run(name, fn)
}

func (s *Scheduler) run(name string, fn JobFunc) error {
	start := time.Now()
	err := fn(s.ctx)
	if err != nil {
		appLog.Error("schedule job failed", err, "job", name, "elapsed", time.Since(start).Round(time.Millisecond))
		return err
	}
	appLog.Debug("schedule job done", "job", name, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// Jobs lists registered job names in order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Next returns the next activation of a job, or the zero time before Start.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	id, ok := s.ids[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling, cancels the job context and waits for running
// jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's internal logging through appLog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
