package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/natvps/panel/pkg/logger"
)

// JobFunc is the work a job performs.
type JobFunc func(ctx context.Context) error

// Scheduler runs registered jobs in-process on their schedules. A job is
// never run concurrently with itself: a due tick is skipped while the
// previous run is still active.
type Scheduler struct {
	jobs       map[string]*job
	mu         sync.RWMutex
	wg         sync.WaitGroup
	interval   time.Duration
	logger     *slog.Logger
	runOnStart bool
}

type job struct {
	name     string
	schedule Schedule
	fn       JobFunc
	next     time.Time
	running  atomic.Bool
}

// New creates a scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]*job),
		interval: 30 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a job.
func (s *Scheduler) Add(name string, schedule Schedule, fn JobFunc) error {
	if name == "" || schedule == nil || fn == nil {
		return ErrInvalidJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return ErrJobAlreadyRegistered
	}
	s.jobs[name] = &job{name: name, schedule: schedule, fn: fn}

	s.logger.Info("registered job",
		logger.Component("scheduler"),
		logger.Job(name),
		slog.String("schedule", schedule.String()),
	)
	return nil
}

// Jobs returns the registered job names in ascending order.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Start runs the scheduling loop until ctx is canceled, then waits for
// active runs to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if len(s.jobs) == 0 {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	now := time.Now()
	for _, j := range s.jobs {
		if s.runOnStart {
			j.next = now
		} else {
			j.next = j.schedule.Next(now)
		}
	}
	s.mu.Unlock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx, now)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down", logger.Component("scheduler"))
			s.wg.Wait()
			return ctx.Err()
		case t := <-ticker.C:
			s.tick(ctx, t)
		}
	}
}

// RunNow runs a job synchronously outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	if !j.running.CompareAndSwap(false, true) {
		return ErrJobBusy
	}
	defer j.running.Store(false)
	return s.run(ctx, j)
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.next.After(now) {
			continue
		}
		j.next = j.schedule.Next(now)

		if !j.running.CompareAndSwap(false, true) {
			s.logger.WarnContext(ctx, "skipping job, previous run still active",
				logger.Component("scheduler"),
				logger.Job(j.name),
			)
			continue
		}

		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			defer j.running.Store(false)
			_ = s.run(ctx, j)
		}(j)
	}
}

func (s *Scheduler) run(ctx context.Context, j *job) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "job failed",
				logger.Component("scheduler"),
				logger.Job(j.name),
				logger.Duration(time.Since(start)),
				logger.Error(err),
			)
			return
		}
		s.logger.InfoContext(ctx, "job finished",
			logger.Component("scheduler"),
			logger.Job(j.name),
			logger.Duration(time.Since(start)),
		)
	}()
	return j.fn(ctx)
}
