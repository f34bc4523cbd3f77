package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is the work bound to a trigger.
type Job func(ctx context.Context) error

// TriggerStats is a snapshot of one trigger's counters.
type TriggerStats struct {
	Name     string
	Every    time.Duration
	Runs     int64
	Failures int64
	Skipped  int64
	LastRun  time.Time
	LastErr  string
}

type trigger struct {
	name    string
	every   time.Duration
	job     Job
	running atomic.Bool

	mu    sync.Mutex
	stats TriggerStats
}

// Scheduler runs each trigger on its own ticker and goroutine. A tick that
// arrives while the trigger's previous run is still in flight is skipped.
type Scheduler struct {
	clock      Clock
	logger     *zap.Logger
	runOnStart bool

	mu       sync.Mutex
	triggers []*trigger
	running  bool
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithRunOnStart fires every trigger once as soon as Run starts.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) {
		s.runOnStart = enabled
	}
}

func New(logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:  realClock{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a trigger. It must be called before Run.
func (s *Scheduler) Add(name string, every time.Duration, job Job) error {
	if every <= 0 {
		return fmt.Errorf("trigger %q: interval must be positive, got %s", name, every)
	}
	if job == nil {
		return fmt.Errorf("trigger %q: nil job", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already running")
	}
	for _, t := range s.triggers {
		if t.name == name {
			return fmt.Errorf("trigger %q already registered", name)
		}
	}
	s.triggers = append(s.triggers, &trigger{
		name:  name,
		every: every,
		job:   job,
		stats: TriggerStats{Name: name, Every: every},
	})
	return nil
}

// Run blocks until ctx is cancelled, then waits for in-flight jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	if len(s.triggers) == 0 {
		s.mu.Unlock()
		return errors.New("no triggers registered")
	}
	s.running = true
	triggers := append([]*trigger(nil), s.triggers...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range triggers {
		s.logger.Info("trigger registered", zap.String("trigger", t.name), zap.Duration("every", t.every))
		g.Go(func() error {
			s.loop(ctx, g, t)
			return nil
		})
	}

	err := g.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats returns counters for every trigger in registration order.
func (s *Scheduler) Stats() []TriggerStats {
	s.mu.Lock()
	triggers := append([]*trigger(nil), s.triggers...)
	s.mu.Unlock()

	out := make([]TriggerStats, 0, len(triggers))
	for _, t := range triggers {
		t.mu.Lock()
		out = append(out, t.stats)
		t.mu.Unlock()
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, g *errgroup.Group, t *trigger) {
	ticker := s.clock.NewTicker(t.every)
	defer ticker.Stop()

	if s.runOnStart {
		s.fire(ctx, g, t)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.fire(ctx, g, t)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, g *errgroup.Group, t *trigger) {
	if !t.running.CompareAndSwap(false, true) {
		t.mu.Lock()
		t.stats.Skipped++
		t.mu.Unlock()
		s.logger.Warn("previous run still in progress, skipping tick", zap.String("trigger", t.name))
		return
	}

	g.Go(func() error {
		s.execute(ctx, t)
		return nil
	})
}

func (s *Scheduler) execute(ctx context.Context, t *trigger) {
	started := s.clock.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return t.job(ctx)
	}()

	t.mu.Lock()
	t.stats.Runs++
	t.stats.LastRun = started
	t.stats.LastErr = ""
	if err != nil {
		t.stats.Failures++
		t.stats.LastErr = err.Error()
	}
	// Cleared under t.mu: a reader that sees the new Runs also sees the trigger idle.
	t.running.Store(false)
	t.mu.Unlock()

	if err != nil {
		s.logger.Error("triggered run failed", zap.String("trigger", t.name), zap.Error(err))
		return
	}
	s.logger.Debug("triggered run finished", zap.String("trigger", t.name), zap.Duration("took", s.clock.Now().Sub(started)))
}
