// Package scheduler runs named background tasks on fixed intervals: the
// store readiness probe and the catalog cache refresh.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks. ctx is cancelled
// when the task times out or the scheduler stops.
type TaskFn func(ctx context.Context) error

// TaskStatus is a snapshot of one registered task.
type TaskStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      int64         `json:"runs"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// Scheduler manages periodic tasks.
type Scheduler struct {
	mu       sync.Mutex
	tasks    map[string]*task
	timeout  time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

type task struct {
	name     string
	interval time.Duration
	stopCh   chan struct{}

	mu      sync.Mutex
	runs    int64
	lastRun time.Time
	lastErr error
}

// New creates a Scheduler. Each task run is limited to timeout; 0 means
// no limit.
func New(logger *zap.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		tasks:   make(map[string]*task),
		timeout: timeout,
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
}

// AddTicker registers fn to run every interval, and once right away when
// immediate is set. A task with the same name is replaced. A non-positive
// interval is logged and ignored.
func (s *Scheduler) AddTicker(name string, interval time.Duration, immediate bool, fn TaskFn) {
	if interval <= 0 {
		s.logger.Warn("scheduler task not registered: interval must be positive",
			zap.String("name", name), zap.Duration("interval", interval))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[name]; ok {
		close(old.stopCh)
		delete(s.tasks, name)
	}

	t := &task{name: name, interval: interval, stopCh: make(chan struct{})}
	s.tasks[name] = t

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		if immediate {
			s.run(t, fn)
		}
		for {
			select {
			case <-ticker.C:
				s.run(t, fn)
			case <-t.stopCh:
				return
			case <-s.stopCh:
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) run(t *task, fn TaskFn) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-t.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduler task panicked",
					zap.String("task", t.name),
					zap.Any("recover", r))
				err = errPanic
			}
		}()
		err = fn(ctx)
	}()
	if err != nil && err != errPanic {
		s.logger.Warn("scheduler task failed", zap.String("task", t.name), zap.Error(err))
	}

	t.mu.Lock()
	t.runs++
	t.lastRun = time.Now()
	t.lastErr = err
	t.mu.Unlock()
}

type panicError struct{}

func (panicError) Error() string { return "task panicked" }

var errPanic error = panicError{}

// Remove stops and removes a task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		close(t.stopCh)
		delete(s.tasks, name)
	}
}

// Stop stops all tasks.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// ListTickers returns the names of all registered tasks, sorted.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status reports every registered task, sorted by name.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	out := make([]TaskStatus, 0, len(tasks))
	for _, t := range tasks {
		t.mu.Lock()
		st := TaskStatus{Name: t.name, Interval: t.interval, Runs: t.runs, LastRun: t.lastRun}
		if t.lastErr != nil {
			st.LastError = t.lastErr.Error()
		}
		t.mu.Unlock()
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Probe remembers whether its last check passed. It starts out not ready.
type Probe struct {
	check func(ctx context.Context) error
	ready atomic.Bool
}

// NewProbe wraps check.
func NewProbe(check func(ctx context.Context) error) *Probe {
	return &Probe{check: check}
}

// Run performs the check and records the outcome. It is a TaskFn.
func (p *Probe) Run(ctx context.Context) error {
	err := p.check(ctx)
	p.ready.Store(err == nil)
	return err
}

// Ready reports the outcome of the last Run.
func (p *Probe) Ready() bool {
	return p.ready.Load()
}
