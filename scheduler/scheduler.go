// Package scheduler drives periodic and delayed work on wall-clock timers
// and keeps per-task run statistics.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks.
type TaskFn func()

// TaskStats describes one periodic task.
type TaskStats struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Runs     uint64        `json:"runs"`
	Panics   uint64        `json:"panics"`
	// Overruns counts runs that took longer than the interval.
	Overruns uint64        `json:"overruns"`
	LastRun  time.Duration `json:"last_run"`
	MaxRun   time.Duration `json:"max_run"`
}

// Scheduler manages periodic and delayed tasks.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*task
	timers map[string]*time.Timer
	logger *zap.Logger
	stopCh chan struct{}
	once   sync.Once
}

type task struct {
	stopCh chan struct{}
	mu     sync.Mutex
	stats  TaskStats
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		tasks:  make(map[string]*task),
		timers: make(map[string]*time.Timer),
		stopCh: make(chan struct{}),
		logger: logger,
	}
}

// AddTicker runs fn every interval on its own goroutine. A task with the
// same name is replaced. A run that is still going when the next tick is
// due delays that tick; the ticker drops the ticks it missed.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[name]; ok {
		close(old.stopCh)
	}
	t := &task{
		stopCh: make(chan struct{}),
		stats:  TaskStats{Name: name, Interval: interval},
	}
	s.tasks[name] = t

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
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
	start := time.Now()
	panicked := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				s.logger.Error("scheduler task panicked",
					zap.String("task", t.stats.Name),
					zap.Any("recover", r))
			}
		}()
		fn()
	}()
	elapsed := time.Since(start)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Runs++
	t.stats.LastRun = elapsed
	t.stats.MaxRun = max(t.stats.MaxRun, elapsed)
	if panicked {
		t.stats.Panics++
	}
	if elapsed > t.stats.Interval {
		t.stats.Overruns++
	}
}

// AddDelay runs fn once after the given delay.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[name]; ok {
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("delay task panicked",
					zap.String("task", name), zap.Any("recover", r))
			}
			s.mu.Lock()
			if s.timers[name] == timer {
				delete(s.timers, name)
			}
			s.mu.Unlock()
		}()
		fn()
	})
	s.timers[name] = timer
}

// Remove stops and removes a ticker or delay task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		close(t.stopCh)
		delete(s.tasks, name)
	}
	if timer, ok := s.timers[name]; ok {
		timer.Stop()
		delete(s.timers, name)
	}
}

// Stop stops all tasks. Pending delays are cancelled.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, timer := range s.timers {
		timer.Stop()
		delete(s.timers, name)
	}
}

// Stats returns the statistics of every periodic task, sorted by name.
func (s *Scheduler) Stats() []TaskStats {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	out := make([]TaskStats, len(tasks))
	for i, t := range tasks {
		t.mu.Lock()
		out[i] = t.stats
		t.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListTickers returns the names of all registered ticker tasks.
func (s *Scheduler) ListTickers() []string {
	stats := s.Stats()
	names := make([]string, len(stats))
	for i, st := range stats {
		names[i] = st.Name
	}
	return names
}
