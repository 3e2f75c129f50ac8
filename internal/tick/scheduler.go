package tick

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Period is a time-of-day bucket used by scheduled NPC behavior.
type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
	Evening   Period = "evening"
	Night     Period = "night"
)

// PeriodAt maps an hour of the day onto its period.
func PeriodAt(t time.Time) Period {
	switch hour := t.Hour(); {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	case hour >= 18:
		return Evening
	default:
		return Night
	}
}

// ErrUnregister is returned by a task to remove itself from the scheduler.
var ErrUnregister = errors.New("unregister task")

// TaskFunc runs on the scheduler's tick goroutine pool.
type TaskFunc func(ctx context.Context) error

type task struct {
	fn       TaskFunc
	interval time.Duration
	lastRun  time.Time
	enabled  bool
}

// Scheduler runs registered tasks at per-task intervals off a single base
// ticker, and watches for time-of-day period changes. It is a worker; Start
// blocks until the context is canceled.
type Scheduler struct {
	mu          sync.Mutex
	tasks       map[string]*task
	periodHooks []func(old, new Period)
	period      Period

	interval time.Duration
	now      func() time.Time
}

func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	s := &Scheduler{
		tasks:    map[string]*task{},
		interval: interval,
		now:      time.Now,
	}
	s.period = PeriodAt(s.now())
	return s
}

// Register adds a task. Returns false if the id is already taken.
func (s *Scheduler) Register(id string, interval time.Duration, fn TaskFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; ok {
		slog.Warn("task already registered", "task", id)
		return false
	}

	s.tasks[id] = &task{
		fn:       fn,
		interval: interval,
		lastRun:  s.now(),
		enabled:  true,
	}
	slog.Debug("registered task", "task", id, "interval", interval)
	return true
}

func (s *Scheduler) Unregister(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	return true
}

func (s *Scheduler) Enable(id string) bool {
	return s.setEnabled(id, true)
}

func (s *Scheduler) Disable(id string) bool {
	return s.setEnabled(id, false)
}

func (s *Scheduler) setEnabled(id string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	t.enabled = enabled
	return true
}

// ForceWake makes a task due on the next tick, regardless of its interval.
func (s *Scheduler) ForceWake(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[id]; ok {
		t.lastRun = time.Time{}
	}
}

// OnPeriodChange registers a hook called when the time-of-day bucket rolls
// over. Hooks run on the tick goroutine before that tick's tasks.
func (s *Scheduler) OnPeriodChange(fn func(old, new Period)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periodHooks = append(s.periodHooks, fn)
}

func (s *Scheduler) CurrentPeriod() Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Start runs the tick loop until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "tick scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "tick scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduler pass: period-change hooks first, then every due
// task. Due tasks run concurrently; the pass waits for all of them so a slow
// task can never pile up on itself.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	newPeriod := PeriodAt(now)
	var hooks []func(old, new Period)
	oldPeriod := s.period
	if newPeriod != oldPeriod {
		s.period = newPeriod
		hooks = append(hooks, s.periodHooks...)
	}

	type due struct {
		id string
		fn TaskFunc
	}
	var dueTasks []due
	for id, t := range s.tasks {
		if !t.enabled {
			continue
		}
		if now.Sub(t.lastRun) >= t.interval {
			t.lastRun = now
			dueTasks = append(dueTasks, due{id: id, fn: t.fn})
		}
	}
	s.mu.Unlock()

	if len(hooks) > 0 {
		slog.Info("time period changed", "from", oldPeriod, "to", newPeriod)
		for _, hook := range hooks {
			hook(oldPeriod, newPeriod)
		}
	}

	var wg sync.WaitGroup
	for _, d := range dueTasks {
		wg.Add(1)
		go func(d due) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("scheduled task panicked", "task", d.id, "panic", r)
				}
			}()

			err := d.fn(ctx)
			switch {
			case errors.Is(err, ErrUnregister):
				s.Unregister(d.id)
			case err != nil:
				slog.Error("scheduled task failed", "task", d.id, "error", err)
			}
		}(d)
	}
	wg.Wait()
}
