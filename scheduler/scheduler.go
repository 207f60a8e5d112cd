// Package scheduler implements the runtime's timed-task facility (spec.md
// §4.8): one-shot and repeating callbacks with idempotent cancellation, plus
// a cron-expression variant enriching the spec (SPEC_FULL §2) on top of
// github.com/robfig/cron/v3.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cancellable is returned by every scheduling operation. Cancel is
// idempotent: the first call returns true and prevents any further firing,
// and later calls return false. A first Cancel on a one-shot task that has
// already fired still returns true.
type Cancellable interface {
	Cancel() bool
}

type timerCancellable struct {
	mu        sync.Mutex
	timer     *time.Timer
	ticker    *time.Ticker
	cancelled bool
	stop      chan struct{}
}

func (c *timerCancellable) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return false
	}
	c.cancelled = true
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.ticker != nil {
		c.ticker.Stop()
	}
	if c.stop != nil {
		close(c.stop)
	}
	return true
}

func (c *timerCancellable) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

type cronCancellable struct {
	mu        sync.Mutex
	cron      *cron.Cron
	id        cron.EntryID
	cancelled bool
}

func (c *cronCancellable) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return false
	}
	c.cancelled = true
	c.cron.Remove(c.id)
	return true
}

// ErrClosed is returned by any scheduling call made after Close.
type ErrClosed struct{}

func (ErrClosed) Error() string { return "scheduler: closed" }

// Scheduler owns every outstanding timed task for a Stage.
type Scheduler struct {
	mu     sync.Mutex
	closed bool
	tasks  map[Cancellable]struct{}
	cron   *cron.Cron
	log    *zap.SugaredLogger
}

// New constructs a Scheduler. log may be nil, in which case a no-op logger
// is used.
func New(log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		tasks: make(map[Cancellable]struct{}),
		cron:  cron.New(),
		log:   log,
	}
}

func (s *Scheduler) track(c Cancellable) {
	s.mu.Lock()
	s.tasks[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Scheduler) untrack(c Cancellable) {
	s.mu.Lock()
	delete(s.tasks, c)
	s.mu.Unlock()
}

func (s *Scheduler) safeInvoke(callback func(data interface{}), data interface{}) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("scheduled callback panicked", "panic", r)
		}
	}()
	callback(data)
}

// ScheduleOnce fires callback(data) once after delay. Returns a Cancellable.
func (s *Scheduler) ScheduleOnce(callback func(data interface{}), data interface{}, delay time.Duration) (Cancellable, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed{}
	}
	s.mu.Unlock()

	c := &timerCancellable{}
	c.timer = time.AfterFunc(delay, func() {
		if c.isCancelled() {
			return
		}
		s.safeInvoke(callback, data)
		s.untrack(c)
	})
	s.track(c)
	return c, nil
}

// Schedule fires callback(data) once after initialDelay, then repeatedly
// every interval until cancelled.
func (s *Scheduler) Schedule(callback func(data interface{}), data interface{}, initialDelay, interval time.Duration) (Cancellable, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed{}
	}
	s.mu.Unlock()

	c := &timerCancellable{stop: make(chan struct{})}
	go func() {
		timer := time.NewTimer(initialDelay)
		defer timer.Stop()

		select {
		case <-c.stop:
			return
		case <-timer.C:
		}
		if c.isCancelled() {
			return
		}
		s.safeInvoke(callback, data)

		ticker := time.NewTicker(interval)
		c.mu.Lock()
		c.ticker = ticker
		c.mu.Unlock()
		defer ticker.Stop()

		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				if c.isCancelled() {
					return
				}
				s.safeInvoke(callback, data)
			}
		}
	}()
	s.track(c)
	return c, nil
}

// ScheduleCron fires callback(nil) on each match of the given cron
// expression (standard five-field syntax), until cancelled. This enriches
// the spec's fixed once/repeating primitives (SPEC_FULL §2).
func (s *Scheduler) ScheduleCron(expr string, callback func(data interface{})) (Cancellable, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed{}
	}
	s.mu.Unlock()

	id, err := s.cron.AddFunc(expr, func() {
		s.safeInvoke(callback, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron expression %q: %w", expr, err)
	}
	c := &cronCancellable{cron: s.cron, id: id}
	s.track(c)
	return c, nil
}

// Close cancels every outstanding task. Subsequent scheduling calls fail
// with ErrClosed. Idempotent.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	tasks := make([]Cancellable, 0, len(s.tasks))
	for c := range s.tasks {
		tasks = append(tasks, c)
	}
	s.tasks = nil
	cronRunner := s.cron
	s.mu.Unlock()

	for _, c := range tasks {
		c.Cancel()
	}
	cronRunner.Stop()
}

// Start begins running any cron entries added via ScheduleCron. Stage calls
// this once after constructing the Scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Start()
}
