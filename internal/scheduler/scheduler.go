// Package scheduler bounds concurrent streaming work with a fixed-width
// worker pool draining a priority heap. At most width tasks execute at any
// instant; excess work queues by priority, FIFO within a priority.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/procurex/order-relay/internal/domain/model"
)

// ErrShutdown is returned by Submit after Shutdown has been called.
var ErrShutdown = errors.New("scheduler: shut down")

// Scheduler runs tasks on a bounded pool with cooperative cancellation.
type Scheduler struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     taskHeap
	outcomes  map[TaskID]*Outcome
	seq       uint64
	running   int
	completed int
	closed    bool

	width  int
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewScheduler starts width workers immediately. Width defaults to 10 when
// non-positive.
func NewScheduler(width int, logger *slog.Logger) *Scheduler {
	if width <= 0 {
		width = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		width:    width,
		outcomes: make(map[TaskID]*Outcome),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
	s.cond = sync.NewCond(&s.mu)

	s.wg.Add(width)
	for i := 0; i < width; i++ {
		go s.worker()
	}
	return s
}

// Submit queues a task and returns its id for outcome lookup.
func (s *Scheduler) Submit(task Task) (TaskID, error) {
	if task.Run == nil {
		return "", errors.New("scheduler: task has no work function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrShutdown
	}

	s.seq++
	it := &item{
		task:       task,
		id:         TaskID(uuid.NewString()),
		seq:        s.seq,
		enqueuedAt: time.Now(),
	}
	heap.Push(&s.queue, it)
	s.cond.Signal()

	s.logger.Debug("task queued",
		slog.String("task_id", string(it.id)),
		slog.String("order_id", task.OrderID),
		slog.String("priority", task.Priority.String()),
	)
	return it.id, nil
}

// Result returns the recorded outcome of a finished task, if still retained.
func (s *Scheduler) Result(id TaskID) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, ok := s.outcomes[id]
	if !ok {
		return Outcome{}, false
	}
	return *out, true
}

// CleanupOlderThan ages out outcomes finished before now-retention.
func (s *Scheduler) CleanupOlderThan(retention time.Duration) {
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, out := range s.outcomes {
		if out.FinishedAt.Before(cutoff) {
			delete(s.outcomes, id)
		}
	}
}

// Shutdown cancels queued tasks, signals running ones through their context,
// and waits for the workers to drain.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	// Queued work never runs; record it as cancelled so Result stays honest.
	now := time.Now()
	for s.queue.Len() > 0 {
		it := heap.Pop(&s.queue).(*item)
		s.outcomes[it.id] = &Outcome{
			TaskID:     it.id,
			OrderID:    it.task.OrderID,
			Cancelled:  true,
			EnqueuedAt: it.enqueuedAt,
			FinishedAt: now,
		}
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler drained")
}

// Stats snapshots pool utilisation for the monitor surface.
func (s *Scheduler) Stats() model.SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SchedulerStats{
		Width:     s.width,
		Running:   s.running,
		Queued:    s.queue.Len(),
		Completed: s.completed,
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		for s.queue.Len() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && s.queue.Len() == 0 {
			s.mu.Unlock()
			return
		}
		it := heap.Pop(&s.queue).(*item)
		s.running++
		s.mu.Unlock()

		out := s.execute(it)

		s.mu.Lock()
		s.running--
		s.completed++
		s.outcomes[it.id] = out
		s.mu.Unlock()
	}
}

// execute runs exactly one task, converting panics into recorded errors so a
// misbehaving work function releases its slot instead of killing the pool.
func (s *Scheduler) execute(it *item) (out *Outcome) {
	out = &Outcome{
		TaskID:     it.id,
		OrderID:    it.task.OrderID,
		EnqueuedAt: it.enqueuedAt,
		StartedAt:  time.Now(),
	}
	defer func() {
		if r := recover(); r != nil {
			out.Panicked = true
			out.Err = fmt.Errorf("task panic: %v", r)
			s.logger.Error("task panicked",
				slog.String("task_id", string(it.id)),
				slog.String("order_id", it.task.OrderID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
		out.FinishedAt = time.Now()
	}()

	out.Err = it.task.Run(s.ctx)
	if out.Err != nil {
		s.logger.Warn("task finished with error",
			slog.String("task_id", string(it.id)),
			slog.String("order_id", it.task.OrderID),
			slog.Any("err", out.Err),
		)
	}
	return out
}
