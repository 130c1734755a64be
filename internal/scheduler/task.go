package scheduler

import (
	"context"
	"time"
)

// Priority orders tasks; lower values run first.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Task is a unit of streaming work. The work function is a closure carrying
// its own arguments; the scheduler passes nothing but the lifecycle context,
// so caller arguments can never collide with scheduler internals.
type Task struct {
	OrderID  string
	Priority Priority
	Run      func(ctx context.Context) error
}

// TaskID identifies a submitted task for later outcome lookup.
type TaskID string

// Outcome records a finished (or cancelled) task.
type Outcome struct {
	TaskID     TaskID
	OrderID    string
	Err        error
	Panicked   bool
	Cancelled  bool
	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// item is the heap entry. Ties within a priority break on the submission
// sequence number, giving FIFO order.
type item struct {
	task       Task
	id         TaskID
	seq        uint64
	enqueuedAt time.Time
}

type taskHeap []*item

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority < h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*item)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
