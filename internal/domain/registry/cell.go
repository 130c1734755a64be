package registry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/procurex/order-relay/internal/domain/fault"
	"github.com/procurex/order-relay/internal/domain/model"
)

// OrderCell is the isolated coordination unit for a single order.
//
// It pairs the order snapshot with a bounded FIFO mailbox of signals. HTTP
// handlers enqueue, the one streaming consumer dequeues; the mailbox outlives
// consumer absence so a reconnect within the order's lifetime sees everything
// enqueued while disconnected.
type OrderCell struct {
	// mu serialises all order mutation. Reads take a snapshot copy so the
	// proposals slice can grow but never shrink under a reader.
	mu    sync.RWMutex
	order model.Order

	// mailbox decouples producers from the stream consumer. It is never
	// closed; Drop signals teardown through done so late enqueues cannot
	// panic producers.
	mailbox chan model.Signal
	done    chan struct{}
	dropOnce sync.Once
	dropped  atomic.Uint64

	// pending holds signals a consumer popped but could not deliver. Dequeue
	// drains it before the mailbox so requeued signals keep their place at
	// the head of the queue.
	pending []model.Signal

	// cancels holds per-order background work (notification fan-out tasks)
	// torn down by the sweeper, not by stream disconnect.
	cancels sync.Map // map[string]context.CancelFunc

	logger *slog.Logger
}

func newOrderCell(orderID, session string, expiryAt time.Time, capacity int, logger *slog.Logger) *OrderCell {
	return &OrderCell{
		order: model.Order{
			OrderID:  orderID,
			Session:  session,
			ExpiryAt: expiryAt,
		},
		mailbox: make(chan model.Signal, capacity),
		done:    make(chan struct{}),
		logger:  logger.With(slog.String("order_id", orderID)),
	}
}

func (c *OrderCell) OrderID() string { return c.order.OrderID }

func (c *OrderCell) ExpiryAt() time.Time { return c.order.ExpiryAt }

func (c *OrderCell) Expired(now time.Time) bool { return c.order.Expired(now) }

// Snapshot returns a consistent copy of the order. Slices are copied so the
// caller can iterate without holding any lock.
func (c *OrderCell) Snapshot() model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := c.order
	snap.Sellers = append([]model.SellerEntry(nil), c.order.Sellers...)
	snap.Proposals = append([]model.Proposal(nil), c.order.Proposals...)
	snap.Notes = append([]model.Note(nil), c.order.Notes...)
	return snap
}

// HasProposal reports whether the proposal id is known to this order.
func (c *OrderCell) HasProposal(proposalID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Proposal(proposalID) != nil
}

// ProposalStatus returns the current status of one proposal.
func (c *OrderCell) ProposalStatus(proposalID string) (model.ProposalStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.order.Proposal(proposalID)
	if p == nil {
		return "", fault.New(fault.NotFound, "proposal %s not found on order %s", proposalID, c.order.OrderID)
	}
	return p.Status, nil
}

// SetSellers writes the selector result exactly once.
func (c *OrderCell) SetSellers(sellers []model.SellerEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.order.Sellers != nil {
		return fault.New(fault.Conflict, "sellers already selected for order %s", c.order.OrderID)
	}
	c.order.Sellers = append([]model.SellerEntry(nil), sellers...)
	return nil
}

// AppendProposal appends a new proposal; proposal ids are unique per order.
func (c *OrderCell) AppendProposal(p model.Proposal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.order.Proposal(p.ProposalID) != nil {
		return fault.New(fault.Conflict, "proposal %s already exists on order %s", p.ProposalID, c.order.OrderID)
	}
	c.order.Proposals = append(c.order.Proposals, p)
	return nil
}

// SetProposalStatus transitions one proposal's mirrored status.
func (c *OrderCell) SetProposalStatus(proposalID string, status model.ProposalStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.order.Proposal(proposalID)
	if p == nil {
		return fault.New(fault.NotFound, "proposal %s not found on order %s", proposalID, c.order.OrderID)
	}
	p.Status = status
	return nil
}

// AppendProposalNote appends a follow-up note to one proposal. Follow-up ids
// are unique within their parent proposal.
func (c *OrderCell) AppendProposalNote(proposalID string, note model.Note) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.order.Proposal(proposalID)
	if p == nil {
		return fault.New(fault.NotFound, "proposal %s not found on order %s", proposalID, c.order.OrderID)
	}
	for _, existing := range p.Notes {
		if existing.FollowUpID == note.FollowUpID {
			return fault.New(fault.Conflict, "follow-up %s already recorded on proposal %s", note.FollowUpID, proposalID)
		}
	}
	p.Notes = append(p.Notes, note)
	return nil
}

// AppendOrderNote appends a top-level follow-up on the order itself.
func (c *OrderCell) AppendOrderNote(note model.Note) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.order.Notes {
		if existing.FollowUpID == note.FollowUpID {
			return fault.New(fault.Conflict, "follow-up %s already recorded on order %s", note.FollowUpID, c.order.OrderID)
		}
	}
	c.order.Notes = append(c.order.Notes, note)
	return nil
}

// Enqueue pushes a signal without ever blocking the producer. When the
// mailbox is full the oldest signal is evicted first; recent events are worth
// more than old ones because the stream always ends with a terminal frame.
func (c *OrderCell) Enqueue(sig model.Signal) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.mailbox <- sig:
		return
	default:
	}

	// Full: drop the oldest and retry once.
	select {
	case old := <-c.mailbox:
		c.dropped.Add(1)
		c.logger.Warn("mailbox overflow, dropping oldest signal",
			slog.String("dropped", old.Wire()),
			slog.Int("capacity", cap(c.mailbox)),
		)
	default:
	}

	select {
	case c.mailbox <- sig:
	default:
		c.dropped.Add(1)
		c.logger.Warn("mailbox overflow, signal lost", slog.String("signal", sig.Wire()))
	}
}

// Requeue returns an undelivered signal to the head of the queue. A consumer
// that popped a signal and then found its client gone calls this so the next
// attach within the order's lifetime still sees it, in order.
func (c *OrderCell) Requeue(sig model.Signal) {
	select {
	case <-c.done:
		return
	default:
	}

	c.mu.Lock()
	c.pending = append(c.pending, sig)
	c.mu.Unlock()
}

func (c *OrderCell) takePending() (model.Signal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return nil, false
	}
	sig := c.pending[0]
	c.pending = c.pending[1:]
	return sig, true
}

// Dequeue blocks up to timeout for the next signal, requeued signals first.
// A false return means timeout, cancellation, or a dropped cell; the consumer
// loop treats all three as a cue to re-check expiry.
func (c *OrderCell) Dequeue(ctx context.Context, timeout time.Duration) (model.Signal, bool) {
	if sig, ok := c.takePending(); ok {
		return sig, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case sig := <-c.mailbox:
		return sig, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	case <-c.done:
		return nil, false
	}
}

// RegisterCancel records a per-order background task teardown handle.
func (c *OrderCell) RegisterCancel(id string, cancel context.CancelFunc) {
	c.cancels.Store(id, cancel)
}

// ReleaseCancel forgets a completed task without invoking it.
func (c *OrderCell) ReleaseCancel(id string) {
	c.cancels.Delete(id)
}

// CancelTasks cooperatively stops all registered background work.
func (c *OrderCell) CancelTasks() {
	c.cancels.Range(func(key, val any) bool {
		val.(context.CancelFunc)()
		c.cancels.Delete(key)
		return true
	})
}

// Drop retires the mailbox. Idempotent; safe against concurrent producers
// because the channel itself is never closed.
func (c *OrderCell) Drop() {
	c.dropOnce.Do(func() {
		close(c.done)
		c.CancelTasks()
	})
}

// QueueDepth reports the number of buffered signals, requeued ones included.
func (c *OrderCell) QueueDepth() int {
	c.mu.RLock()
	n := len(c.pending)
	c.mu.RUnlock()
	return n + len(c.mailbox)
}

// Dropped reports how many signals were lost to overflow.
func (c *OrderCell) Dropped() uint64 { return c.dropped.Load() }
