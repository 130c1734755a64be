// Package feed distributes buyer notifications to attached transports
// (websocket, long-poll). Every order with at least one watcher gets an
// isolated cell with its own mailbox, so one slow browser never stalls the
// bus consumer or other orders.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one buyer-facing feed entry.
type Event struct {
	OrderID    string    `json:"order_id"`
	Kind       string    `json:"kind"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

const subscriberBuffer = 64

// Subscription is one attached transport. Events arrives on C; the feed
// closes C when the subscription is dropped.
type Subscription struct {
	ID uuid.UUID
	C  <-chan Event

	ch chan Event
}

type cell struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

func (c *cell) push(ev Event) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	delivered := 0
	for _, sub := range c.subs {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			// Full subscriber buffer: the watcher is too slow, drop for it
			// rather than block the consumer.
		}
	}
	return delivered
}

// Hub maps OrderID to its feed cell.
type Hub struct {
	cells  sync.Map // map[string]*cell
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{logger: logger}
}

// Subscribe attaches a watcher to an order's feed. The cell is created
// lazily; the transport must call Unsubscribe when done.
func (h *Hub) Subscribe(_ context.Context, orderID string) *Subscription {
	val, _ := h.cells.LoadOrStore(orderID, &cell{subs: make(map[uuid.UUID]*Subscription)})
	c := val.(*cell)

	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{ID: uuid.New(), C: ch, ch: ch}

	c.mu.Lock()
	c.subs[sub.ID] = sub
	c.mu.Unlock()

	return sub
}

// Unsubscribe detaches a watcher and purges the cell when it was the last one.
func (h *Hub) Unsubscribe(orderID string, subID uuid.UUID) {
	val, ok := h.cells.Load(orderID)
	if !ok {
		return
	}
	c := val.(*cell)

	c.mu.Lock()
	sub, ok := c.subs[subID]
	if ok {
		delete(c.subs, subID)
		close(sub.ch)
	}
	empty := len(c.subs) == 0
	c.mu.Unlock()

	if empty {
		h.cells.Delete(orderID)
	}
}

// HasWatchers reports whether anyone is attached to the order's feed. The
// bus consumer uses it as a locality filter: messages for orders watched
// elsewhere are acked untouched.
func (h *Hub) HasWatchers(orderID string) bool {
	_, ok := h.cells.Load(orderID)
	return ok
}

// Broadcast fans an event out to every watcher of its order. Returns the
// number of subscribers reached.
func (h *Hub) Broadcast(ev Event) int {
	val, ok := h.cells.Load(ev.OrderID)
	if !ok {
		return 0
	}
	return val.(*cell).push(ev)
}
