// Package tracker keeps the buyer-side view of active orders. It is the
// authority for duplicate-stream prevention: one stream consumer per order,
// no matter how many initiate requests arrive.
package tracker

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/procurex/order-relay/internal/domain/model"
)

// Track is the client-side record of one order.
type Track struct {
	OrderID string
	Session string

	mu    sync.Mutex
	notes []model.Note

	streamActive atomic.Bool
}

// AppendNote records an order-level note locally after the durable write.
func (t *Track) AppendNote(n model.Note) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notes = append(t.notes, n)
}

// Notes returns a copy of the recorded notes.
func (t *Track) Notes() []model.Note {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Note, len(t.notes))
	copy(out, t.notes)
	return out
}

// ClaimStream flips the order to stream-active. It returns false when a
// consumer already holds the claim, which is the duplicate-initiate case.
func (t *Track) ClaimStream() bool {
	return t.streamActive.CompareAndSwap(false, true)
}

// ReleaseStream marks the consumer gone. Idempotent.
func (t *Track) ReleaseStream() {
	t.streamActive.Store(false)
}

func (t *Track) StreamActive() bool {
	return t.streamActive.Load()
}

// Tracker maps OrderID to its track. Lookups are lock-free after first touch.
type Tracker struct {
	tracks sync.Map // map[string]*Track
	logger *slog.Logger
}

func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// Touch returns the track for orderID, creating it on first contact. The
// session is fixed by whichever caller wins the insert race.
func (tr *Tracker) Touch(orderID, session string) *Track {
	if val, ok := tr.tracks.Load(orderID); ok {
		return val.(*Track)
	}

	fresh := &Track{OrderID: orderID, Session: session}
	val, loaded := tr.tracks.LoadOrStore(orderID, fresh)
	if !loaded {
		tr.logger.Debug("order tracked", slog.String("order_id", orderID))
	}
	return val.(*Track)
}

func (tr *Tracker) Get(orderID string) (*Track, bool) {
	val, ok := tr.tracks.Load(orderID)
	if !ok {
		return nil, false
	}
	return val.(*Track), true
}

// Remove drops the track. Used when an order reaches a terminal state.
func (tr *Tracker) Remove(orderID string) {
	tr.tracks.Delete(orderID)
}
