/*
Package registry owns the per-order coordination state of the processor.

Key architectural concepts:
  - Order Cells: every active order is represented by an isolated 'Cell' that
    encapsulates the order snapshot and its bounded signal mailbox. HTTP
    ingestion, the streaming handler, and the sweeper all reach the order
    through its cell, never through shared globals.
  - Decoupling & Backpressure: the per-order mailbox absorbs bursts from HTTP
    producers so a slow or absent stream consumer never blocks ingestion.
    Overflow drops the oldest signal; the stream closes with a terminal frame
    regardless, so losing old codes beats blocking writers.
  - Lazy lifecycle: cells are created on first touch by any surface and are
    destroyed exactly once, by the sweeper, after the order's expiry instant.
  - Concurrency: lock-free cell lookups via sync.Map; fine-grained RWMutex
    inside each cell. No cross-order locking anywhere.
*/
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/procurex/order-relay/internal/domain/model"
)

// Registrar is the gateway used by handlers and the sweeper.
type Registrar interface {
	GetOrCreate(orderID string, ttl time.Duration, session string) *OrderCell
	Get(orderID string) (*OrderCell, bool)
	Remove(orderID string) bool
	ExpiredIDs(now time.Time) []string
	All() []*OrderCell
	Stats() model.RelayStats
}

var _ Registrar = (*Registry)(nil)

// Registry maps OrderID to its single process-wide cell.
type Registry struct {
	cells     sync.Map // map[string]*OrderCell
	logger    *slog.Logger
	config    settings
	startedAt time.Time
}

type settings struct {
	queueCapacity int
	orderTTL      time.Duration
	sweepInterval time.Duration
}

func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:    logger.With(slog.String("component", "registry")),
		startedAt: time.Now(),
		config: settings{
			queueCapacity: 1024,
			orderTTL:      30 * time.Minute,
			sweepInterval: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the cell for orderID, creating it lazily on first touch.
// Idempotent: an existing cell is returned unchanged, in particular its
// expiry instant is never reset or extended.
func (r *Registry) GetOrCreate(orderID string, ttl time.Duration, session string) *OrderCell {
	if val, ok := r.cells.Load(orderID); ok {
		return val.(*OrderCell)
	}

	if ttl <= 0 {
		ttl = r.config.orderTTL
	}
	fresh := newOrderCell(orderID, session, time.Now().Add(ttl), r.config.queueCapacity, r.logger)

	val, loaded := r.cells.LoadOrStore(orderID, fresh)
	if loaded {
		// Lost the race; discard our cell so its mailbox is not leaked.
		fresh.Drop()
	}
	return val.(*OrderCell)
}

// Get returns the cell when present. Unknown ids are an absence, not an error.
func (r *Registry) Get(orderID string) (*OrderCell, bool) {
	val, ok := r.cells.Load(orderID)
	if !ok {
		return nil, false
	}
	return val.(*OrderCell), true
}

// Remove destroys the cell and its mailbox. Returns false when already gone.
func (r *Registry) Remove(orderID string) bool {
	val, ok := r.cells.LoadAndDelete(orderID)
	if !ok {
		return false
	}
	val.(*OrderCell).Drop()
	return true
}

// ExpiredIDs returns the ids whose expiry instant is at or before now.
// Read-only; the sweeper owns the actual removal.
func (r *Registry) ExpiredIDs(now time.Time) []string {
	var ids []string
	r.cells.Range(func(key, val any) bool {
		if val.(*OrderCell).Expired(now) {
			ids = append(ids, key.(string))
		}
		return true
	})
	return ids
}

// All snapshots every active cell.
func (r *Registry) All() []*OrderCell {
	var cells []*OrderCell
	r.cells.Range(func(_, val any) bool {
		cells = append(cells, val.(*OrderCell))
		return true
	})
	return cells
}

// Stats aggregates the live state for the monitor surface.
func (r *Registry) Stats() model.RelayStats {
	stats := model.RelayStats{Uptime: time.Since(r.startedAt)}
	r.cells.Range(func(_, val any) bool {
		cell := val.(*OrderCell)
		snap := cell.Snapshot()
		stats.ActiveOrders++
		stats.QueuedSignals += cell.QueueDepth()
		stats.DroppedSignals += cell.Dropped()
		stats.Orders = append(stats.Orders, model.OrderStats{
			OrderID:    snap.OrderID,
			QueueDepth: cell.QueueDepth(),
			Proposals:  len(snap.Proposals),
			ExpiryAt:   snap.ExpiryAt,
		})
		return true
	})
	return stats
}

// SweepInterval exposes the configured janitor cadence.
func (r *Registry) SweepInterval() time.Duration { return r.config.sweepInterval }
