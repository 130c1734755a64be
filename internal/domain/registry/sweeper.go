package registry

import (
	"context"
	"log/slog"
	"time"
)

// ExpireFunc runs once per expired order before its state is removed. The
// processor wires persistence (OrderPaused) and failure notifications here;
// errors are the hook's own problem and never stop the sweep.
type ExpireFunc func(ctx context.Context, cell *OrderCell)

// Sweeper is the janitor enforcing order lifetimes. It is the only component
// allowed to destroy cells: stream disconnects and expiry frames leave state
// in place so late follow-ups stay deliverable until the deadline truly hits.
type Sweeper struct {
	registry *Registry
	onExpire ExpireFunc
	logger   *slog.Logger
}

func NewSweeper(registry *Registry, onExpire ExpireFunc, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		registry: registry,
		onExpire: onExpire,
		logger:   logger.With(slog.String("component", "sweeper")),
	}
}

// Run loops until ctx is cancelled, scanning every sweep interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.registry.SweepInterval())
	defer ticker.Stop()

	s.logger.Info("sweeper started", slog.Duration("interval", s.registry.SweepInterval()))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case now := <-ticker.C:
			s.Sweep(ctx, now)
		}
	}
}

// Sweep removes every order past deadline. Each cleanup is independent; a
// failing hook is logged and the remaining orders are still processed.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) {
	for _, orderID := range s.registry.ExpiredIDs(now) {
		cell, ok := s.registry.Get(orderID)
		if !ok {
			continue
		}

		// Stop per-order background work before state goes away.
		cell.CancelTasks()

		if s.onExpire != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						s.logger.Error("expiry hook panicked",
							slog.String("order_id", orderID),
							slog.Any("panic", r),
						)
					}
				}()
				s.onExpire(ctx, cell)
			}()
		}

		s.registry.Remove(orderID)
		s.logger.Info("expired order removed",
			slog.String("order_id", orderID),
			slog.Time("expiry_at", cell.ExpiryAt()),
		)
	}
}
