package registry

import "time"

// Option is a functional configuration type for the Registry.
type Option func(*Registry)

// WithQueueCapacity sets the per-order mailbox bound. Overflow evicts the
// oldest signal.
func WithQueueCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.config.queueCapacity = n
		}
	}
}

// WithOrderTTL sets the default order lifetime applied when a surface touches
// an order without naming an explicit expiry duration.
func WithOrderTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.config.orderTTL = d
		}
	}
}

// WithSweepInterval sets how often the sweeper scans for expired orders.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.config.sweepInterval = d
		}
	}
}
