package model

import "time"

// RelayStats is the snapshot served on /internal/stats and rendered by the
// monitor command.
type RelayStats struct {
	ActiveOrders   int             `json:"active_orders"`
	QueuedSignals  int             `json:"queued_signals"`
	DroppedSignals uint64          `json:"dropped_signals"`
	Uptime         time.Duration   `json:"uptime"`
	Scheduler      SchedulerStats  `json:"scheduler"`
	Orders         []OrderStats    `json:"orders,omitempty"`
}

// OrderStats describes one active order cell.
type OrderStats struct {
	OrderID    string    `json:"order_id"`
	QueueDepth int       `json:"queue_depth"`
	Proposals  int       `json:"proposals"`
	ExpiryAt   time.Time `json:"expiry_at"`
}

// SchedulerStats describes the priority worker pool.
type SchedulerStats struct {
	Width     int `json:"width"`
	Running   int `json:"running"`
	Queued    int `json:"queued"`
	Completed int `json:"completed"`
}
