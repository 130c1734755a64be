// Package monitor renders a terminal dashboard over a running relay's
// /internal/stats endpoint.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/procurex/order-relay/internal/domain/model"
)

type Monitor struct {
	endpoint string
	refresh  time.Duration
	http     *http.Client
}

func New(endpoint string, refresh time.Duration) *Monitor {
	return &Monitor{
		endpoint: endpoint,
		refresh:  refresh,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Run owns the terminal until the user quits or ctx ends.
func (m *Monitor) Run(ctx context.Context) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("terminal init: %w", err)
	}
	defer ui.Close()

	header := widgets.NewParagraph()
	header.Title = "order-relay"
	header.SetRect(0, 0, 80, 3)

	pool := widgets.NewGauge()
	pool.Title = "scheduler"
	pool.SetRect(0, 3, 80, 6)

	orders := widgets.NewTable()
	orders.Title = "active orders"
	orders.RowSeparator = false
	orders.SetRect(0, 6, 80, 24)

	draw := func() {
		stats, err := m.fetch(ctx)
		if err != nil {
			header.Text = fmt.Sprintf("unreachable: %v", err)
			ui.Render(header)
			return
		}

		header.Text = fmt.Sprintf("orders=%d queued=%d dropped=%d uptime=%s",
			stats.ActiveOrders, stats.QueuedSignals, stats.DroppedSignals,
			stats.Uptime.Round(time.Second))

		if stats.Scheduler.Width > 0 {
			pool.Percent = 100 * stats.Scheduler.Running / stats.Scheduler.Width
		}
		pool.Label = fmt.Sprintf("running=%d/%d queued=%d completed=%d",
			stats.Scheduler.Running, stats.Scheduler.Width,
			stats.Scheduler.Queued, stats.Scheduler.Completed)

		orders.Rows = orderRows(stats.Orders)

		ui.Render(header, pool, orders)
	}

	draw()

	events := ui.PollEvents()
	ticker := time.NewTicker(m.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				draw()
			}
		case <-ticker.C:
			draw()
		}
	}
}

func (m *Monitor) fetch(ctx context.Context) (model.RelayStats, error) {
	var stats model.RelayStats

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint, nil)
	if err != nil {
		return stats, err
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return stats, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("stats endpoint returned %d", resp.StatusCode)
	}
	return stats, json.NewDecoder(resp.Body).Decode(&stats)
}

func orderRows(orders []model.OrderStats) [][]string {
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderID < orders[j].OrderID })

	rows := [][]string{{"order", "queue", "proposals", "expires in"}}
	for _, o := range orders {
		rows = append(rows, []string{
			o.OrderID,
			fmt.Sprintf("%d", o.QueueDepth),
			fmt.Sprintf("%d", o.Proposals),
			time.Until(o.ExpiryAt).Round(time.Second).String(),
		})
	}
	return rows
}
