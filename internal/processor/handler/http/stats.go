package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/procurex/order-relay/internal/domain/registry"
	"github.com/procurex/order-relay/internal/scheduler"
)

// StatsHandler serves the runtime snapshot the monitor command renders.
type StatsHandler struct {
	logger    *slog.Logger
	registry  registry.Registrar
	scheduler *scheduler.Scheduler
}

func NewStatsHandler(logger *slog.Logger, reg registry.Registrar, sched *scheduler.Scheduler) *StatsHandler {
	return &StatsHandler{logger: logger, registry: reg, scheduler: sched}
}

func (h *StatsHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	stats := h.registry.Stats()
	if h.scheduler != nil {
		stats.Scheduler = h.scheduler.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Warn("stats write failed", slog.Any("err", err))
	}
}
