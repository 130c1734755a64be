package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/procurex/order-relay/internal/domain/model"
)

type WSHandler struct {
	logger   *slog.Logger
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, hub *Hub) *WSHandler {
	return &WSHandler{
		logger: logger,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and pumps the order's feed until either
// side goes away.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_req_id")
	if !model.ValidWireID(orderID) {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", slog.Any("err", err))
		return
	}
	defer ws.Close()

	sub := h.hub.Subscribe(r.Context(), orderID)
	defer h.hub.Unsubscribe(orderID, sub.ID)

	h.logger.Info("feed attached",
		slog.String("order_id", orderID),
		slog.String("sub_id", sub.ID.String()),
	)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("feed event marshal failed", slog.Any("err", err))
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn("feed send failed", slog.Any("err", err))
				return
			}
		}
	}
}
