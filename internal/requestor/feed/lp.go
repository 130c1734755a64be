package feed

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/procurex/order-relay/internal/domain/model"
)

const (
	pollTimeout = 30 * time.Second
	pollBatch   = 15
)

// LPHandler serves the same feed over long-polling for clients that cannot
// hold a websocket.
type LPHandler struct {
	hub *Hub
}

func NewLPHandler(hub *Hub) *LPHandler {
	return &LPHandler{hub: hub}
}

// Poll holds the request until an event arrives or the poll window closes.
// The subscription lives only for this request.
func (h *LPHandler) Poll(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_req_id")
	if !model.ValidWireID(orderID) {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	sub := h.hub.Subscribe(r.Context(), orderID)
	defer h.hub.Unsubscribe(orderID, sub.ID)

	var events []Event

	select {
	case <-r.Context().Done():
		return

	case <-time.After(pollTimeout):
		w.WriteHeader(http.StatusNoContent)
		return

	case ev, ok := <-sub.C:
		if !ok {
			return
		}
		events = append(events, ev)

		// Drain what is already buffered so the client saves round trips.
	drain:
		for range pollBatch {
			select {
			case next := <-sub.C:
				events = append(events, next)
			default:
				break drain
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(events)
}
