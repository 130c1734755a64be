// Package http exposes the buyer-facing ingress of the requestor: order
// initiation, order-level follow-ups, and the finalize/pause transitions.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/infra/server/grpc/interceptors"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/domain/fault"
	"github.com/procurex/order-relay/internal/domain/model"
	"github.com/procurex/order-relay/internal/requestor/stream"
	"github.com/procurex/order-relay/internal/requestor/tracker"
	"google.golang.org/grpc/metadata"
)

// OrderStore is the slice of the persistence facade the buyer side needs.
type OrderStore interface {
	SaveOrderFollowUp(ctx context.Context, orderID string, fu model.FollowUp) (string, error)
	SetOrderStatus(ctx context.Context, orderID, status string) error
}

type OrderHandler struct {
	logger   *slog.Logger
	tracker  *tracker.Tracker
	consumer *stream.Consumer
	store    OrderStore
	rpc      orderspb.OrderEventsClient
	notifier pubsub.Notifier
}

func NewOrderHandler(logger *slog.Logger, tr *tracker.Tracker, consumer *stream.Consumer, store OrderStore, rpc orderspb.OrderEventsClient, notifier pubsub.Notifier) *OrderHandler {
	return &OrderHandler{
		logger:   logger,
		tracker:  tr,
		consumer: consumer,
		store:    store,
		rpc:      rpc,
		notifier: notifier,
	}
}

type initiateRequest struct {
	OrderReqID       string `json:"order_req_id"`
	Session          string `json:"session,omitempty"`
	NotificationType string `json:"notification_type,omitempty"`
}

type initiateResponse struct {
	OrderReqID string `json:"order_req_id"`
	Status     string `json:"status"`
	TaskID     string `json:"task_id,omitempty"`
}

// Initiate opens the order's stream consumer. Idempotent per order: while a
// consumer holds the stream claim, repeat calls short-circuit to success
// without touching the processor.
func (h *OrderHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fault.WriteHTTP(w, fault.New(fault.Validation, "malformed request body"))
		return
	}
	if !model.ValidWireID(req.OrderReqID) {
		fault.WriteHTTP(w, fault.New(fault.Validation, "order_req_id is required and must not contain '/' or '.'"))
		return
	}

	track := h.tracker.Touch(req.OrderReqID, req.Session)
	if !track.ClaimStream() {
		h.respond(w, http.StatusOK, initiateResponse{
			OrderReqID: req.OrderReqID,
			Status:     "active",
		})
		return
	}

	taskID, err := h.consumer.Start(track, req.NotificationType)
	if err != nil {
		fault.WriteHTTP(w, fault.Wrap(fault.Unavailable, err, "stream consumer not started"))
		return
	}

	h.notifier.Publish(r.Context(), pubsub.TopicBuyerAcknowledgements, pubsub.KeyOrdSubmission, pubsub.Notification{
		OrderID: req.OrderReqID,
		Session: req.Session,
		Body:    "Order " + req.OrderReqID + " initiated",
	})

	h.respond(w, http.StatusAccepted, initiateResponse{
		OrderReqID: req.OrderReqID,
		Status:     "initiated",
		TaskID:     string(taskID),
	})
}

type orderFollowUpRequest struct {
	Audience []string `json:"audience"`
	Author   string   `json:"author,omitempty"`
	Body     string   `json:"body"`
	URLs     []string `json:"urls,omitempty"`
}

type orderFollowUpResponse struct {
	OrderReqID      string                    `json:"order_req_id"`
	OrderFollowUpID string                    `json:"order_follow_up_id"`
	Results         []orderspb.FollowUpResult `json:"ns_follow_up_resp"`
}

// FollowUp records an order-level follow-up durably, then fans it out across
// the audience through the processor.
func (h *OrderHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_req_id")

	var req orderFollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fault.WriteHTTP(w, fault.New(fault.Validation, "malformed request body"))
		return
	}
	if !model.ValidWireID(orderID) {
		fault.WriteHTTP(w, fault.New(fault.Validation, "order_req_id is required and must not contain '/' or '.'"))
		return
	}
	if req.Body == "" {
		fault.WriteHTTP(w, fault.New(fault.Validation, "body is required"))
		return
	}

	followUpID := model.NewFollowUpID(orderID)
	note := model.Note{
		FollowUpID: followUpID,
		Author:     req.Author,
		Type:       model.ContentText,
		Body:       req.Body,
		URLs:       req.URLs,
		AddedTime:  time.Now().UTC(),
	}

	fu := model.FollowUp{
		FollowUpID: followUpID,
		Audience:   req.Audience,
		Content:    note,
		AddedTime:  note.AddedTime,
	}
	if canonical, err := h.store.SaveOrderFollowUp(r.Context(), orderID, fu); err != nil {
		fault.WriteHTTP(w, err)
		return
	} else if canonical != "" {
		followUpID = canonical
	}

	track := h.tracker.Touch(orderID, "")
	track.AppendNote(note)

	ctx := metadata.AppendToOutgoingContext(r.Context(), interceptors.SessionMetadataKey, track.Session)
	resp, err := h.rpc.ProcessFollowUp(ctx, &orderspb.ProcessFollowUpRequest{
		OrderReqID:      orderID,
		Audience:        req.Audience,
		OrderFollowUpID: followUpID,
	})
	if err != nil {
		fault.WriteHTTP(w, fault.FromGRPC(err))
		return
	}

	h.notifier.Publish(r.Context(), pubsub.TopicBuyerFollowUp, pubsub.KeyOrdUpdates, pubsub.Notification{
		OrderID: orderID,
		Session: track.Session,
		Body:    "Follow-up " + followUpID + " applied to " + orderID,
	})

	h.respond(w, http.StatusOK, orderFollowUpResponse{
		OrderReqID:      orderID,
		OrderFollowUpID: followUpID,
		Results:         resp.NsFollowUpResp,
	})
}

// Finalize locks the order's proposals for buyer decision.
func (h *OrderHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.ProposalLocked)
}

// Pause suspends the order.
func (h *OrderHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.ProposalPaused)
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, status model.ProposalStatus) {
	orderID := chi.URLParam(r, "order_req_id")
	if !model.ValidWireID(orderID) {
		fault.WriteHTTP(w, fault.New(fault.Validation, "order_req_id is required and must not contain '/' or '.'"))
		return
	}

	if err := h.store.SetOrderStatus(r.Context(), orderID, string(status)); err != nil {
		fault.WriteHTTP(w, err)
		return
	}

	h.logger.Info("order transitioned",
		slog.String("order_id", orderID),
		slog.String("status", string(status)),
	)

	h.respond(w, http.StatusOK, initiateResponse{
		OrderReqID: orderID,
		Status:     string(status),
	})
}

func (h *OrderHandler) respond(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("response write failed", slog.Any("err", err))
	}
}
