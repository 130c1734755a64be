// Package http exposes the seller-facing ingress of the processor: proposal
// submissions, proposal follow-ups, and edit locks. Every endpoint mutates
// durable state first, in-memory state second, and only then signals the
// order stream, so a consumer never sees an event for data that was not
// persisted.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/procurex/order-relay/infra/client/persistence"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/domain/fault"
	"github.com/procurex/order-relay/internal/domain/model"
	"github.com/procurex/order-relay/internal/domain/registry"
	"github.com/procurex/order-relay/internal/processor/service"
)

type ProposalHandler struct {
	logger   *slog.Logger
	registry registry.Registrar
	updater  service.ProposalUpdater
	notifier pubsub.Notifier
	orderTTL time.Duration
}

func NewProposalHandler(logger *slog.Logger, reg registry.Registrar, updater service.ProposalUpdater, notifier pubsub.Notifier, orderTTL time.Duration) *ProposalHandler {
	return &ProposalHandler{
		logger:   logger,
		registry: reg,
		updater:  updater,
		notifier: notifier,
		orderTTL: orderTTL,
	}
}

type submitProposalRequest struct {
	OrderReqID   string  `json:"order_req_id"`
	ProposalID   string  `json:"proposal_id"`
	SellerID     string  `json:"seller_id"`
	Price        float64 `json:"price"`
	DeliveryDate string  `json:"delivery_date"`
}

type submitProposalResponse struct {
	OrderReqID string               `json:"order_req_id"`
	ProposalID string               `json:"proposal_id"`
	Status     model.ProposalStatus `json:"status"`
}

// SubmitProposal appends a seller proposal to an order and signals the stream.
func (h *ProposalHandler) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	var req submitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fault.WriteHTTP(w, fault.New(fault.Validation, "malformed request body"))
		return
	}
	if !model.ValidWireID(req.OrderReqID) || !model.ValidWireID(req.ProposalID) {
		fault.WriteHTTP(w, fault.New(fault.Validation, "order_req_id and proposal_id are required and must not contain '/' or '.'"))
		return
	}

	cell, err := h.touch(req.OrderReqID)
	if err != nil {
		fault.WriteHTTP(w, err)
		return
	}

	if _, err := h.updater.Apply(r.Context(), persistence.UpdateRequest{
		Mode:       persistence.ModeProposalSubmissions,
		OrderID:    req.OrderReqID,
		ProposalID: req.ProposalID,
	}); err != nil {
		fault.WriteHTTP(w, err)
		return
	}

	if err := cell.AppendProposal(model.Proposal{
		ProposalID:   req.ProposalID,
		SellerID:     req.SellerID,
		Price:        req.Price,
		DeliveryDate: req.DeliveryDate,
		Status:       model.ProposalSubmitted,
	}); err != nil {
		fault.WriteHTTP(w, err)
		return
	}

	cell.Enqueue(model.ProposalSignal{Proposal: req.ProposalID, Code: model.CodeNew})

	h.notifier.Publish(r.Context(), pubsub.TopicSellerAcknowledgements, pubsub.KeyPrpSubmission, pubsub.Notification{
		OrderID: req.OrderReqID,
		Session: cell.Snapshot().Session,
		Body:    "Proposal " + req.ProposalID + " received for order " + req.OrderReqID,
	})

	h.respond(w, submitProposalResponse{
		OrderReqID: req.OrderReqID,
		ProposalID: req.ProposalID,
		Status:     model.ProposalSubmitted,
	})
}

type proposalFollowUpRequest struct {
	OrderReqID string   `json:"order_req_id"`
	Author     string   `json:"author,omitempty"`
	Body       string   `json:"body"`
	URLs       []string `json:"urls,omitempty"`
}

type proposalFollowUpResponse struct {
	ProposalID string `json:"proposal_id"`
	FollowUpID string `json:"follow_up_id"`
	AddedTime  string `json:"added_time"`
}

// ProposalFollowUp appends a note to a proposal. The persistence facade owns
// the canonical follow-up id; a collision under the same proposal is resolved
// by minting a fresh one rather than failing the caller.
func (h *ProposalHandler) ProposalFollowUp(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "proposal_id")

	var req proposalFollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fault.WriteHTTP(w, fault.New(fault.Validation, "malformed request body"))
		return
	}
	if !model.ValidWireID(req.OrderReqID) || !model.ValidWireID(proposalID) {
		fault.WriteHTTP(w, fault.New(fault.Validation, "order_req_id and proposal_id are required and must not contain '/' or '.'"))
		return
	}
	if req.Body == "" {
		fault.WriteHTTP(w, fault.New(fault.Validation, "body is required"))
		return
	}

	cell, err := h.touch(req.OrderReqID)
	if err != nil {
		fault.WriteHTTP(w, err)
		return
	}
	if !cell.HasProposal(proposalID) {
		fault.WriteHTTP(w, fault.New(fault.NotFound, "unknown proposal %s", proposalID))
		return
	}

	resp, err := h.updater.Apply(r.Context(), persistence.UpdateRequest{
		Mode:       persistence.ModeProposalUpdate,
		OrderID:    req.OrderReqID,
		ProposalID: proposalID,
		Note: &model.Note{
			Author: req.Author,
			Type:   model.ContentText,
			Body:   req.Body,
			URLs:   req.URLs,
		},
	})
	if err != nil {
		fault.WriteHTTP(w, err)
		return
	}

	followUpID := resp.FollowUpID
	if followUpID == "" {
		followUpID = model.NewFollowUpID(proposalID)
	}

	note := model.Note{
		FollowUpID: followUpID,
		Author:     req.Author,
		Type:       model.ContentText,
		Body:       req.Body,
		URLs:       req.URLs,
		AddedTime:  time.Now().UTC(),
	}
	if err := cell.AppendProposalNote(proposalID, note); err != nil {
		if fault.KindOf(err) != fault.Conflict {
			fault.WriteHTTP(w, err)
			return
		}
		// Duplicate id under this proposal: regenerate, never reuse.
		followUpID = model.NewFollowUpID(proposalID)
		note.FollowUpID = followUpID
		if err := cell.AppendProposalNote(proposalID, note); err != nil {
			fault.WriteHTTP(w, err)
			return
		}
	}

	cell.Enqueue(model.FollowUpSignal{Proposal: proposalID, FollowUp: followUpID})

	h.notifier.Publish(r.Context(), pubsub.TopicSellerFollowUp, pubsub.KeyPrpUpdates, pubsub.Notification{
		OrderID: req.OrderReqID,
		Session: cell.Snapshot().Session,
		Body:    "Follow-up " + followUpID + " appended to proposal " + proposalID,
	})

	h.respond(w, proposalFollowUpResponse{
		ProposalID: proposalID,
		FollowUpID: followUpID,
		AddedTime:  note.AddedTime.Format(time.RFC3339),
	})
}

type editLockRequest struct {
	OrderReqID string `json:"order_req_id"`
	ProposalID string `json:"proposal_id"`
}

// EditLock marks a proposal as locked for seller editing and signals the
// stream so the buyer side can surface "updates in progress".
func (h *ProposalHandler) EditLock(w http.ResponseWriter, r *http.Request) {
	var req editLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fault.WriteHTTP(w, fault.New(fault.Validation, "malformed request body"))
		return
	}
	if !model.ValidWireID(req.OrderReqID) || !model.ValidWireID(req.ProposalID) {
		fault.WriteHTTP(w, fault.New(fault.Validation, "order_req_id and proposal_id are required and must not contain '/' or '.'"))
		return
	}

	cell, err := h.touch(req.OrderReqID)
	if err != nil {
		fault.WriteHTTP(w, err)
		return
	}
	if !cell.HasProposal(req.ProposalID) {
		fault.WriteHTTP(w, fault.New(fault.NotFound, "unknown proposal %s", req.ProposalID))
		return
	}

	if _, err := h.updater.Apply(r.Context(), persistence.UpdateRequest{
		Mode:       persistence.ModeEditLock,
		OrderID:    req.OrderReqID,
		ProposalID: req.ProposalID,
	}); err != nil {
		fault.WriteHTTP(w, err)
		return
	}

	if err := cell.SetProposalStatus(req.ProposalID, model.ProposalEditLock); err != nil {
		fault.WriteHTTP(w, err)
		return
	}

	cell.Enqueue(model.ProposalSignal{Proposal: req.ProposalID, Code: model.CodeEditLock})

	h.respond(w, submitProposalResponse{
		OrderReqID: req.OrderReqID,
		ProposalID: req.ProposalID,
		Status:     model.ProposalEditLock,
	})
}

// touch resolves the order cell, creating it lazily on first contact. Expired
// orders are rejected before any mutation.
func (h *ProposalHandler) touch(orderID string) (*registry.OrderCell, error) {
	cell := h.registry.GetOrCreate(orderID, h.orderTTL, "")
	if cell.Expired(time.Now()) {
		return nil, fault.New(fault.Expired, "order %s is past its deadline", orderID)
	}
	return cell, nil
}

func (h *ProposalHandler) respond(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("response write failed", slog.Any("err", err))
	}
}
