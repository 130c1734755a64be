package model

import (
	"time"
)

// ProposalStatus mirrors the lifecycle owned by the persistence facade.
// Terminal states are Closed and Paused; EditLock is transient and is left
// by a fresh submission.
type ProposalStatus string

const (
	ProposalSubmitted ProposalStatus = "SUBMITTED"
	ProposalClosed    ProposalStatus = "CLOSED"
	ProposalPaused    ProposalStatus = "PAUSED"
	ProposalEditLock  ProposalStatus = "EDITLOCK"
	ProposalLocked    ProposalStatus = "PROPOSALLOCK"
)

// NotificationType selects the side-channel used to alert sellers when a
// stream opens. Anything other than GChat means bus-only.
type NotificationType string

const (
	NotifyGChat NotificationType = "GChat"
	NotifyNone  NotificationType = "None"
)

// ContentType tags the body of a follow-up note.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentHTML     ContentType = "html"
	ContentMarkdown ContentType = "markdown"
)

// Note is a follow-up annotation attached to an order or to a single proposal.
// FollowUpID is server-generated and canonical: F-<parent>-<8hex>.
type Note struct {
	FollowUpID string      `json:"follow_up_id"`
	Author     string      `json:"author,omitempty"`
	Type       ContentType `json:"type"`
	Body       string      `json:"body"`
	URLs       []string    `json:"urls,omitempty"`
	AddedTime  time.Time   `json:"added_time"`
}

// Proposal is a seller's response to an order. It belongs to exactly one
// order; ProposalID is unique within that order.
type Proposal struct {
	ProposalID   string         `json:"proposal_id"`
	SellerID     string         `json:"seller_id"`
	Price        float64        `json:"price"`
	DeliveryDate string         `json:"delivery_date"`
	Status       ProposalStatus `json:"status"`
	Notes        []Note         `json:"notes,omitempty"`
}

// SellerEntry is one entry of the selection produced by the seller selector.
type SellerEntry struct {
	SellerID   string  `json:"seller_id"`
	DistanceKM float64 `json:"distance_km"`
}

// Order is the in-memory mirror of one active order. The registry owns the
// single process-wide instance per OrderID; all mutation goes through the
// cell that wraps it so readers see a consistent snapshot.
//
// ExpiryAt is fixed at creation and never extended. Sellers is written once
// by the selector and read-only afterwards. Proposals is append-only for the
// life of the order.
type Order struct {
	OrderID   string        `json:"order_id"`
	Session   string        `json:"session,omitempty"`
	ExpiryAt  time.Time     `json:"expiry_at"`
	Sellers   []SellerEntry `json:"sellers,omitempty"`
	Proposals []Proposal    `json:"proposals,omitempty"`
	Notes     []Note        `json:"notes,omitempty"`
}

// Expired reports whether the order's lifetime has elapsed at the given instant.
func (o *Order) Expired(now time.Time) bool {
	return !now.Before(o.ExpiryAt)
}

// Proposal returns the proposal with the given id, or nil when absent.
func (o *Order) Proposal(proposalID string) *Proposal {
	for i := range o.Proposals {
		if o.Proposals[i].ProposalID == proposalID {
			return &o.Proposals[i]
		}
	}
	return nil
}

// FollowUp targets an audience of proposals under one order-level follow-up id.
type FollowUp struct {
	FollowUpID string    `json:"follow_up_id"`
	Audience   []string  `json:"audience"`
	Content    Note      `json:"content"`
	AddedTime  time.Time `json:"added_time"`
}
