// Package orderspb holds the wire contract between the requestor and the
// processor. The messages are hand-maintained and travel over gRPC with the
// JSON codec registered in this package; keep field tags stable, they are the
// wire format.
package orderspb

// StreamStatus enumerates the event kinds delivered on an order stream.
type StreamStatus string

const (
	StatusNewProposal    StreamStatus = "NewProposal"
	StatusProposalClosed StreamStatus = "ProposalClosed"
	StatusProposalUpdate StreamStatus = "ProposalUpdate"
	StatusOrderPaused    StreamStatus = "OrderPaused"
	StatusEditLock       StreamStatus = "EditLock"
)

// OrderStreamRequest opens a per-order event stream.
type OrderStreamRequest struct {
	OrderReqID       string `json:"order_req_id"`
	NotificationType string `json:"notification_type"`
}

// OrderStreamEvent is one frame on the stream. The terminal frame carries
// StatusOrderPaused with an empty ProposalID.
type OrderStreamEvent struct {
	OrderReqID              string       `json:"order_req_id"`
	StreamingResponseStatus StreamStatus `json:"streaming_response_status"`
	ProposalID              string       `json:"proposal_id"`
	FollowUpID              string       `json:"follow_up_id"`
}

// FollowUpStatus enumerates per-audience-entry outcomes of a follow-up.
type FollowUpStatus string

const (
	FollowUpEditLock FollowUpStatus = "EditLock"
	FollowUpUpdated  FollowUpStatus = "Updated"
	FollowUpFailed   FollowUpStatus = "Failed"
	FollowUpError    FollowUpStatus = "Error"
)

// ProcessFollowUpRequest applies one order-level follow-up to an audience of
// proposals.
type ProcessFollowUpRequest struct {
	OrderReqID      string   `json:"order_req_id"`
	Audience        []string `json:"audience"`
	OrderFollowUpID string   `json:"order_follow_up_id"`
}

// FollowUpResult is the outcome for a single audience entry.
type FollowUpResult struct {
	Audience  string         `json:"audience"`
	Status    FollowUpStatus `json:"status"`
	AddedTime string         `json:"added_time"`
}

// ProcessFollowUpResponse lists results in audience order.
type ProcessFollowUpResponse struct {
	NsFollowUpResp []FollowUpResult `json:"ns_follow_up_resp"`
}
