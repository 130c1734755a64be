package model

import (
	"fmt"
	"strings"
)

// SignalCode is the event code carried after the '/' separator on the wire.
type SignalCode string

const (
	CodeNew      SignalCode = "New"
	CodeClosed   SignalCode = "Closed"
	CodeEditLock SignalCode = "EditLock"
	CodeUpdate   SignalCode = "Update"
)

// Signal is the parsed form of one per-order queue message.
//
// The wire grammar is kept for compatibility with existing producers:
//
//	<proposal_id>/New | <proposal_id>/Closed | <proposal_id>/EditLock
//	<proposal_id>.<follow_up_id>/Update
//
// '/' and '.' are reserved separators; identifiers must not contain them.
// ProposalSignal and FollowUpSignal are the tagged variants; the stream
// handler dispatches on the concrete type instead of re-splitting strings.
type Signal interface {
	// Wire renders the queue payload form.
	Wire() string
	// ProposalID returns the proposal the signal concerns.
	ProposalID() string
}

// ProposalSignal marks a proposal-level state change (New, Closed, EditLock).
type ProposalSignal struct {
	Proposal string
	Code     SignalCode
}

func (s ProposalSignal) Wire() string       { return s.Proposal + "/" + string(s.Code) }
func (s ProposalSignal) ProposalID() string { return s.Proposal }

// FollowUpSignal marks a follow-up note appended to a proposal.
type FollowUpSignal struct {
	Proposal string
	FollowUp string
}

func (s FollowUpSignal) Wire() string       { return s.Proposal + "." + s.FollowUp + "/" + string(CodeUpdate) }
func (s FollowUpSignal) ProposalID() string { return s.Proposal }

// ParseSignal decodes a wire payload into its tagged variant.
// Unknown codes and malformed payloads return an error; the consumer loop
// logs and skips them rather than failing the stream.
func ParseSignal(raw string) (Signal, error) {
	head, code, ok := strings.Cut(raw, "/")
	if !ok || head == "" || code == "" {
		return nil, fmt.Errorf("signal %q: missing '/' separator", raw)
	}

	if pid, fid, dotted := strings.Cut(head, "."); dotted {
		if SignalCode(code) != CodeUpdate {
			return nil, fmt.Errorf("signal %q: follow-up form requires code %q", raw, CodeUpdate)
		}
		if pid == "" || fid == "" {
			return nil, fmt.Errorf("signal %q: empty identifier", raw)
		}
		return FollowUpSignal{Proposal: pid, FollowUp: fid}, nil
	}

	switch SignalCode(code) {
	case CodeNew, CodeClosed, CodeEditLock:
		return ProposalSignal{Proposal: head, Code: SignalCode(code)}, nil
	case CodeUpdate:
		return nil, fmt.Errorf("signal %q: update requires <proposal>.<follow_up> head", raw)
	default:
		return nil, fmt.Errorf("signal %q: unknown code %q", raw, code)
	}
}
