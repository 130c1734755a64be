// Package persistence is the HTTP client for the remote persistence facade
// that owns orders, proposals and notes. All proposal state transitions go
// through PATCH /proposals with a mode selector; the facade assigns
// timestamps and canonical follow-up ids.
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/internal/domain/fault"
	"github.com/procurex/order-relay/internal/domain/model"
	"github.com/sony/gobreaker"
)

// Mode selects the effect of one proposal update.
type Mode string

const (
	ModeProposalSubmissions Mode = "ProposalSubmissions"
	ModeProposalUpdate      Mode = "ProposalUpdate"
	ModeProposalClosed      Mode = "ProposalClosed"
	ModeOrderPaused         Mode = "OrderPaused"
	ModeEditLock            Mode = "EditLock"
	ModeProposalLock        Mode = "ProposalLock"
	ModeUserEdits           Mode = "UserEdits"
)

// UpdateRequest is the mode-dispatched PATCH payload.
type UpdateRequest struct {
	Mode            Mode        `json:"mode"`
	OrderID         string      `json:"order_id"`
	ProposalID      string      `json:"proposal_id,omitempty"`
	Note            *model.Note `json:"note,omitempty"`
	OrderFollowUpID string      `json:"order_follow_up_id,omitempty"`
}

// UpdateResponse carries server-assigned identifiers and timestamps.
type UpdateResponse struct {
	FollowUpID string `json:"follow_up_id,omitempty"`
	AddedTime  string `json:"added_time,omitempty"`
}

// OrderContext is the slice of order metadata the seller selector needs.
type OrderContext struct {
	OrderID   string `json:"order_id"`
	Industry  string `json:"industry"`
	BuyerArea string `json:"buyer_area"`
}

// SellerRef is one candidate seller in an industry.
type SellerRef struct {
	SellerID string `json:"seller_id"`
	Area     string `json:"area"`
}

type Client struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		base: cfg.Clients.PersistenceURL,
		http: &http.Client{Timeout: cfg.Clients.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "persistence",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		logger: logger.With(slog.String("component", "persistence-client")),
	}
}

// Update applies one mode-dispatched proposal transition.
func (c *Client) Update(ctx context.Context, req UpdateRequest) (UpdateResponse, error) {
	var out UpdateResponse
	err := c.do(ctx, http.MethodPatch, "/proposals", req, &out)
	if err != nil {
		return UpdateResponse{}, err
	}
	return out, nil
}

// OrderContext resolves the industry and buyer location of an order.
func (c *Client) OrderContext(ctx context.Context, orderID string) (OrderContext, error) {
	var out OrderContext
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID+"/context", nil, &out); err != nil {
		return OrderContext{}, err
	}
	return out, nil
}

// SellersByIndustry enumerates candidate sellers for an industry. The
// enumeration order is the facade's and is preserved by the selector for its
// stable tie-break.
func (c *Client) SellersByIndustry(ctx context.Context, industry string) ([]SellerRef, error) {
	var out []SellerRef
	if err := c.do(ctx, http.MethodGet, "/sellers?industry="+industry, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveOrderFollowUp persists an order-level follow-up before it fans out to
// its audience of proposals.
func (c *Client) SaveOrderFollowUp(ctx context.Context, orderID string, fu model.FollowUp) (string, error) {
	var out UpdateResponse
	if err := c.do(ctx, http.MethodPost, "/orders/"+orderID+"/followups", fu, &out); err != nil {
		return "", err
	}
	return out.FollowUpID, nil
}

// SetOrderStatus transitions the order itself (finalize, pause).
func (c *Client) SetOrderStatus(ctx context.Context, orderID, status string) error {
	payload := map[string]string{"status": status}
	return c.do(ctx, http.MethodPut, "/orders/"+orderID+"/status", payload, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		var body io.Reader
		if in != nil {
			raw, err := json.Marshal(in)
			if err != nil {
				return nil, fmt.Errorf("encode request: %w", err)
			}
			body = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		switch {
		case res.StatusCode == http.StatusNotFound:
			return nil, fault.New(fault.NotFound, "persistence: %s %s not found", method, path)
		case res.StatusCode >= 400:
			return nil, fmt.Errorf("persistence: %s %s returned %d", method, path, res.StatusCode)
		}

		if out != nil {
			if err := json.NewDecoder(res.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		if fault.Is(err, fault.NotFound) {
			return err
		}
		c.logger.Warn("persistence call failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("err", err),
		)
		return fault.Wrap(fault.Unavailable, err, "persistence facade unavailable")
	}
	return nil
}
