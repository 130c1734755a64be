// Package distance is the client for the external distance oracle. Callers
// treat every failure as survivable: the seller selector substitutes a fixed
// fallback distance instead of aborting selection.
package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/internal/domain/fault"
	"github.com/sony/gobreaker"
)

type Client struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func New(cfg *config.Config) *Client {
	return &Client{
		base: cfg.Clients.DistanceURL,
		http: &http.Client{Timeout: cfg.Clients.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "distance-oracle",
			Timeout: 10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// BetweenKM returns the road distance in kilometres between two areas.
func (c *Client) BetweenKM(ctx context.Context, from, to string) (float64, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		q := url.Values{}
		q.Set("from", from)
		q.Set("to", to)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/distance?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("distance oracle returned %d", resp.StatusCode)
		}

		var payload struct {
			KM float64 `json:"km"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, err
		}
		return payload.KM, nil
	})
	if err != nil {
		return 0, fault.Wrap(fault.Unavailable, err, "distance oracle unavailable")
	}
	return res.(float64), nil
}
