// Package persistenceclient is the Off-Chain Worker's HTTP client for the
// persistence service REST contract (spec.md §6).
//
// Grounded on 0xtitan6-polymarket-mm's go-resty/resty/v2 exchange-client
// pattern (a single configured *resty.Client wrapped in typed request
// methods), reused here in place of that repo's order-submission API for
// this module's /orders and /trades endpoints.
package persistenceclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to a persistence-service instance.
type Client struct {
	http    *resty.Client
	baseURL string
}

// New builds a Client against baseURL with the given per-request deadline.
func New(baseURL string, deadline time.Duration) *Client {
	return &Client{
		http:    resty.New().SetTimeout(deadline),
		baseURL: baseURL,
	}
}

// PostOrders POSTs orders to {baseURL}/orders and returns the HTTP status
// code (spec.md §4.6 branches on 200 vs non-200, not body content).
func (c *Client) PostOrders(ctx context.Context, orders interface{}) (int, error) {
	resp, err := c.http.R().SetContext(ctx).SetBody(orders).Post(c.baseURL + "/orders")
	if err != nil {
		return 0, fmt.Errorf("persistenceclient: post orders: %w", err)
	}
	return resp.StatusCode(), nil
}

// PostTrades POSTs trades to {baseURL}/trades.
func (c *Client) PostTrades(ctx context.Context, trades interface{}) (int, error) {
	resp, err := c.http.R().SetContext(ctx).SetBody(trades).Post(c.baseURL + "/trades")
	if err != nil {
		return 0, fmt.Errorf("persistenceclient: post trades: %w", err)
	}
	return resp.StatusCode(), nil
}

// GetOrders fetches open orders for marketID, decoding the response into out.
func (c *Client) GetOrders(ctx context.Context, marketID string, out interface{}) error {
	resp, err := c.http.R().SetContext(ctx).SetQueryParam("market_id", marketID).SetResult(out).Get(c.baseURL + "/orders")
	if err != nil {
		return fmt.Errorf("persistenceclient: get orders: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("persistenceclient: get orders: status %d", resp.StatusCode())
	}
	return nil
}

// HealthCheck calls {baseURL}/health_check.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get(c.baseURL + "/health_check")
	if err != nil {
		return fmt.Errorf("persistenceclient: health check: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("persistenceclient: health check: status %d", resp.StatusCode())
	}
	return nil
}
