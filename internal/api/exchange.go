package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Ping tests connectivity to the REST API.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.call(ctx, http.MethodGet, "/api/v3/ping", nil, securityNone, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ServerTime returns the exchange clock.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	var resp ServerTimeResponse
	if err := c.call(ctx, http.MethodGet, "/api/v3/time", nil, securityNone, &resp); err != nil {
		return time.Time{}, fmt.Errorf("get server time: %w", err)
	}
	return time.UnixMilli(resp.ServerTime).UTC(), nil
}

// GetExchangeInfo returns the spot symbol listing.
func (c *Client) GetExchangeInfo(ctx context.Context) (*ExchangeInfoResponse, error) {
	query := url.Values{}
	query.Set("permissions", "SPOT")
	query.Set("showPermissionSets", "false")

	var resp ExchangeInfoResponse
	if err := c.call(ctx, http.MethodGet, "/api/v3/exchangeInfo", query, securityNone, &resp); err != nil {
		return nil, fmt.Errorf("get exchange info: %w", err)
	}
	return &resp, nil
}
