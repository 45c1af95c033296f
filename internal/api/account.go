package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetAccount fetches the account's current balances.
// Zero balances are omitted server-side.
func (c *Client) GetAccount(ctx context.Context) (*AccountResponse, error) {
	query := url.Values{}
	query.Set("omitZeroBalances", "true")

	var resp AccountResponse
	if err := c.call(ctx, http.MethodGet, "/api/v3/account", query, securitySigned, &resp); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &resp, nil
}
