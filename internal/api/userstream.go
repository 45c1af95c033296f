package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// UserDataStreamPath is the REST path for listen-key management.
const UserDataStreamPath = "/api/v3/userDataStream"

// ErrEmptyListenKey is returned when the exchange answers without a listen key.
var ErrEmptyListenKey = errors.New("empty listen key")

// CreateListenKey exchanges the API key for a user data stream listen key.
// The key is valid for 60 minutes; the stream is closed by the exchange once
// it expires and a fresh key is needed for the next connection.
func (c *Client) CreateListenKey(ctx context.Context) (string, error) {
	var resp ListenKeyResponse
	if err := c.call(ctx, http.MethodPost, UserDataStreamPath, nil, securityAPIKey, &resp); err != nil {
		return "", fmt.Errorf("create listen key: %w", err)
	}
	if resp.ListenKey == "" {
		return "", ErrEmptyListenKey
	}
	return resp.ListenKey, nil
}
