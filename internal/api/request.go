package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rickgao/dashfeed/internal/version"
)

// ErrNoCredentials is returned by authenticated calls on a client built without credentials.
var ErrNoCredentials = errors.New("api credentials not configured")

// APIError represents an error from the Binance API.
type APIError struct {
	StatusCode int
	Code       int    // Binance error code from the body, 0 if absent
	Message    string // Binance message, or the HTTP status text
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("binance api error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("binance api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
// 418 means the IP is banned; retrying only extends the ban.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// securityType selects how a request is authenticated.
type securityType int

const (
	securityNone   securityType = iota
	securityAPIKey              // X-MBX-APIKEY header only
	securitySigned              // header plus HMAC signature over the query
)

// doRequest performs an HTTP request with the given method and path.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, sec securityType) ([]byte, error) {
	if sec != securityNone && c.creds == nil {
		return nil, ErrNoCredentials
	}

	fullURL := c.baseURL + path
	switch {
	case sec == securitySigned:
		// Signing stamps the timestamp, so it must be redone on every attempt.
		fullURL += "?" + c.creds.SignQuery(cloneValues(query))
	case len(query) > 0:
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if sec != securityNone {
		for k, v := range c.creds.Headers() {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
		var wire errorWire
		if json.Unmarshal(body, &wire) == nil && wire.Msg != "" {
			apiErr.Code = wire.Code
			apiErr.Message = wire.Msg
		}
		return nil, apiErr
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values, sec securityType) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)+1))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, method, path, query, sec)
		if err == nil {
			return body, nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// call performs a request with retries and decodes the JSON response into result.
// result may be nil for endpoints that return an empty object.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, sec securityType, result any) error {
	body, err := c.doWithRetry(ctx, method, path, query, sec)
	if err != nil {
		return err
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
