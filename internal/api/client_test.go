package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/dashfeed/internal/auth"
)

func testCreds() *auth.Credentials {
	return &auth.Credentials{APIKey: "test-key", SecretKey: "test-secret", RecvWindow: 5 * time.Second}
}

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		creds := testCreds()
		c := NewClient("https://api.example.com", creds)

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.creds != creds {
			t.Error("credentials not set")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.retryBackoff != time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, time.Second)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with multiple options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://api.example.com", nil,
			WithHTTPClient(customClient),
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithLogger(logger),
		)
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 10 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 10)
		}
		if c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 500*time.Millisecond)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	t.Run("Error method", func(t *testing.T) {
		err := &APIError{StatusCode: 404, Message: "Not Found"}
		if err.Error() != "binance api error 404: Not Found" {
			t.Errorf("Error() = %q", err.Error())
		}

		err = &APIError{StatusCode: 400, Code: -1121, Message: "Invalid symbol."}
		if err.Error() != "binance api error 400 (code -1121): Invalid symbol." {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
		tests := []struct {
			code     int
			expected bool
		}{
			{500, true},
			{502, true},
			{503, true},
			{429, true},
			{418, false},
			{400, false},
			{401, false},
			{404, false},
		}

		for _, tt := range tests {
			err := &APIError{StatusCode: tt.code}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
			}
		}
	})
}

// TestDoRequest tests the HTTP request functionality.
func TestDoRequest(t *testing.T) {
	t.Run("public request carries no api key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q, want %q", r.Header.Get("Accept"), "application/json")
			}
			if r.Header.Get(auth.APIKeyHeader) != "" {
				t.Errorf("%s should be empty, got %q", auth.APIKeyHeader, r.Header.Get(auth.APIKeyHeader))
			}
			if !strings.HasPrefix(r.Header.Get("User-Agent"), "dashfeed/") {
				t.Errorf("User-Agent = %q, want dashfeed/ prefix", r.Header.Get("User-Agent"))
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, testCreds())
		if _, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, securityNone); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("signed request", func(t *testing.T) {
		creds := testCreds()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(auth.APIKeyHeader) != "test-key" {
				t.Errorf("%s = %q, want %q", auth.APIKeyHeader, r.Header.Get(auth.APIKeyHeader), "test-key")
			}
			payload, sig, ok := strings.Cut(r.URL.RawQuery, "&signature=")
			if !ok {
				t.Fatalf("query %q has no signature", r.URL.RawQuery)
			}
			if sig != creds.Sign(payload) {
				t.Errorf("signature mismatch for %q", payload)
			}
			if r.URL.Query().Get("limit") != "10" {
				t.Errorf("limit = %q, want %q", r.URL.Query().Get("limit"), "10")
			}
			if r.URL.Query().Get("timestamp") == "" {
				t.Error("timestamp missing")
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, creds)
		query := map[string][]string{"limit": {"10"}}
		if _, err := c.doRequest(context.Background(), http.MethodGet, "/test", query, securitySigned); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := query["timestamp"]; ok {
			t.Error("caller's query must not be mutated by signing")
		}
	})

	t.Run("authenticated request without credentials", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", nil)
		_, err := c.doRequest(context.Background(), http.MethodPost, "/test", nil, securityAPIKey)
		if !errors.Is(err, ErrNoCredentials) {
			t.Errorf("err = %v, want ErrNoCredentials", err)
		}
	})

	t.Run("binance error body is decoded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":-2015,"msg":"Invalid API-key, IP, or permissions for action."}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, testCreds())
		_, err := c.doRequest(context.Background(), http.MethodPost, "/test", nil, securityAPIKey)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.StatusCode != 401 || apiErr.Code != -2015 {
			t.Errorf("StatusCode, Code = %d, %d; want 401, -2015", apiErr.StatusCode, apiErr.Code)
		}
		if !strings.Contains(apiErr.Message, "Invalid API-key") {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})

	t.Run("non-json error keeps status text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`internal error`))
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		_, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, securityNone)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.Message != "Internal Server Error" {
			t.Errorf("Message = %q, want %q", apiErr.Message, "Internal Server Error")
		}
	})
}

// TestDoWithRetry tests the retry logic.
func TestDoWithRetry(t *testing.T) {
	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithRetries(3, 10*time.Millisecond))
		body, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil, securityNone)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok": true}` {
			t.Errorf("body = %q, want %q", string(body), `{"ok": true}`)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("does not retry on 4xx", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithRetries(3, 10*time.Millisecond))
		if _, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil, securityNone); err == nil {
			t.Fatal("expected error, got nil")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithRetries(2, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil, securityNone)
		if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error should contain 'max retries exceeded', got %v", err)
		}
		// 1 initial + 2 retries = 3 attempts
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("context cancellation during retry", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithRetries(5, time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.doWithRetry(ctx, http.MethodGet, "/test", nil, securityNone)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want context.DeadlineExceeded", err)
		}
	})
}

func TestCreateListenKey(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if r.URL.Path != UserDataStreamPath {
				t.Errorf("path = %s, want %s", r.URL.Path, UserDataStreamPath)
			}
			if r.URL.RawQuery != "" {
				t.Errorf("listen key request should not be signed, query = %q", r.URL.RawQuery)
			}
			if r.Header.Get(auth.APIKeyHeader) != "test-key" {
				t.Errorf("%s = %q", auth.APIKeyHeader, r.Header.Get(auth.APIKeyHeader))
			}
			w.Write([]byte(`{"listenKey":"pqia91ma19a5s61cv6a81va65sdf19v8a65a1a5s61cv6a81va65sdf19v8a65a1"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, testCreds())
		key, err := c.CreateListenKey(context.Background())
		if err != nil {
			t.Fatalf("CreateListenKey: %v", err)
		}
		if !strings.HasPrefix(key, "pqia91ma") {
			t.Errorf("listen key = %q", key)
		}
	})

	t.Run("empty key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, testCreds())
		if _, err := c.CreateListenKey(context.Background()); !errors.Is(err, ErrEmptyListenKey) {
			t.Errorf("err = %v, want ErrEmptyListenKey", err)
		}
	})
}

func TestGetAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/account" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("signature") == "" {
			t.Error("account request must be signed")
		}
		if r.URL.Query().Get("omitZeroBalances") != "true" {
			t.Errorf("omitZeroBalances = %q", r.URL.Query().Get("omitZeroBalances"))
		}
		w.Write([]byte(`{
			"canTrade": true,
			"updateTime": 1700000000000,
			"accountType": "SPOT",
			"balances": [
				{"asset": "BTC", "free": "4723846.89208129", "locked": "0.00000000"},
				{"asset": "LTC", "free": "4763368.68006011", "locked": "0.50000000"}
			]
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, testCreds())
	resp, err := c.GetAccount(context.Background())
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !resp.CanTrade || resp.AccountType != "SPOT" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Balances) != 2 {
		t.Fatalf("len(Balances) = %d, want 2", len(resp.Balances))
	}
	if resp.Balances[1].Asset != "LTC" || resp.Balances[1].Locked != "0.50000000" {
		t.Errorf("Balances[1] = %+v", resp.Balances[1])
	}
}

func TestPingAndServerTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/ping":
			w.Write([]byte(`{}`))
		case "/api/v3/time":
			w.Write([]byte(`{"serverTime":1499827319559}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	ts, err := c.ServerTime(context.Background())
	if err != nil {
		t.Fatalf("ServerTime: %v", err)
	}
	if ts.UnixMilli() != 1499827319559 {
		t.Errorf("ServerTime = %v", ts)
	}
}

func TestGetExchangeInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/exchangeInfo" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("permissions") != "SPOT" {
			t.Errorf("permissions = %q, want SPOT", r.URL.Query().Get("permissions"))
		}
		if r.URL.Query().Get("signature") != "" {
			t.Error("exchange info must not be signed")
		}
		w.Write([]byte(`{
			"timezone": "UTC",
			"serverTime": 1565246363776,
			"rateLimits": [],
			"symbols": [
				{"symbol": "ETHBTC", "status": "TRADING", "baseAsset": "ETH", "quoteAsset": "BTC", "filters": []},
				{"symbol": "LUNAUSDT", "status": "BREAK", "baseAsset": "LUNA", "quoteAsset": "USDT"}
			]
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	info, err := c.GetExchangeInfo(context.Background())
	if err != nil {
		t.Fatalf("GetExchangeInfo: %v", err)
	}
	if len(info.Symbols) != 2 {
		t.Fatalf("len(Symbols) = %d, want 2", len(info.Symbols))
	}
	want := ExchangeSymbol{Symbol: "ETHBTC", Status: "TRADING", BaseAsset: "ETH", QuoteAsset: "BTC"}
	if info.Symbols[0] != want {
		t.Errorf("Symbols[0] = %+v, want %+v", info.Symbols[0], want)
	}
	if info.Symbols[1].Status != "BREAK" {
		t.Errorf("Symbols[1].Status = %q, want BREAK", info.Symbols[1].Status)
	}
}
