package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/rickgao/dashfeed/internal/market"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := validateURL("api.rest_url", c.API.RestURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("api.ws_url", c.API.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	if c.Streams.LivenessTimeout <= 0 {
		return errors.New("streams.liveness_timeout must be positive")
	}
	if c.Streams.RetryBackoff <= 0 {
		return errors.New("streams.retry_backoff must be positive")
	}
	if c.Streams.AttemptTimeout <= 0 {
		return errors.New("streams.attempt_timeout must be positive")
	}
	if c.Streams.OutputBuffer < 1 {
		return errors.New("streams.output_buffer must be >= 1")
	}
	if c.Streams.ControlBuffer < 1 {
		return errors.New("streams.control_buffer must be >= 1")
	}
	if c.Streams.PingInterval < 0 {
		return errors.New("streams.ping_interval must be >= 0")
	}
	if c.Streams.OrderbookDepth < 1 || c.Streams.OrderbookDepth > 5000 {
		return fmt.Errorf("streams.orderbook_depth must be between 1 and 5000, got %d", c.Streams.OrderbookDepth)
	}
	if c.Streams.OrderbookInterval != "100ms" && c.Streams.OrderbookInterval != "1000ms" {
		return fmt.Errorf("streams.orderbook_interval must be 100ms or 1000ms, got %q", c.Streams.OrderbookInterval)
	}

	if err := validateSymbol("subscriptions.symbol", c.Subscriptions.Symbol); err != nil {
		return err
	}
	if err := validateSymbol("subscriptions.trades_symbol", c.Subscriptions.TradesSymbol); err != nil {
		return err
	}

	if c.Symbols.RefreshInterval <= 0 {
		return errors.New("symbols.refresh_interval must be positive")
	}

	if c.Subscriptions.Account {
		if c.API.APIKey == "" {
			return errors.New("api.api_key is required when subscriptions.account is enabled")
		}
		if c.API.SecretKey == "" && c.API.SecretKeyPath == "" {
			return errors.New("api.secret_key or api.secret_key_path is required when subscriptions.account is enabled")
		}
		if c.Poller.Interval <= 0 {
			return errors.New("poller.interval must be positive")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s must use %s scheme, got %q", field, strings.Join(schemes, " or "), raw)
}

func validateSymbol(field, symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, _, ok := market.SplitSymbol(symbol); !ok {
		return fmt.Errorf("%s %q has no known quote asset", field, symbol)
	}
	return nil
}
