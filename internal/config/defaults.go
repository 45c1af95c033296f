package config

import (
	"time"

	"github.com/rickgao/dashfeed/internal/market"
)

// Default values for optional configuration fields.
const (
	DefaultRestURL           = "https://api.binance.com"
	DefaultWSURL             = "wss://stream.binance.com:9443"
	DefaultAPITimeout        = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultLivenessTimeout   = 30 * time.Second
	DefaultRetryBackoff      = 2 * time.Second
	DefaultAttemptTimeout    = 10 * time.Second
	DefaultOutputBuffer      = 100
	DefaultControlBuffer     = 16
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultPingInterval      = 20 * time.Second
	DefaultOrderbookDepth    = 20
	DefaultOrderbookInterval = "100ms"
	DefaultSymbol            = "BTCUSDT"
	DefaultSymbolsRefresh    = time.Hour
	DefaultPollInterval      = 5 * time.Minute
	DefaultPollTimeout       = 10 * time.Second
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Streams defaults
	if c.Streams.LivenessTimeout == 0 {
		c.Streams.LivenessTimeout = DefaultLivenessTimeout
	}
	if c.Streams.RetryBackoff == 0 {
		c.Streams.RetryBackoff = DefaultRetryBackoff
	}
	if c.Streams.AttemptTimeout == 0 {
		c.Streams.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.Streams.OutputBuffer == 0 {
		c.Streams.OutputBuffer = DefaultOutputBuffer
	}
	if c.Streams.ControlBuffer == 0 {
		c.Streams.ControlBuffer = DefaultControlBuffer
	}
	if c.Streams.HandshakeTimeout == 0 {
		c.Streams.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Streams.PingInterval == 0 {
		c.Streams.PingInterval = DefaultPingInterval
	}
	if c.Streams.OrderbookDepth == 0 {
		c.Streams.OrderbookDepth = DefaultOrderbookDepth
	}
	if c.Streams.OrderbookInterval == "" {
		c.Streams.OrderbookInterval = DefaultOrderbookInterval
	}

	// Subscriptions defaults
	c.Subscriptions.Symbol = market.NormalizeSymbol(c.Subscriptions.Symbol)
	c.Subscriptions.TradesSymbol = market.NormalizeSymbol(c.Subscriptions.TradesSymbol)
	if c.Subscriptions.Symbol == "" {
		c.Subscriptions.Symbol = DefaultSymbol
	}
	if c.Subscriptions.TradesSymbol == "" {
		c.Subscriptions.TradesSymbol = c.Subscriptions.Symbol
	}

	// Symbols defaults
	if c.Symbols.RefreshInterval == 0 {
		c.Symbols.RefreshInterval = DefaultSymbolsRefresh
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
