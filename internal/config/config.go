package config

import (
	"log/slog"
	"time"

	"github.com/rickgao/dashfeed/internal/connection"
	"github.com/rickgao/dashfeed/internal/stream"
)

// Config is the root configuration.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Streams       StreamsConfig       `yaml:"streams"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	Symbols       SymbolsConfig       `yaml:"symbols"`
	Poller        PollerConfig        `yaml:"poller"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Log           LogConfig           `yaml:"log"`
}

// APIConfig holds Binance REST and WebSocket settings.
type APIConfig struct {
	RestURL       string        `yaml:"rest_url"`
	WSURL         string        `yaml:"ws_url"`
	APIKey        string        `yaml:"api_key"`         // Sent as X-MBX-APIKEY
	SecretKey     string        `yaml:"secret_key"`      // HMAC secret, inline
	SecretKeyPath string        `yaml:"secret_key_path"` // HMAC secret, from file
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
}

// StreamsConfig holds engine and transport settings shared by all streams.
type StreamsConfig struct {
	LivenessTimeout   time.Duration `yaml:"liveness_timeout"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`
	AttemptTimeout    time.Duration `yaml:"attempt_timeout"`
	OutputBuffer      int           `yaml:"output_buffer"`
	ControlBuffer     int           `yaml:"control_buffer"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	OrderbookDepth    int           `yaml:"orderbook_depth"`
	OrderbookInterval string        `yaml:"orderbook_interval"`
}

// SubscriptionsConfig selects what to stream at startup.
type SubscriptionsConfig struct {
	Symbol       string `yaml:"symbol"`        // Order book symbol, e.g. BTCUSDT
	TradesSymbol string `yaml:"trades_symbol"` // Defaults to Symbol
	Account      bool   `yaml:"account"`       // Requires API credentials
}

// SymbolsConfig holds symbol registry settings.
type SymbolsConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// PollerConfig holds balance poller settings.
type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// StreamConfig converts the streams section into engine settings.
func (c *Config) StreamConfig() stream.Config {
	return stream.Config{
		LivenessTimeout: c.Streams.LivenessTimeout,
		RetryBackoff:    c.Streams.RetryBackoff,
		AttemptTimeout:  c.Streams.AttemptTimeout,
		OutputBuffer:    c.Streams.OutputBuffer,
		ControlBuffer:   c.Streams.ControlBuffer,
	}
}

// ConnectionConfig converts the streams section into transport settings.
func (c *Config) ConnectionConfig() connection.ClientConfig {
	cfg := connection.DefaultClientConfig()
	cfg.HandshakeTimeout = c.Streams.HandshakeTimeout
	cfg.PingInterval = c.Streams.PingInterval
	return cfg
}

// SlogLevel returns the configured log level, info when unset or invalid.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
