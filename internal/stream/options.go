package stream

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/rickgao/dashfeed/internal/connection"
	"github.com/rickgao/dashfeed/internal/metrics"
)

type options struct {
	logger    *slog.Logger
	metrics   *metrics.Collector
	sessionID func() string
}

// Option configures an engine.
type Option func(*options)

// WithLogger sets the engine logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector. A nil collector records nothing.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSessionIDs overrides how per-attempt session IDs are generated.
func WithSessionIDs(next func() string) Option {
	return func(o *options) {
		o.sessionID = next
	}
}

func buildOptions(opts []Option) options {
	o := options{
		sessionID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.sessionID == nil {
		o.sessionID = uuid.NewString
	}
	return o
}

// Deps bundles what every subscription needs.
type Deps struct {
	Dialer  connection.Dialer
	Config  Config
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Options converts the shared dependencies into engine options.
func (d Deps) Options() []Option {
	return []Option{
		WithLogger(d.Logger),
		WithMetrics(d.Metrics),
	}
}
