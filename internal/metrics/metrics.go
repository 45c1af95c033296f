package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "dashfeed"

// Disconnect reasons.
const (
	ReasonTransport = "transport"
	ReasonLiveness  = "liveness"
	ReasonControl   = "control"
	ReasonShutdown  = "shutdown"
)

// Collector wraps the Prometheus metrics for the stream engines.
// It owns its registry so several collectors can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	Attempts        *prometheus.CounterVec
	ResolveFailures *prometheus.CounterVec
	DialFailures    *prometheus.CounterVec
	Connects        *prometheus.CounterVec
	Disconnects     *prometheus.CounterVec
	Frames          *prometheus.CounterVec
	Messages        *prometheus.CounterVec
	Dropped         *prometheus.CounterVec
	ControlsApplied *prometheus.CounterVec
	Connected       *prometheus.GaugeVec
	BalanceRefresh  *prometheus.CounterVec
}

// New creates a Collector with its own registry, including Go runtime
// and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: reg,
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connection_attempts_total",
			Help:      "Connection attempts started, by stream",
		}, []string{"stream"}),
		ResolveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resolve_failures_total",
			Help:      "Endpoint resolution failures, by stream",
		}, []string{"stream"}),
		DialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dial_failures_total",
			Help:      "Transport connect failures, by stream",
		}, []string{"stream"}),
		Connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connects_total",
			Help:      "Established connections, by stream",
		}, []string{"stream"}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "disconnects_total",
			Help:      "Ended connections, by stream and reason",
		}, []string{"stream", "reason"}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_total",
			Help:      "Inbound frames, by stream and type (data or heartbeat)",
		}, []string{"stream", "type"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_total",
			Help:      "Payloads forwarded to the consumer, by stream",
		}, []string{"stream"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dropped_frames_total",
			Help:      "Frames dropped by the codec, by stream and reason",
		}, []string{"stream", "reason"}),
		ControlsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "controls_applied_total",
			Help:      "Control messages applied, by stream",
		}, []string{"stream"}),
		Connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "connected",
			Help:      "1 while the stream has an established connection",
		}, []string{"stream"}),
		BalanceRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "balance_refresh_total",
			Help:      "REST balance refreshes, by status",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.Attempts,
		c.ResolveFailures,
		c.DialFailures,
		c.Connects,
		c.Disconnects,
		c.Frames,
		c.Messages,
		c.Dropped,
		c.ControlsApplied,
		c.Connected,
		c.BalanceRefresh,
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler that serves the registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordAttempt counts a connection attempt.
func (c *Collector) RecordAttempt(stream string) {
	if c == nil {
		return
	}
	c.Attempts.WithLabelValues(stream).Inc()
}

// RecordResolveFailure counts a failed endpoint resolution.
func (c *Collector) RecordResolveFailure(stream string) {
	if c == nil {
		return
	}
	c.ResolveFailures.WithLabelValues(stream).Inc()
}

// RecordDialFailure counts a failed connect.
func (c *Collector) RecordDialFailure(stream string) {
	if c == nil {
		return
	}
	c.DialFailures.WithLabelValues(stream).Inc()
}

// RecordConnect counts a connection and marks the stream connected.
func (c *Collector) RecordConnect(stream string) {
	if c == nil {
		return
	}
	c.Connects.WithLabelValues(stream).Inc()
	c.Connected.WithLabelValues(stream).Set(1)
}

// RecordDisconnect counts a disconnect and marks the stream disconnected.
func (c *Collector) RecordDisconnect(stream, reason string) {
	if c == nil {
		return
	}
	c.Disconnects.WithLabelValues(stream, reason).Inc()
	c.Connected.WithLabelValues(stream).Set(0)
}

// RecordFrame counts an inbound frame.
func (c *Collector) RecordFrame(stream string, heartbeat bool) {
	if c == nil {
		return
	}
	kind := "data"
	if heartbeat {
		kind = "heartbeat"
	}
	c.Frames.WithLabelValues(stream, kind).Inc()
}

// RecordMessage counts a payload forwarded to the consumer.
func (c *Collector) RecordMessage(stream string) {
	if c == nil {
		return
	}
	c.Messages.WithLabelValues(stream).Inc()
}

// RecordDropped counts a frame the codec could not use.
func (c *Collector) RecordDropped(stream, reason string) {
	if c == nil {
		return
	}
	c.Dropped.WithLabelValues(stream, reason).Inc()
}

// RecordControl counts an applied control message.
func (c *Collector) RecordControl(stream string) {
	if c == nil {
		return
	}
	c.ControlsApplied.WithLabelValues(stream).Inc()
}

// RecordBalanceRefresh counts a REST balance refresh.
func (c *Collector) RecordBalanceRefresh(ok bool) {
	if c == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	c.BalanceRefresh.WithLabelValues(status).Inc()
}
