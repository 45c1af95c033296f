package stream

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	// ErrUnhandled marks a frame that decoded but has no mapping to a
	// payload. The engine drops the frame and keeps the connection.
	ErrUnhandled = errors.New("unhandled event variant")

	// ErrStopped is returned by Control once the engine has exited.
	ErrStopped = errors.New("stream stopped")

	// ErrControlFull is returned by TrySend when the control buffer is full.
	ErrControlFull = errors.New("control buffer full")
)

// Kind identifies one of the four logical streams.
type Kind int

const (
	KindPriceTicker Kind = iota
	KindOrderBook
	KindTrade
	KindUserAccount
)

// Kinds lists every stream kind in a stable order.
var Kinds = []Kind{KindPriceTicker, KindOrderBook, KindTrade, KindUserAccount}

func (k Kind) String() string {
	switch k {
	case KindPriceTicker:
		return "price_ticker"
	case KindOrderBook:
		return "order_book"
	case KindTrade:
		return "trade"
	case KindUserAccount:
		return "user_account"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Endpoint is the connection target for one attempt.
type Endpoint struct {
	URL  string // Full WebSocket URL
	Name string // Stream name for logs, never secret
}

// EventType tags a lifecycle event.
type EventType int

const (
	EventCreated EventType = iota
	EventConnected
	EventDisconnected
	EventMessage
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification from an engine.
type Event[P, C any] struct {
	Type    EventType
	Kind    Kind
	Control Control[C] // Set on EventCreated
	Payload P          // Set on EventMessage
}

// Source is the per-kind logic the engine drives. All methods are called
// from the engine goroutine only, so implementations need no locking.
type Source[E, P, C any] interface {
	// Kind reports which stream this source serves.
	Kind() Kind

	// Resolve computes the endpoint for the next attempt. It may perform
	// network calls and is retried after failure.
	Resolve(ctx context.Context) (Endpoint, error)

	// Decode parses one raw frame.
	Decode(data []byte) (E, error)

	// Project maps a decoded event to zero or more payloads.
	Project(event E) ([]P, error)

	// Apply updates the source's parameters. Returning false abandons the
	// current connection so the next attempt resolves again.
	Apply(control C) (keepRunning bool)
}

// Control is the handle for sending control messages into a running engine.
// It is safe for concurrent use.
type Control[C any] struct {
	ch   chan<- C
	done <-chan struct{}
}

// Send delivers a control message, waiting for buffer space.
func (c Control[C]) Send(ctx context.Context, msg C) error {
	if c.ch == nil || c.stopped() {
		return ErrStopped
	}

	select {
	case c.ch <- msg:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend delivers a control message without waiting.
func (c Control[C]) TrySend(msg C) error {
	if c.ch == nil || c.stopped() {
		return ErrStopped
	}

	select {
	case c.ch <- msg:
		return nil
	default:
		return ErrControlFull
	}
}

// Done is closed when the engine has exited.
func (c Control[C]) Done() <-chan struct{} {
	return c.done
}

func (c Control[C]) stopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Config holds engine timing and buffer sizes.
type Config struct {
	LivenessTimeout time.Duration // Max silence on an established connection
	RetryBackoff    time.Duration // Flat wait after a failed resolve or dial
	AttemptTimeout  time.Duration // Bound on resolve + dial for one attempt
	OutputBuffer    int           // Lifecycle event channel capacity
	ControlBuffer   int           // Control message channel capacity
}

// DefaultConfig returns the reference timings.
func DefaultConfig() Config {
	return Config{
		LivenessTimeout: 30 * time.Second,
		RetryBackoff:    2 * time.Second,
		AttemptTimeout:  10 * time.Second,
		OutputBuffer:    100,
		ControlBuffer:   16,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LivenessTimeout <= 0 {
		c.LivenessTimeout = d.LivenessTimeout
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	if c.OutputBuffer < 1 {
		c.OutputBuffer = d.OutputBuffer
	}
	if c.ControlBuffer < 1 {
		c.ControlBuffer = d.ControlBuffer
	}
	return c
}
