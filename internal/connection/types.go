package connection

import (
	"context"
	"time"
)

// Frame is one inbound unit from a session.
type Frame struct {
	Data       []byte    // Raw message bytes, nil for heartbeats
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
	Heartbeat  bool      // True for protocol ping/pong activity
}

// Session is a single established streaming connection.
type Session interface {
	// Messages returns the inbound frames. The channel is closed when the
	// session ends, whether by Close or by a transport error.
	Messages() <-chan Frame

	// Errors receives at most one error: the reason the session ended on
	// its own. Nothing is sent after Close.
	Errors() <-chan error

	// Close stops the read loop and closes the connection. Idempotent.
	Close() error

	// IsConnected returns current connection state.
	IsConnected() bool
}

// Dialer opens sessions. Implementations must be safe for concurrent use;
// one Dialer is shared by every stream.
type Dialer interface {
	Dial(ctx context.Context, url string) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string) (Session, error)

// Dial calls f(ctx, url).
func (f DialerFunc) Dial(ctx context.Context, url string) (Session, error) {
	return f(ctx, url)
}

// ClientConfig configures WebSocket sessions.
type ClientConfig struct {
	HandshakeTimeout time.Duration // Bound on the WebSocket upgrade
	PingInterval     time.Duration // Client keepalive pings, 0 disables
	WriteTimeout     time.Duration // Write deadline for control frames
	BufferSize       int           // Inbound frame channel buffer size
	ReadLimit        int64         // Max message size in bytes, 0 for no limit
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     20 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
		ReadLimit:        4 << 20, // Full miniTicker arrays run to a few hundred KB
	}
}
