package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/dashfeed/internal/version"
)

// WSDialer opens gorilla/websocket sessions.
type WSDialer struct {
	cfg    ClientConfig
	logger *slog.Logger
	header http.Header
}

// NewDialer creates a WebSocket dialer.
func NewDialer(cfg ClientConfig, logger *slog.Logger) *WSDialer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	return &WSDialer{
		cfg:    cfg,
		logger: logger,
		header: http.Header{"User-Agent": {version.UserAgent()}},
	}
}

// Dial establishes a WebSocket connection and starts its read loop.
func (d *WSDialer) Dial(ctx context.Context, url string) (Session, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, _, err := dialer.DialContext(ctx, url, d.header.Clone())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", redactURL(url), err)
	}

	if d.cfg.ReadLimit > 0 {
		conn.SetReadLimit(d.cfg.ReadLimit)
	}

	s := &session{
		cfg:      d.cfg,
		logger:   d.logger.With("url", redactURL(url)),
		conn:     conn,
		messages: make(chan Frame, d.cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	s.connected = true

	// Server pings are answered and reported as activity.
	conn.SetPingHandler(func(data string) error {
		s.heartbeat()
		err := conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(d.cfg.WriteTimeout),
		)
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	// Pongs answer our own keepalive pings.
	conn.SetPongHandler(func(string) error {
		s.heartbeat()
		return nil
	})

	go s.readLoop()
	if d.cfg.PingInterval > 0 {
		go s.pingLoop()
	}

	s.logger.Debug("websocket connected")

	return s, nil
}

// session implements the Session interface.
type session struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	messages chan Frame
	errors   chan error
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu        sync.RWMutex
	connected bool
	closed    bool
}

// Messages returns the messages channel.
func (s *session) Messages() <-chan Frame {
	return s.messages
}

// Errors returns the errors channel.
func (s *session) Errors() <-chan error {
	return s.errors
}

// IsConnected returns the current connection state.
func (s *session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Close gracefully closes the connection.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.connected = false
	s.mu.Unlock()

	// Stop flag for the read and ping loops
	close(s.done)

	s.writeMu.Lock()
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.writeMu.Unlock()

	return s.conn.Close()
}

// readLoop reads messages from the WebSocket and sends them to the messages channel.
// A full channel blocks the loop, which in turn stops reading from the socket.
func (s *session) readLoop() {
	defer close(s.messages)
	defer func() {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Debug("websocket read failed", "error", err)
			s.errors <- fmt.Errorf("read: %w", err)
			return
		}

		select {
		case s.messages <- Frame{Data: data, ReceivedAt: receivedAt}:
		case <-s.done:
			return
		}
	}
}

// heartbeat reports ping/pong activity without blocking the read loop.
// A full channel already holds frames that prove the connection is alive.
func (s *session) heartbeat() {
	select {
	case s.messages <- Frame{ReceivedAt: time.Now(), Heartbeat: true}:
	default:
	}
}

// pingLoop sends keepalive pings.
func (s *session) pingLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(s.cfg.WriteTimeout))
			s.writeMu.Unlock()
			if err != nil {
				s.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}
