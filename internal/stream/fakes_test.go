package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rickgao/dashfeed/internal/connection"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSession is an in-memory connection.Session driven by the test.
type fakeSession struct {
	frames chan connection.Frame
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeSession(buffer int) *fakeSession {
	return &fakeSession{
		frames: make(chan connection.Frame, buffer),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (s *fakeSession) Messages() <-chan connection.Frame { return s.frames }
func (s *fakeSession) Errors() <-chan error              { return s.errs }

func (s *fakeSession) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSession) IsConnected() bool {
	select {
	case <-s.closed:
		return false
	default:
		return true
	}
}

func (s *fakeSession) push(data string) {
	s.frames <- connection.Frame{Data: []byte(data)}
}

// fakeDialer fails the first failN dials, then hands out sessions in order.
type fakeDialer struct {
	mu       sync.Mutex
	failN    int
	urls     []string
	sessions chan *fakeSession
}

func newFakeDialer(failN int) *fakeDialer {
	return &fakeDialer{
		failN:    failN,
		sessions: make(chan *fakeSession, 16),
	}
}

var errDialRefused = errors.New("connection refused")

func (d *fakeDialer) Dial(ctx context.Context, url string) (connection.Session, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	if d.failN > 0 {
		d.failN--
		d.mu.Unlock()
		return nil, errDialRefused
	}
	d.mu.Unlock()

	select {
	case s := <-d.sessions:
		return s, nil
	default:
		return newFakeSession(16), nil
	}
}

func (d *fakeDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

type testControl struct {
	Symbol    string
	Reconnect bool
}

// testSource treats each frame as a comma separated list of payloads.
// "bad" fails to decode and "unknown" has no mapping.
type testSource struct {
	mu       sync.Mutex
	symbol   string
	resolved []string
	failN    int
}

func (s *testSource) Kind() Kind { return KindTrade }

func (s *testSource) Resolve(ctx context.Context) (Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failN > 0 {
		s.failN--
		return Endpoint{}, errors.New("token exchange failed")
	}
	s.resolved = append(s.resolved, s.symbol)
	return Endpoint{URL: "ws://test/ws/" + s.symbol + "@trade", Name: s.symbol + "@trade"}, nil
}

func (s *testSource) Decode(data []byte) (string, error) {
	if string(data) == "bad" {
		return "", errors.New("malformed frame")
	}
	return string(data), nil
}

func (s *testSource) Project(ev string) ([]string, error) {
	if ev == "unknown" {
		return nil, ErrUnhandled
	}
	if ev == "" {
		return nil, nil
	}
	return strings.Split(ev, ","), nil
}

func (s *testSource) Apply(c testControl) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Reconnect {
		return false
	}
	if c.Symbol == "" || c.Symbol == s.symbol {
		return true
	}
	s.symbol = c.Symbol
	return false
}

func (s *testSource) resolvedSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resolved...)
}
