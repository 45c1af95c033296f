package stream

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/dashfeed/internal/connection"
	"github.com/rickgao/dashfeed/internal/metrics"
)

type testEvent = Event[string, testControl]

func testConfig() Config {
	return Config{
		LivenessTimeout: 5 * time.Second,
		RetryBackoff:    10 * time.Millisecond,
		AttemptTimeout:  time.Second,
		OutputBuffer:    100,
		ControlBuffer:   4,
	}
}

func startTest(t *testing.T, src *testSource, dialer connection.Dialer, cfg Config, opts ...Option) (<-chan testEvent, Control[testControl], context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	events, ctrl := Start[string, string, testControl](ctx, src, dialer, cfg, opts...)
	return events, ctrl, cancel
}

func next(t *testing.T, events <-chan testEvent) testEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return testEvent{}
}

func expect(t *testing.T, events <-chan testEvent, want EventType) testEvent {
	t.Helper()
	ev := next(t, events)
	if ev.Type != want {
		t.Fatalf("event type = %v, want %v (payload %q)", ev.Type, want, ev.Payload)
	}
	return ev
}

func drain(t *testing.T, events <-chan testEvent) []testEvent {
	t.Helper()
	var out []testEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timeout waiting for event channel to close")
		}
	}
}

// checkLifecycle verifies one Created first, then Connected/Disconnected
// alternation with messages only while connected.
func checkLifecycle(t *testing.T, events []testEvent) {
	t.Helper()
	if len(events) == 0 || events[0].Type != EventCreated {
		t.Fatal("first event must be created")
	}
	connected := false
	for i, ev := range events[1:] {
		switch ev.Type {
		case EventCreated:
			t.Fatalf("event %d: duplicate created", i+1)
		case EventConnected:
			if connected {
				t.Fatalf("event %d: connected twice without disconnect", i+1)
			}
			connected = true
		case EventDisconnected:
			if !connected {
				t.Fatalf("event %d: disconnected while not connected", i+1)
			}
			connected = false
		case EventMessage:
			if !connected {
				t.Fatalf("event %d: message outside a connection", i+1)
			}
		}
	}
}

func scrapeMetrics(t *testing.T, m *metrics.Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	return string(body)
}

func TestStart_CreatedFirstAndOnce(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)
	sess := newFakeSession(16)
	dialer.sessions <- sess

	events, ctrl, cancel := startTest(t, src, dialer, testConfig())

	ev := expect(t, events, EventCreated)
	if ev.Kind != KindTrade {
		t.Errorf("Kind = %v, want trade", ev.Kind)
	}
	if ev.Control.Done() != ctrl.Done() {
		t.Error("created event should carry the returned control handle")
	}

	expect(t, events, EventConnected)
	sess.push("a,b")
	expect(t, events, EventMessage)
	expect(t, events, EventMessage)

	cancel()
	rest := drain(t, events)
	for _, ev := range rest {
		if ev.Type == EventCreated {
			t.Error("created emitted more than once")
		}
	}
}

func TestEngine_ConnectedDisconnectedAlternate(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)

	for i := 0; i < 3; i++ {
		s := newFakeSession(16)
		s.push(fmt.Sprintf("s%d-a,s%d-b", i, i))
		if i < 2 {
			close(s.frames)
		}
		dialer.sessions <- s
	}

	events, _, cancel := startTest(t, src, dialer, testConfig())

	var got []testEvent
	connects := 0
	for connects < 3 {
		ev := next(t, events)
		got = append(got, ev)
		if ev.Type == EventConnected {
			connects++
		}
	}
	// Third session stays open and delivers its payloads.
	got = append(got, expect(t, events, EventMessage), expect(t, events, EventMessage))

	cancel()
	got = append(got, drain(t, events)...)

	checkLifecycle(t, got)

	var payloads []string
	for _, ev := range got {
		if ev.Type == EventMessage {
			payloads = append(payloads, ev.Payload)
		}
	}
	want := []string{"s0-a", "s0-b", "s1-a", "s1-b", "s2-a", "s2-b"}
	if strings.Join(payloads, " ") != strings.Join(want, " ") {
		t.Errorf("payloads = %v, want %v", payloads, want)
	}
}

func TestEngine_TransportErrorDisconnects(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)
	sess := newFakeSession(16)
	dialer.sessions <- sess

	events, _, _ := startTest(t, src, dialer, testConfig())

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)

	sess.errs <- fmt.Errorf("read: connection reset by peer")
	expect(t, events, EventDisconnected)

	if sess.IsConnected() {
		t.Error("session should be closed after transport error")
	}

	// Engine reconnects on its own.
	expect(t, events, EventConnected)
}

func TestEngine_LivenessTimeout(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)
	sess := newFakeSession(16)
	dialer.sessions <- sess

	cfg := testConfig()
	cfg.LivenessTimeout = 100 * time.Millisecond
	events, _, _ := startTest(t, src, dialer, cfg)

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)
	connectedAt := time.Now()

	expect(t, events, EventDisconnected)
	elapsed := time.Since(connectedAt)

	if elapsed > cfg.LivenessTimeout+400*time.Millisecond {
		t.Errorf("disconnect after %v, want about %v", elapsed, cfg.LivenessTimeout)
	}
	if sess.IsConnected() {
		t.Error("silent session should be closed")
	}
}

func TestEngine_HeartbeatsKeepConnectionAlive(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)
	sess := newFakeSession(16)
	dialer.sessions <- sess

	cfg := testConfig()
	cfg.LivenessTimeout = 150 * time.Millisecond
	events, _, _ := startTest(t, src, dialer, cfg)

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)

	stop := time.After(500 * time.Millisecond)
	tick := time.NewTicker(30 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			sess.frames <- connection.Frame{ReceivedAt: time.Now(), Heartbeat: true}
		case ev := <-events:
			t.Fatalf("unexpected %v event while heartbeats flow", ev.Type)
		case <-stop:
			return
		}
	}
}

func TestEngine_RetriesConnectFailures(t *testing.T) {
	const failures = 3

	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(failures)
	m := metrics.New()

	events, _, _ := startTest(t, src, dialer, testConfig(), WithMetrics(m))

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)

	if got := len(dialer.dialed()); got != failures+1 {
		t.Errorf("dial attempts = %d, want %d", got, failures+1)
	}

	select {
	case ev := <-events:
		t.Errorf("unexpected %v event after connect", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}

	body := scrapeMetrics(t, m)
	for _, want := range []string{
		fmt.Sprintf(`dashfeed_dial_failures_total{stream="trade"} %d`, failures),
		fmt.Sprintf(`dashfeed_connection_attempts_total{stream="trade"} %d`, failures+1),
		`dashfeed_connects_total{stream="trade"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestEngine_RetriesResolveFailures(t *testing.T) {
	src := &testSource{symbol: "btcusdt", failN: 2}
	dialer := newFakeDialer(0)

	events, _, _ := startTest(t, src, dialer, testConfig())

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)

	if got := len(dialer.dialed()); got != 1 {
		t.Errorf("dial attempts = %d, want 1", got)
	}
	if got := src.resolvedSymbols(); len(got) != 1 {
		t.Errorf("successful resolves = %v, want 1", got)
	}
}

func TestEngine_ReconfigureForcesOneReconnect(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)
	first := newFakeSession(16)
	dialer.sessions <- first

	events, ctrl, _ := startTest(t, src, dialer, testConfig())

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)

	if err := ctrl.Send(context.Background(), testControl{Symbol: "ethusdt"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	expect(t, events, EventDisconnected)
	expect(t, events, EventConnected)

	select {
	case ev := <-events:
		t.Errorf("unexpected %v event after reconnect", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}

	if first.IsConnected() {
		t.Error("abandoned session should be closed")
	}

	resolved := src.resolvedSymbols()
	if len(resolved) != 2 || resolved[0] != "btcusdt" || resolved[1] != "ethusdt" {
		t.Errorf("resolved = %v, want [btcusdt ethusdt]", resolved)
	}

	urls := dialer.dialed()
	if last := urls[len(urls)-1]; !strings.Contains(last, "ethusdt@trade") {
		t.Errorf("last dial = %q, want ethusdt stream", last)
	}
}

func TestEngine_ControlKeepRunning(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)
	sess := newFakeSession(16)
	dialer.sessions <- sess

	events, ctrl, _ := startTest(t, src, dialer, testConfig())

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)

	// Same symbol: nothing to change, connection stays up.
	if err := ctrl.Send(context.Background(), testControl{Symbol: "btcusdt"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sess.push("x")

	ev := expect(t, events, EventMessage)
	if ev.Payload != "x" {
		t.Errorf("payload = %q, want x", ev.Payload)
	}
	if !sess.IsConnected() {
		t.Error("session should stay open")
	}
}

func TestEngine_ControlDuringBackoff(t *testing.T) {
	src := &testSource{symbol: "btcusdt", failN: 1 << 20}
	dialer := newFakeDialer(0)

	cfg := testConfig()
	cfg.RetryBackoff = time.Hour
	events, ctrl, _ := startTest(t, src, dialer, cfg)

	expect(t, events, EventCreated)

	if err := ctrl.Send(context.Background(), testControl{Symbol: "ethusdt"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		src.mu.Lock()
		sym := src.symbol
		src.mu.Unlock()
		if sym == "ethusdt" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("control was not applied while backing off")
}

func TestEngine_BackpressureLosesNothing(t *testing.T) {
	const frames = 50

	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)
	sess := newFakeSession(frames)
	for i := 0; i < frames; i++ {
		sess.push(fmt.Sprintf("%d-a,%d-b", i, i))
	}
	dialer.sessions <- sess

	cfg := testConfig()
	cfg.OutputBuffer = 2
	events, _, _ := startTest(t, src, dialer, cfg)

	// Let the engine saturate the output channel.
	time.Sleep(100 * time.Millisecond)

	if got := len(events); got != cap(events) {
		t.Errorf("queued = %d, want channel full at %d", got, cap(events))
	}

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)

	for i := 0; i < frames; i++ {
		for _, suffix := range []string{"a", "b"} {
			ev := expect(t, events, EventMessage)
			if want := fmt.Sprintf("%d-%s", i, suffix); ev.Payload != want {
				t.Fatalf("payload = %q, want %q", ev.Payload, want)
			}
		}
	}
}

func TestEngine_ClosedSessionBeatsPendingControl(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)
	sess := newFakeSession(4)
	sess.push("a")
	dialer.sessions <- sess
	m := metrics.New()

	cfg := testConfig()
	cfg.OutputBuffer = 2
	events, ctrl, _ := startTest(t, src, dialer, cfg, WithMetrics(m))

	// Created and Connected fill the output; the engine blocks emitting "a".
	time.Sleep(100 * time.Millisecond)
	if got := len(events); got != cap(events) {
		t.Fatalf("queued = %d, want channel full at %d", got, cap(events))
	}

	if err := ctrl.TrySend(testControl{Reconnect: true}); err != nil {
		t.Fatalf("TrySend: %v", err)
	}
	close(sess.frames)

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)
	if ev := expect(t, events, EventMessage); ev.Payload != "a" {
		t.Errorf("payload = %q, want a", ev.Payload)
	}
	expect(t, events, EventDisconnected)

	// The control still runs before the next attempt.
	expect(t, events, EventConnected)

	body := scrapeMetrics(t, m)
	if !strings.Contains(body, `dashfeed_disconnects_total{reason="transport",stream="trade"} 1`) {
		t.Error("closed session should disconnect as transport")
	}
	if strings.Contains(body, `reason="control"`) {
		t.Error("pending control should not be credited with the disconnect")
	}
}

func TestEngine_DropsBadFrames(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)
	sess := newFakeSession(16)
	sess.push("bad")
	sess.push("unknown")
	sess.push("ok")
	dialer.sessions <- sess
	m := metrics.New()

	events, _, _ := startTest(t, src, dialer, testConfig(), WithMetrics(m))

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)
	ev := expect(t, events, EventMessage)
	if ev.Payload != "ok" {
		t.Errorf("payload = %q, want ok", ev.Payload)
	}
	if !sess.IsConnected() {
		t.Error("bad frames must not close the session")
	}

	body := scrapeMetrics(t, m)
	for _, want := range []string{
		`dashfeed_dropped_frames_total{reason="decode",stream="trade"} 1`,
		`dashfeed_dropped_frames_total{reason="unhandled",stream="trade"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestEngine_ShutdownClosesChannel(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(0)
	sess := newFakeSession(16)
	dialer.sessions <- sess

	events, ctrl, cancel := startTest(t, src, dialer, testConfig())

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)

	cancel()
	rest := drain(t, events)

	if len(rest) != 1 || rest[0].Type != EventDisconnected {
		t.Errorf("events after cancel = %v, want one disconnected", rest)
	}
	if sess.IsConnected() {
		t.Error("session should be closed on shutdown")
	}

	<-ctrl.Done()
	if err := ctrl.Send(context.Background(), testControl{Reconnect: true}); err != ErrStopped {
		t.Errorf("Send after stop = %v, want ErrStopped", err)
	}
	if err := ctrl.TrySend(testControl{Reconnect: true}); err != ErrStopped {
		t.Errorf("TrySend after stop = %v, want ErrStopped", err)
	}
}

func TestEngine_SessionIDPerAttempt(t *testing.T) {
	src := &testSource{symbol: "btcusdt"}
	dialer := newFakeDialer(2)

	ids := make(chan string, 10)
	n := 0
	events, _, _ := startTest(t, src, dialer, testConfig(), WithSessionIDs(func() string {
		n++
		id := fmt.Sprintf("session-%d", n)
		ids <- id
		return id
	}))

	expect(t, events, EventCreated)
	expect(t, events, EventConnected)

	if got := len(ids); got != 3 {
		t.Errorf("session ids generated = %d, want 3", got)
	}
}

func TestControl_ZeroValue(t *testing.T) {
	var c Control[testControl]
	if err := c.Send(context.Background(), testControl{}); err != ErrStopped {
		t.Errorf("Send on zero handle = %v, want ErrStopped", err)
	}
	if err := c.TrySend(testControl{}); err != ErrStopped {
		t.Errorf("TrySend on zero handle = %v, want ErrStopped", err)
	}
}

func TestControl_TrySendFull(t *testing.T) {
	ch := make(chan testControl, 1)
	c := Control[testControl]{ch: ch, done: make(chan struct{})}

	if err := c.TrySend(testControl{}); err != nil {
		t.Fatalf("first TrySend: %v", err)
	}
	if err := c.TrySend(testControl{}); err != ErrControlFull {
		t.Errorf("second TrySend = %v, want ErrControlFull", err)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	want := DefaultConfig()
	if cfg != want {
		t.Errorf("zero config = %+v, want %+v", cfg, want)
	}

	custom := Config{LivenessTimeout: time.Second, OutputBuffer: 5}.withDefaults()
	if custom.LivenessTimeout != time.Second || custom.OutputBuffer != 5 {
		t.Errorf("custom values overwritten: %+v", custom)
	}
	if custom.RetryBackoff != 2*time.Second {
		t.Errorf("RetryBackoff = %v, want 2s", custom.RetryBackoff)
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindPriceTicker, "price_ticker"},
		{KindOrderBook, "order_book"},
		{KindTrade, "trade"},
		{KindUserAccount, "user_account"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("unknown"); ok {
		t.Error("ParseKind(unknown) should fail")
	}
}

func TestRawEndpoint(t *testing.T) {
	tests := []struct {
		base string
		name string
		want string
	}{
		{"wss://stream.binance.com:9443", "btcusdt@trade", "wss://stream.binance.com:9443/ws/btcusdt@trade"},
		{"wss://stream.binance.com:9443/", "!miniTicker@arr", "wss://stream.binance.com:9443/ws/!miniTicker@arr"},
	}
	for _, tt := range tests {
		ep := RawEndpoint(tt.base, tt.name)
		if ep.URL != tt.want {
			t.Errorf("URL = %q, want %q", ep.URL, tt.want)
		}
		if ep.Name != tt.name {
			t.Errorf("Name = %q, want %q", ep.Name, tt.name)
		}
	}
}
