package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/dashfeed/internal/connection"
	"github.com/rickgao/dashfeed/internal/metrics"
)

// engine runs the reconnect loop for one source.
type engine[E, P, C any] struct {
	src     Source[E, P, C]
	dialer  connection.Dialer
	cfg     Config
	kind    Kind
	name    string
	logger  *slog.Logger
	metrics *metrics.Collector
	nextID  func() string

	out     chan Event[P, C]
	control chan C
	done    chan struct{}

	// Consecutive failed attempts since the last connect.
	failures int
}

// Start launches an engine for src and returns its event channel and
// control handle. The first event on the channel is always EventCreated.
// The channel is closed after ctx is cancelled and the engine has exited.
func Start[E, P, C any](
	ctx context.Context,
	src Source[E, P, C],
	dialer connection.Dialer,
	cfg Config,
	opts ...Option,
) (<-chan Event[P, C], Control[C]) {
	cfg = cfg.withDefaults()
	o := buildOptions(opts)
	kind := src.Kind()

	e := &engine[E, P, C]{
		src:     src,
		dialer:  dialer,
		cfg:     cfg,
		kind:    kind,
		name:    kind.String(),
		logger:  o.logger.With("stream", kind.String()),
		metrics: o.metrics,
		nextID:  o.sessionID,
		out:     make(chan Event[P, C], cfg.OutputBuffer),
		control: make(chan C, cfg.ControlBuffer),
		done:    make(chan struct{}),
	}

	handle := Control[C]{ch: e.control, done: e.done}

	// Buffer is at least one, so this never blocks.
	e.out <- Event[P, C]{Type: EventCreated, Kind: kind, Control: handle}

	go e.run(ctx)

	return e.out, handle
}

func (e *engine[E, P, C]) run(ctx context.Context) {
	defer close(e.out)
	defer close(e.done)

	e.logger.Info("stream engine started")
	defer e.logger.Info("stream engine stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		// Pending reconfiguration wins over a new attempt.
		select {
		case c := <-e.control:
			e.apply(c)
			continue
		default:
		}

		logger := e.logger.With("session_id", e.nextID())
		e.metrics.RecordAttempt(e.name)

		sess, err := e.connect(ctx, logger)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.failures++
			logger.Warn("connection attempt failed",
				"error", err,
				"attempt", e.failures,
				"retry_in", e.cfg.RetryBackoff,
			)
			if !e.wait(ctx) {
				return
			}
			continue
		}
		e.failures = 0

		if !e.emit(ctx, Event[P, C]{Type: EventConnected, Kind: e.kind}) {
			sess.Close()
			return
		}
		e.metrics.RecordConnect(e.name)

		reason := e.serve(ctx, sess, logger)
		sess.Close()
		e.metrics.RecordDisconnect(e.name, reason)

		if reason == metrics.ReasonShutdown {
			// Best effort: the consumer may already be gone.
			select {
			case e.out <- Event[P, C]{Type: EventDisconnected, Kind: e.kind}:
			default:
			}
			return
		}

		logger.Info("stream disconnected", "reason", reason)
		if !e.emit(ctx, Event[P, C]{Type: EventDisconnected, Kind: e.kind}) {
			return
		}
	}
}

// connect resolves the endpoint and dials it under the attempt timeout.
func (e *engine[E, P, C]) connect(ctx context.Context, logger *slog.Logger) (connection.Session, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout)
	defer cancel()

	endpoint, err := e.src.Resolve(attemptCtx)
	if err != nil {
		e.metrics.RecordResolveFailure(e.name)
		return nil, fmt.Errorf("resolve endpoint: %w", err)
	}

	sess, err := e.dialer.Dial(attemptCtx, endpoint.URL)
	if err != nil {
		e.metrics.RecordDialFailure(e.name)
		return nil, fmt.Errorf("connect %s: %w", endpoint.Name, err)
	}

	logger.Info("stream connected", "endpoint", endpoint.Name)
	return sess, nil
}

// serve runs the connected sub-loop and returns the disconnect reason.
// Priority is transport failure, then control, then frames. A frame taken
// early to look for closure is held until pending controls have run.
func (e *engine[E, P, C]) serve(ctx context.Context, sess connection.Session, logger *slog.Logger) string {
	liveness := time.NewTimer(e.cfg.LivenessTimeout)
	defer liveness.Stop()

	frames := sess.Messages()
	errs := sess.Errors()

	var held *connection.Frame
	for {
		select {
		case err := <-errs:
			logger.Error("stream transport error", "error", err)
			return metrics.ReasonTransport
		default:
		}

		if held == nil {
			select {
			case frame, ok := <-frames:
				if !ok {
					return e.closed(errs, logger)
				}
				held = &frame
			default:
			}
		}

		select {
		case c := <-e.control:
			if !e.apply(c) {
				return metrics.ReasonControl
			}
			continue
		default:
		}

		if held != nil {
			frame := *held
			held = nil
			if !e.receive(ctx, frame, liveness, logger) {
				return metrics.ReasonShutdown
			}
			continue
		}

		select {
		case <-ctx.Done():
			return metrics.ReasonShutdown

		case err := <-errs:
			logger.Error("stream transport error", "error", err)
			return metrics.ReasonTransport

		case c := <-e.control:
			if !e.apply(c) {
				return metrics.ReasonControl
			}

		case frame, ok := <-frames:
			if !ok {
				return e.closed(errs, logger)
			}
			if !e.receive(ctx, frame, liveness, logger) {
				return metrics.ReasonShutdown
			}

		case <-liveness.C:
			logger.Error("no frames within liveness deadline", "timeout", e.cfg.LivenessTimeout)
			return metrics.ReasonLiveness
		}
	}
}

// closed reports a session whose frame channel has ended.
func (e *engine[E, P, C]) closed(errs <-chan error, logger *slog.Logger) string {
	select {
	case err := <-errs:
		logger.Error("stream transport error", "error", err)
	default:
		logger.Error("stream closed by transport")
	}
	return metrics.ReasonTransport
}

// receive counts one frame, forwards it unless it is a heartbeat, and
// rearms the liveness timer. It returns false on shutdown.
func (e *engine[E, P, C]) receive(ctx context.Context, frame connection.Frame, liveness *time.Timer, logger *slog.Logger) bool {
	e.metrics.RecordFrame(e.name, frame.Heartbeat)
	if !frame.Heartbeat && !e.forward(ctx, frame, logger) {
		return false
	}
	// Time spent blocked on a slow consumer is not silence.
	liveness.Reset(e.cfg.LivenessTimeout)
	return true
}

// forward decodes one frame and emits its payloads. It returns false only
// when ctx was cancelled while waiting for the consumer.
func (e *engine[E, P, C]) forward(ctx context.Context, frame connection.Frame, logger *slog.Logger) bool {
	event, err := e.src.Decode(frame.Data)
	if err != nil {
		e.drop(logger, err, frame.Data)
		return true
	}

	payloads, err := e.src.Project(event)
	if err != nil {
		e.drop(logger, err, frame.Data)
		return true
	}

	for _, p := range payloads {
		if !e.emit(ctx, Event[P, C]{Type: EventMessage, Kind: e.kind, Payload: p}) {
			return false
		}
		e.metrics.RecordMessage(e.name)
	}
	return true
}

// drop logs a frame the codec could not use. The connection survives.
func (e *engine[E, P, C]) drop(logger *slog.Logger, err error, data []byte) {
	reason := "decode"
	if errors.Is(err, ErrUnhandled) {
		reason = "unhandled"
	}
	e.metrics.RecordDropped(e.name, reason)
	logger.Warn("dropping frame",
		"reason", reason,
		"error", err,
		"size", len(data),
	)
}

// apply hands a control message to the source.
func (e *engine[E, P, C]) apply(c C) bool {
	e.metrics.RecordControl(e.name)
	keep := e.src.Apply(c)
	e.logger.Info("control applied", "keep_running", keep)
	return keep
}

// emit sends an event, blocking until the consumer has room.
func (e *engine[E, P, C]) emit(ctx context.Context, ev Event[P, C]) bool {
	select {
	case e.out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// wait sleeps the flat retry backoff. A control message cuts the wait
// short so reconfiguration is not delayed by a failing endpoint.
func (e *engine[E, P, C]) wait(ctx context.Context) bool {
	t := time.NewTimer(e.cfg.RetryBackoff)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	case c := <-e.control:
		e.apply(c)
		return true
	}
}
