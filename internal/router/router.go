package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/dashfeed/internal/account"
	"github.com/rickgao/dashfeed/internal/model"
	"github.com/rickgao/dashfeed/internal/orderbook"
	"github.com/rickgao/dashfeed/internal/stream"
	"github.com/rickgao/dashfeed/internal/ticker"
	"github.com/rickgao/dashfeed/internal/trade"
)

// Router merges the stream channels.
type Router struct {
	cfg    Config
	logger *slog.Logger
	out    chan Update

	mu    sync.RWMutex
	stats map[stream.Kind]*StreamStats

	tickerCtl    stream.Control[ticker.Control]
	orderBookCtl stream.Control[orderbook.Control]
	tradeCtl     stream.Control[trade.Control]
	accountCtl   stream.Control[account.Control]
}

// New creates a router.
func New(cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &Router{
		cfg:    cfg,
		logger: logger,
		out:    make(chan Update, cfg.BufferSize),
		stats:  make(map[stream.Kind]*StreamStats),
	}
}

// Updates returns the merged channel. It is closed when Run returns.
func (r *Router) Updates() <-chan Update {
	return r.out
}

// Run forwards every stream until all inputs are closed or ctx is done.
func (r *Router) Run(ctx context.Context, s Streams) error {
	defer close(r.out)

	g, ctx := errgroup.WithContext(ctx)

	if s.Tickers != nil {
		r.track(stream.KindPriceTicker)
		g.Go(func() error {
			return forward(ctx, r, s.Tickers, &r.tickerCtl, func(u *Update, p model.PriceTicker) {
				u.Ticker = &p
			})
		})
	}
	if s.OrderBook != nil {
		r.track(stream.KindOrderBook)
		g.Go(func() error {
			return forward(ctx, r, s.OrderBook, &r.orderBookCtl, func(u *Update, p model.OrderBookView) {
				u.OrderBook = &p
			})
		})
	}
	if s.Trades != nil {
		r.track(stream.KindTrade)
		g.Go(func() error {
			return forward(ctx, r, s.Trades, &r.tradeCtl, func(u *Update, p model.Trade) {
				u.Trade = &p
			})
		})
	}
	if s.Account != nil {
		r.track(stream.KindUserAccount)
		g.Go(func() error {
			return forward(ctx, r, s.Account, &r.accountCtl, func(u *Update, p model.AccountEvent) {
				u.Account = &p
			})
		})
	}

	err := g.Wait()
	r.logger.Info("router stopped")
	return err
}

// forward copies one stream into the merged channel. The Created event is
// consumed here: its control handle is stored in ctl.
func forward[P, C any](
	ctx context.Context,
	r *Router,
	in <-chan stream.Event[P, C],
	ctl *stream.Control[C],
	set func(*Update, P),
) error {
	for {
		var ev stream.Event[P, C]
		var ok bool

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok = <-in:
			if !ok {
				return nil
			}
		}

		now := time.Now()
		r.record(ev.Kind, ev.Type, now)

		if ev.Type == stream.EventCreated {
			r.mu.Lock()
			*ctl = ev.Control
			r.mu.Unlock()
			continue
		}

		u := Update{Kind: ev.Kind, Type: ev.Type, ReceivedAt: now}
		if ev.Type == stream.EventMessage {
			set(&u, ev.Payload)
		}

		select {
		case r.out <- u:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Router) track(kind stream.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stats[kind]; !ok {
		r.stats[kind] = &StreamStats{}
	}
}

func (r *Router) record(kind stream.Kind, typ stream.EventType, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stats[kind]
	if !ok {
		st = &StreamStats{}
		r.stats[kind] = st
	}

	switch typ {
	case stream.EventConnected:
		st.Connected = true
		st.Connects++
		st.LastConnected = at
		r.logger.Info("stream up", "stream", kind.String())
	case stream.EventDisconnected:
		st.Connected = false
		st.Disconnects++
		r.logger.Info("stream down", "stream", kind.String())
	case stream.EventMessage:
		st.Messages++
		st.LastMessage = at
	}
}

// Stats returns a snapshot of per-stream statistics.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Stats{Streams: make(map[string]StreamStats, len(r.stats))}
	for kind, st := range r.stats {
		out.Streams[kind.String()] = *st
	}
	return out
}

// SetSymbol switches the order book and trade streams to a new symbol.
// Both streams reconnect; the ticker and account streams are untouched.
func (r *Router) SetSymbol(ctx context.Context, symbol string) error {
	r.mu.RLock()
	bookCtl, tradeCtl := r.orderBookCtl, r.tradeCtl
	r.mu.RUnlock()

	// Both engines must be live before either one is told to switch.
	if err := ready(bookCtl); err != nil {
		return err
	}
	if err := ready(tradeCtl); err != nil {
		return err
	}

	if err := bookCtl.Send(ctx, orderbook.Control{Symbol: symbol}); err != nil {
		return err
	}
	if err := tradeCtl.Send(ctx, trade.Control{Symbol: symbol}); err != nil {
		r.logger.Warn("symbol switch partial", "symbol", symbol, "error", err)
		return fmt.Errorf("%w: trade stream: %w", ErrPartialSwitch, err)
	}
	return nil
}

// Reconnect forces one stream to drop its connection and resolve again.
func (r *Router) Reconnect(ctx context.Context, kind stream.Kind) error {
	r.mu.RLock()
	tickerCtl, bookCtl, tradeCtl, accountCtl := r.tickerCtl, r.orderBookCtl, r.tradeCtl, r.accountCtl
	r.mu.RUnlock()

	switch kind {
	case stream.KindPriceTicker:
		return send(ctx, tickerCtl, ticker.Control{Reconnect: true})
	case stream.KindOrderBook:
		return send(ctx, bookCtl, orderbook.Control{Reconnect: true})
	case stream.KindTrade:
		return send(ctx, tradeCtl, trade.Control{Reconnect: true})
	case stream.KindUserAccount:
		return send(ctx, accountCtl, account.Control{Reconnect: true})
	}
	return ErrNotReady
}

// send delivers a control to a captured handle.
func send[C any](ctx context.Context, c stream.Control[C], msg C) error {
	if err := ready(c); err != nil {
		return err
	}
	return c.Send(ctx, msg)
}

// ready reports whether a captured handle can take controls. A zero handle
// means the stream's Created event has not arrived yet.
func ready[C any](c stream.Control[C]) error {
	if c.Done() == nil {
		return ErrNotReady
	}
	select {
	case <-c.Done():
		return stream.ErrStopped
	default:
		return nil
	}
}
