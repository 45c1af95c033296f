package orderbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/dashfeed/internal/market"
	"github.com/rickgao/dashfeed/internal/model"
	"github.com/rickgao/dashfeed/internal/stream"
)

const depthUpdateEvent = "depthUpdate"

// Defaults
const (
	DefaultInterval = "100ms"
	DefaultDepth    = 20
)

// ErrNegativeQuantity is returned for levels with a quantity below zero.
var ErrNegativeQuantity = errors.New("negative quantity")

// Control reconfigures the order book stream.
type Control struct {
	Symbol    string // New symbol, empty keeps the current one
	Reconnect bool   // Drop the current connection and resolve again
}

// DepthUpdate is a diff depth event as sent on the wire.
// Each level is [price, quantity].
type DepthUpdate struct {
	EventType     string            `json:"e"`
	EventTime     int64             `json:"E"` // Milliseconds since epoch
	Symbol        string            `json:"s"`
	FirstUpdateID int64             `json:"U"`
	FinalUpdateID int64             `json:"u"`
	Bids          [][2]model.Amount `json:"b"`
	Asks          [][2]model.Amount `json:"a"`
}

// Params configures a Source.
type Params struct {
	Symbol   string // e.g., "BTCUSDT"
	Interval string // Update speed, "100ms" or "1000ms"
	Depth    int    // Levels per side in each projected view
}

// Source implements stream.Source for diff depth updates.
type Source struct {
	wsURL  string
	params Params
	book   *Book
}

// NewSource creates an order book source.
func NewSource(wsURL string, params Params) *Source {
	params.Symbol = market.NormalizeSymbol(params.Symbol)
	if params.Interval == "" {
		params.Interval = DefaultInterval
	}
	if params.Depth <= 0 {
		params.Depth = DefaultDepth
	}
	return &Source{
		wsURL:  wsURL,
		params: params,
		book:   NewBook(),
	}
}

// Symbol returns the currently tracked symbol.
func (s *Source) Symbol() string { return s.params.Symbol }

func (s *Source) Kind() stream.Kind { return stream.KindOrderBook }

// Resolve builds <symbol>@depth@<interval>. Deltas from an earlier session
// cannot be continued, so the book starts empty.
func (s *Source) Resolve(ctx context.Context) (stream.Endpoint, error) {
	if s.params.Symbol == "" {
		return stream.Endpoint{}, errors.New("no symbol configured")
	}
	s.book.Reset()
	name := market.StreamSymbol(s.params.Symbol) + "@depth@" + s.params.Interval
	return stream.RawEndpoint(s.wsURL, name), nil
}

func (s *Source) Decode(data []byte) (DepthUpdate, error) {
	var u DepthUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return DepthUpdate{}, fmt.Errorf("decode depth update: %w", err)
	}
	if u.EventType != depthUpdateEvent {
		return DepthUpdate{}, fmt.Errorf("%w: %q", stream.ErrUnhandled, u.EventType)
	}
	for _, side := range [][][2]model.Amount{u.Bids, u.Asks} {
		for _, l := range side {
			if l[1] < 0 {
				return DepthUpdate{}, fmt.Errorf("%w at price %s", ErrNegativeQuantity, l[0])
			}
		}
	}
	return u, nil
}

// Project applies the update to the book and emits the resulting view.
func (s *Source) Project(u DepthUpdate) ([]model.OrderBookView, error) {
	if u.Symbol != s.params.Symbol {
		return nil, fmt.Errorf("%w: update for %s while tracking %s", stream.ErrUnhandled, u.Symbol, s.params.Symbol)
	}

	s.book.ApplyUpdate(u)

	return []model.OrderBookView{{
		Symbol:        u.Symbol,
		FirstUpdateID: u.FirstUpdateID,
		LastUpdateID:  u.FinalUpdateID,
		Bids:          s.book.Levels(Bid, s.params.Depth),
		Asks:          s.book.Levels(Ask, s.params.Depth),
		BidDepth:      s.book.Depth(Bid),
		AskDepth:      s.book.Depth(Ask),
		EventTime:     time.UnixMilli(u.EventTime),
	}}, nil
}

// Apply switches the tracked symbol. Any change clears the book and
// abandons the connection.
func (s *Source) Apply(c Control) bool {
	keep := true
	if sym := market.NormalizeSymbol(c.Symbol); sym != "" && sym != s.params.Symbol {
		s.params.Symbol = sym
		keep = false
	}
	if c.Reconnect {
		keep = false
	}
	if !keep {
		s.book.Reset()
	}
	return keep
}

// Subscribe starts the order book stream.
func Subscribe(ctx context.Context, deps stream.Deps, wsURL string, params Params) (<-chan stream.Event[model.OrderBookView, Control], stream.Control[Control]) {
	return stream.Start[DepthUpdate, model.OrderBookView, Control](
		ctx, NewSource(wsURL, params), deps.Dialer, deps.Config, deps.Options()...,
	)
}
