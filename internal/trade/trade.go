package trade

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

const tradeEvent = "trade"

// Control reconfigures the trade stream.
type Control struct {
	Symbol    string // New symbol, empty keeps the current one
	Reconnect bool   // Drop the current connection and resolve again
}

// Event is a trade event as sent on the wire.
type Event struct {
	EventType    string       `json:"e"`
	EventTime    int64        `json:"E"` // Milliseconds since epoch
	Symbol       string       `json:"s"`
	TradeID      int64        `json:"t"`
	Price        model.Amount `json:"p"`
	Quantity     model.Amount `json:"q"`
	TradeTime    int64        `json:"T"` // Milliseconds since epoch
	BuyerIsMaker bool         `json:"m"`

	// encoding/json matches keys case-insensitively, so "M" would land
	// in BuyerIsMaker unless it has a field of its own.
	Ignore bool `json:"M"`
}

// Source implements stream.Source for trade prints.
type Source struct {
	wsURL  string
	symbol string
}

// NewSource creates a trade source for symbol.
func NewSource(wsURL, symbol string) *Source {
	return &Source{
		wsURL:  wsURL,
		symbol: market.NormalizeSymbol(symbol),
	}
}

// Symbol returns the currently tracked symbol.
func (s *Source) Symbol() string { return s.symbol }

func (s *Source) Kind() stream.Kind { return stream.KindTrade }

func (s *Source) Resolve(ctx context.Context) (stream.Endpoint, error) {
	if s.symbol == "" {
		return stream.Endpoint{}, errors.New("no symbol configured")
	}
	return stream.RawEndpoint(s.wsURL, market.StreamSymbol(s.symbol)+"@trade"), nil
}

func (s *Source) Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode trade: %w", err)
	}
	if ev.EventType != tradeEvent {
		return Event{}, fmt.Errorf("%w: %q", stream.ErrUnhandled, ev.EventType)
	}
	return ev, nil
}

func (s *Source) Project(ev Event) ([]model.Trade, error) {
	if ev.Symbol != s.symbol {
		return nil, fmt.Errorf("%w: trade for %s while tracking %s", stream.ErrUnhandled, ev.Symbol, s.symbol)
	}
	return []model.Trade{{
		Symbol:       ev.Symbol,
		TradeID:      ev.TradeID,
		Price:        ev.Price,
		Quantity:     ev.Quantity,
		BuyerIsMaker: ev.BuyerIsMaker,
		TradeTime:    time.UnixMilli(ev.TradeTime),
		EventTime:    time.UnixMilli(ev.EventTime),
	}}, nil
}

// Apply switches the tracked symbol. A change abandons the connection.
func (s *Source) Apply(c Control) bool {
	keep := !c.Reconnect
	if sym := market.NormalizeSymbol(c.Symbol); sym != "" && sym != s.symbol {
		s.symbol = sym
		keep = false
	}
	return keep
}

// Subscribe starts the trade stream.
func Subscribe(ctx context.Context, deps stream.Deps, wsURL, symbol string) (<-chan stream.Event[model.Trade, Control], stream.Control[Control]) {
	return stream.Start[Event, model.Trade, Control](
		ctx, NewSource(wsURL, symbol), deps.Dialer, deps.Config, deps.Options()...,
	)
}
