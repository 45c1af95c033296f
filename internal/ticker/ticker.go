package ticker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rickgao/dashfeed/internal/market"
	"github.com/rickgao/dashfeed/internal/model"
	"github.com/rickgao/dashfeed/internal/stream"
)

// StreamName is the all-market mini ticker stream.
const StreamName = "!miniTicker@arr"

// Control reconfigures the ticker stream.
type Control struct {
	Reconnect bool // Drop the current connection and resolve again
}

// MiniTicker is one entry of the mini ticker array as sent on the wire.
type MiniTicker struct {
	EventType   string       `json:"e"`
	EventTime   int64        `json:"E"` // Milliseconds since epoch
	Symbol      string       `json:"s"`
	Close       model.Amount `json:"c"`
	Open        model.Amount `json:"o"`
	High        model.Amount `json:"h"`
	Low         model.Amount `json:"l"`
	Volume      model.Amount `json:"v"`
	QuoteVolume model.Amount `json:"q"`
}

// Source implements stream.Source for the mini ticker.
type Source struct {
	wsURL string
}

// NewSource creates a ticker source against the given WebSocket base URL.
func NewSource(wsURL string) *Source {
	return &Source{wsURL: wsURL}
}

func (s *Source) Kind() stream.Kind { return stream.KindPriceTicker }

func (s *Source) Resolve(ctx context.Context) (stream.Endpoint, error) {
	return stream.RawEndpoint(s.wsURL, StreamName), nil
}

func (s *Source) Decode(data []byte) ([]MiniTicker, error) {
	var tickers []MiniTicker
	if err := json.Unmarshal(data, &tickers); err != nil {
		return nil, fmt.Errorf("decode mini tickers: %w", err)
	}
	return tickers, nil
}

// Project emits one PriceTicker per array entry, in array order.
// Entries without a symbol are skipped.
func (s *Source) Project(tickers []MiniTicker) ([]model.PriceTicker, error) {
	out := make([]model.PriceTicker, 0, len(tickers))
	for _, t := range tickers {
		if t.Symbol == "" {
			continue
		}
		base, quote, _ := market.SplitSymbol(t.Symbol)
		out = append(out, model.PriceTicker{
			Symbol:      t.Symbol,
			Base:        base,
			Quote:       quote,
			Close:       t.Close,
			Open:        t.Open,
			High:        t.High,
			Low:         t.Low,
			Volume:      t.Volume,
			QuoteVolume: t.QuoteVolume,
			EventTime:   time.UnixMilli(t.EventTime),
		})
	}
	return out, nil
}

func (s *Source) Apply(c Control) bool {
	return !c.Reconnect
}

// Subscribe starts the price ticker stream.
func Subscribe(ctx context.Context, deps stream.Deps, wsURL string) (<-chan stream.Event[model.PriceTicker, Control], stream.Control[Control]) {
	return stream.Start[[]MiniTicker, model.PriceTicker, Control](
		ctx, NewSource(wsURL), deps.Dialer, deps.Config, deps.Options()...,
	)
}
