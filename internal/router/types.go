package router

import (
	"errors"
	"time"

	"github.com/rickgao/dashfeed/internal/account"
	"github.com/rickgao/dashfeed/internal/model"
	"github.com/rickgao/dashfeed/internal/orderbook"
	"github.com/rickgao/dashfeed/internal/stream"
	"github.com/rickgao/dashfeed/internal/ticker"
	"github.com/rickgao/dashfeed/internal/trade"
)

// ErrNotReady is returned when a control targets a stream whose Created
// event has not been seen.
var ErrNotReady = errors.New("stream not ready")

// ErrPartialSwitch is returned when the order book stream took a new symbol
// but the trade stream did not.
var ErrPartialSwitch = errors.New("symbol switch partially applied")

// Config holds configuration for the router.
type Config struct {
	BufferSize int // Update channel capacity (default: 1000)
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{BufferSize: 1000}
}

// Streams are the façade channels to merge. Nil channels are skipped,
// e.g. the account stream when no credentials are configured.
type Streams struct {
	Tickers   <-chan stream.Event[model.PriceTicker, ticker.Control]
	OrderBook <-chan stream.Event[model.OrderBookView, orderbook.Control]
	Trades    <-chan stream.Event[model.Trade, trade.Control]
	Account   <-chan stream.Event[model.AccountEvent, account.Control]
}

// Update is one merged lifecycle event. For EventMessage exactly one of
// the payload pointers matching Kind is set.
type Update struct {
	Kind       stream.Kind
	Type       stream.EventType
	ReceivedAt time.Time

	Ticker    *model.PriceTicker
	OrderBook *model.OrderBookView
	Trade     *model.Trade
	Account   *model.AccountEvent
}

// StreamStats describes one stream as seen by the router.
type StreamStats struct {
	Connected     bool      `json:"connected"`
	Connects      uint64    `json:"connects"`
	Disconnects   uint64    `json:"disconnects"`
	Messages      uint64    `json:"messages"`
	LastConnected time.Time `json:"last_connected,omitzero"`
	LastMessage   time.Time `json:"last_message,omitzero"`
}

// Stats is a snapshot of every stream, keyed by stream kind name.
type Stats struct {
	Streams map[string]StreamStats `json:"streams"`
}

// AllConnected reports whether every tracked stream is connected.
func (s Stats) AllConnected() bool {
	if len(s.Streams) == 0 {
		return false
	}
	for _, st := range s.Streams {
		if !st.Connected {
			return false
		}
	}
	return true
}
