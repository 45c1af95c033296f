package main

import (
	"cmp"
	"slices"
	"sync"

	"github.com/rickgao/dashfeed/internal/market"
	"github.com/rickgao/dashfeed/internal/model"
	"github.com/rickgao/dashfeed/internal/router"
	"github.com/rickgao/dashfeed/internal/stream"
)

const defaultHistory = 50

// board keeps the latest state of every stream for the debug endpoints.
type board struct {
	mu          sync.RWMutex
	history     int
	bookSymbol  string
	tradeSymbol string
	tickers     map[string]model.PriceTicker
	book        *model.OrderBookView
	trades      []model.Trade
	orders      []model.OrderUpdate
}

// newBoard tracks the order book of bookSymbol and the trades of
// tradeSymbol. Symbols are compared in their upper-case payload form.
func newBoard(bookSymbol, tradeSymbol string, history int) *board {
	if history < 1 {
		history = defaultHistory
	}
	return &board{
		history:     history,
		bookSymbol:  market.NormalizeSymbol(bookSymbol),
		tradeSymbol: market.NormalizeSymbol(tradeSymbol),
		tickers:     make(map[string]model.PriceTicker),
	}
}

// apply folds one router update into the board. Book and trade payloads
// for a symbol other than the one their stream follows are in-flight
// leftovers from before a switch and are ignored.
func (b *board) apply(u router.Update) {
	if u.Type != stream.EventMessage {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case u.Ticker != nil:
		b.tickers[u.Ticker.Symbol] = *u.Ticker
	case u.OrderBook != nil:
		if u.OrderBook.Symbol != b.bookSymbol {
			return
		}
		v := *u.OrderBook
		b.book = &v
	case u.Trade != nil:
		if u.Trade.Symbol != b.tradeSymbol {
			return
		}
		b.trades = appendCapped(b.trades, *u.Trade, b.history)
	case u.Account != nil && u.Account.Order != nil:
		b.orders = appendCapped(b.orders, *u.Account.Order, b.history)
	}
}

// switchSymbol points both the book and the trades at symbol and clears
// whatever belonged to the previous one.
func (b *board) switchSymbol(symbol string) {
	symbol = market.NormalizeSymbol(symbol)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.setBookSymbol(symbol)
	if symbol != b.tradeSymbol {
		b.tradeSymbol = symbol
		b.trades = nil
	}
}

// switchBook moves only the order book, for a switch the trade stream missed.
func (b *board) switchBook(symbol string) {
	symbol = market.NormalizeSymbol(symbol)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.setBookSymbol(symbol)
}

func (b *board) setBookSymbol(symbol string) {
	if symbol != b.bookSymbol {
		b.bookSymbol = symbol
		b.book = nil
	}
}

type boardView struct {
	Symbol      string               `json:"symbol"`
	TradeSymbol string               `json:"trade_symbol"`
	Tickers     []model.PriceTicker  `json:"tickers"`
	OrderBook   *model.OrderBookView `json:"order_book,omitempty"`
	Spread      *model.Amount        `json:"spread,omitempty"`
	Trades      []model.Trade        `json:"trades"`
	Orders      []model.OrderUpdate  `json:"orders"`
}

// view returns a copy of the board. Tickers are filtered by quote asset
// when quote is set and ordered by quote volume, busiest first.
func (b *board) view(quote string, limit int) boardView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v := boardView{
		Symbol:      b.bookSymbol,
		TradeSymbol: b.tradeSymbol,
		Tickers:     make([]model.PriceTicker, 0, len(b.tickers)),
		Trades:      newestFirst(b.trades),
		Orders:      newestFirst(b.orders),
	}
	for _, t := range b.tickers {
		if quote == "" || t.Quote == quote {
			v.Tickers = append(v.Tickers, t)
		}
	}
	slices.SortFunc(v.Tickers, func(x, y model.PriceTicker) int {
		if c := cmp.Compare(y.QuoteVolume, x.QuoteVolume); c != 0 {
			return c
		}
		return cmp.Compare(x.Symbol, y.Symbol)
	})
	if limit > 0 && len(v.Tickers) > limit {
		v.Tickers = v.Tickers[:limit]
	}

	if b.book != nil {
		book := *b.book
		v.OrderBook = &book
		if spread, ok := book.Spread(); ok {
			v.Spread = &spread
		}
	}
	return v
}

func appendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = slices.Delete(s, 0, len(s)-limit)
	}
	return s
}

func newestFirst[T any](s []T) []T {
	out := slices.Clone(s)
	slices.Reverse(out)
	if out == nil {
		out = []T{}
	}
	return out
}
