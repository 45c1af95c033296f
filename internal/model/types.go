package model

import "time"

// -----------------------------------------------------------------------------
// Market Data Types
// -----------------------------------------------------------------------------

// PriceTicker is a rolling 24h mini-ticker for one symbol.
type PriceTicker struct {
	Symbol      string    // Exchange symbol (e.g., "BTCUSDT")
	Base        string    // Base asset (e.g., "BTC"), empty if the quote is unknown
	Quote       string    // Quote asset (e.g., "USDT")
	Close       Amount    // Last price
	Open        Amount    // Price 24h ago
	High        Amount    // 24h high
	Low         Amount    // 24h low
	Volume      Amount    // Base asset volume
	QuoteVolume Amount    // Quote asset volume
	EventTime   time.Time // Exchange event time
}

// ChangePercent returns the 24h change in percent, or 0 when Open is zero.
func (t PriceTicker) ChangePercent() float64 {
	if t.Open == 0 {
		return 0
	}
	return float64(t.Close-t.Open) * 100 / float64(t.Open)
}

// PriceLevel represents a single price level in an order book.
type PriceLevel struct {
	Price    Amount
	Quantity Amount
}

// OrderBookView is the projected top of an order book after a delta has
// been applied. Bids are sorted best (highest) first, asks best (lowest) first.
type OrderBookView struct {
	Symbol        string
	FirstUpdateID int64 // First update ID in the delta that produced this view
	LastUpdateID  int64 // Final update ID in the delta that produced this view
	Bids          []PriceLevel
	Asks          []PriceLevel
	BidDepth      int // Total bid levels held, not only those in Bids
	AskDepth      int // Total ask levels held, not only those in Asks
	EventTime     time.Time
}

// BestBid returns the highest bid, if any.
func (v OrderBookView) BestBid() (PriceLevel, bool) {
	if len(v.Bids) == 0 {
		return PriceLevel{}, false
	}
	return v.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (v OrderBookView) BestAsk() (PriceLevel, bool) {
	if len(v.Asks) == 0 {
		return PriceLevel{}, false
	}
	return v.Asks[0], true
}

// Spread returns best ask minus best bid, or false if either side is empty.
func (v OrderBookView) Spread() (Amount, bool) {
	bid, okBid := v.BestBid()
	ask, okAsk := v.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Trade represents an executed trade print.
type Trade struct {
	Symbol       string
	TradeID      int64
	Price        Amount
	Quantity     Amount
	BuyerIsMaker bool // true = sell-side taker
	TradeTime    time.Time
	EventTime    time.Time
}

// -----------------------------------------------------------------------------
// Account Types
// -----------------------------------------------------------------------------

// Balance is a single asset balance, the common shape for balances fetched
// over REST and balances pushed on the user data stream.
type Balance struct {
	Asset  string
	Free   Amount
	Locked Amount
}

// Total returns free plus locked.
func (b Balance) Total() Amount {
	return b.Free + b.Locked
}

// AccountUpdate carries the balances that changed in one account event.
type AccountUpdate struct {
	Balances       []Balance
	LastUpdateTime time.Time
	EventTime      time.Time
}

// BalanceDelta is a deposit, withdrawal or transfer applied to one asset.
type BalanceDelta struct {
	Asset     string
	Delta     Amount
	ClearTime time.Time
	EventTime time.Time
}

// OrderUpdate is an execution report for one of the account's orders.
type OrderUpdate struct {
	Symbol          string
	ClientOrderID   string
	OrderID         int64
	Side            string // "BUY" or "SELL"
	OrderType       string // "LIMIT", "MARKET", ...
	Status          string // "NEW", "PARTIALLY_FILLED", "FILLED", "CANCELED", ...
	ExecutionType   string // "NEW", "TRADE", "CANCELED", ...
	Price           Amount
	Quantity        Amount
	LastFilledQty   Amount
	CumulativeQty   Amount
	LastFilledPrice Amount
	RejectReason    string
	TransactionTime time.Time
	EventTime       time.Time
}

// AccountEvent is the payload of the user account stream. Exactly one of
// the pointer fields is set.
type AccountEvent struct {
	Account *AccountUpdate
	Balance *BalanceDelta
	Order   *OrderUpdate
}

// -----------------------------------------------------------------------------
// Symbol Types
// -----------------------------------------------------------------------------

// SymbolStatusTrading is the status of a symbol open for trading.
const SymbolStatusTrading = "TRADING"

// SymbolInfo is the listing metadata of one trading pair.
type SymbolInfo struct {
	Symbol string
	Base   string
	Quote  string
	Status string
}

// Trading reports whether the symbol is open for trading.
func (s SymbolInfo) Trading() bool {
	return s.Status == SymbolStatusTrading
}
