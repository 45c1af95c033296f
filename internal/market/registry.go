package market

import (
	"context"

	"github.com/rickgao/dashfeed/internal/model"
)

// Registry tracks the exchange's symbol listing.
type Registry interface {
	// Start performs the initial sync, blocking, then reconciles in the
	// background.
	Start(ctx context.Context) error

	// Stop gracefully shuts down.
	Stop(ctx context.Context) error

	// Lookup returns a symbol's listing. The symbol is normalised first.
	Lookup(symbol string) (model.SymbolInfo, bool)

	// IsTrading reports whether a symbol is listed and open for trading.
	IsTrading(symbol string) bool

	// TradingSymbols returns every symbol open for trading, sorted.
	TradingSymbols() []string
}

// SymbolChange is one difference found between two listings.
type SymbolChange struct {
	Symbol    string
	EventType string // "listed", "status_change", "delisted"
	OldStatus string
	NewStatus string
}
