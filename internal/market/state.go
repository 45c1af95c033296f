package market

import (
	"slices"
	"sync"
	"time"

	"github.com/rickgao/dashfeed/internal/model"
)

// registryState holds the thread-safe symbol cache.
type registryState struct {
	mu sync.RWMutex

	// All listed symbols indexed by symbol.
	symbols map[string]model.SymbolInfo

	// Symbols currently open for trading.
	tradingSet map[string]struct{}

	// Last successful REST sync timestamp.
	lastSyncAt time.Time
}

func newState() *registryState {
	return &registryState{
		symbols:    make(map[string]model.SymbolInfo),
		tradingSet: make(map[string]struct{}),
	}
}

// get returns a symbol by name (read-locked).
func (s *registryState) get(symbol string) (model.SymbolInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.symbols[symbol]
	return info, ok
}

// isTrading reports trading-set membership (read-locked).
func (s *registryState) isTrading(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tradingSet[symbol]
	return ok
}

// trading returns the sorted trading symbols (read-locked).
func (s *registryState) trading() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.tradingSet))
	for symbol := range s.tradingSet {
		result = append(result, symbol)
	}
	slices.Sort(result)
	return result
}

// replace installs a full listing and returns what changed (write-locked).
func (s *registryState) replace(listing []model.SymbolInfo, at time.Time) []SymbolChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changes []SymbolChange
	next := make(map[string]model.SymbolInfo, len(listing))
	trading := make(map[string]struct{}, len(listing))

	for _, info := range listing {
		next[info.Symbol] = info
		if info.Trading() {
			trading[info.Symbol] = struct{}{}
		}

		old, ok := s.symbols[info.Symbol]
		switch {
		case !ok:
			changes = append(changes, SymbolChange{
				Symbol:    info.Symbol,
				EventType: "listed",
				NewStatus: info.Status,
			})
		case old.Status != info.Status:
			changes = append(changes, SymbolChange{
				Symbol:    info.Symbol,
				EventType: "status_change",
				OldStatus: old.Status,
				NewStatus: info.Status,
			})
		}
	}
	for symbol, old := range s.symbols {
		if _, ok := next[symbol]; !ok {
			changes = append(changes, SymbolChange{
				Symbol:    symbol,
				EventType: "delisted",
				OldStatus: old.Status,
			})
		}
	}

	s.symbols = next
	s.tradingSet = trading
	s.lastSyncAt = at
	return changes
}
