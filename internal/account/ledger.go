package account

import (
	"sort"
	"sync"
	"time"

	"github.com/rickgao/dashfeed/internal/model"
)

type ledgerEntry struct {
	balance   model.Balance
	updatedAt time.Time
	removed   bool // Total dropped to zero; kept so older sources cannot revive it
}

// Ledger holds the latest known balance per asset. REST snapshots and
// stream updates are merged by timestamp so an older source never
// overwrites a newer one. Safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]ledgerEntry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]ledgerEntry)}
}

// Replace installs a full snapshot taken at the given time. Assets missing
// from the snapshot are removed unless a newer update has been merged.
func (l *Ledger) Replace(balances []model.Balance, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make(map[string]ledgerEntry, len(balances))
	for asset, e := range l.entries {
		if e.updatedAt.After(at) {
			next[asset] = e
		}
	}
	for _, b := range balances {
		if e, ok := next[b.Asset]; ok && e.updatedAt.After(at) {
			continue
		}
		next[b.Asset] = ledgerEntry{balance: b, updatedAt: at}
	}
	l.entries = next
}

// Merge applies the balances of a stream update. Assets whose total drops
// to zero are removed from view but keep their timestamp.
func (l *Ledger) Merge(update model.AccountUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := update.LastUpdateTime
	for _, b := range update.Balances {
		if e, ok := l.entries[b.Asset]; ok && e.updatedAt.After(at) {
			continue
		}
		l.entries[b.Asset] = ledgerEntry{
			balance:   b,
			updatedAt: at,
			removed:   b.Total().IsZero(),
		}
	}
}

// Get returns the balance of one asset.
func (l *Ledger) Get(asset string) (model.Balance, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[asset]
	if !ok || e.removed {
		return model.Balance{}, false
	}
	return e.balance, true
}

// Snapshot returns every balance sorted by asset.
func (l *Ledger) Snapshot() []model.Balance {
	l.mu.RLock()
	out := make([]model.Balance, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.removed {
			out = append(out, e.balance)
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Asset < out[j].Asset
	})
	return out
}

// Len returns the number of assets held.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.entries {
		if !e.removed {
			n++
		}
	}
	return n
}
