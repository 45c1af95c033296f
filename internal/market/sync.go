package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/dashfeed/internal/api"
	"github.com/rickgao/dashfeed/internal/model"
)

// initialSync fetches the listing from the REST API on startup.
func (r *registryImpl) initialSync(ctx context.Context) error {
	start := time.Now()

	listing, err := r.fetch(ctx)
	if err != nil {
		return fmt.Errorf("initial symbol sync: %w", err)
	}
	r.state.replace(listing, time.Now())

	r.logger.Info("symbol registry started",
		"total_symbols", len(listing),
		"trading_symbols", len(r.state.trading()),
		"duration", time.Since(start),
	)
	return nil
}

// reconciliationLoop periodically syncs with the REST API.
func (r *registryImpl) reconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile refetches the listing and logs what changed. A failed fetch
// keeps the previous listing.
func (r *registryImpl) reconcile(ctx context.Context) {
	start := time.Now()

	listing, err := r.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("symbol reconciliation failed", "error", err)
		}
		return
	}

	changes := r.state.replace(listing, time.Now())
	if len(changes) == 0 {
		r.logger.Debug("symbol reconciliation complete",
			"total_symbols", len(listing),
			"duration", time.Since(start),
		)
		return
	}

	for _, c := range changes {
		r.logger.Info("symbol changed",
			"symbol", c.Symbol,
			"event", c.EventType,
			"old_status", c.OldStatus,
			"new_status", c.NewStatus,
		)
	}
	r.logger.Info("symbol reconciliation found changes",
		"changes", len(changes),
		"duration", time.Since(start),
	)
}

func (r *registryImpl) fetch(ctx context.Context) ([]model.SymbolInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	resp, err := r.rest.GetExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}

	listing := make([]model.SymbolInfo, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.Symbol == "" {
			continue
		}
		listing = append(listing, toSymbolInfo(s))
	}
	return listing, nil
}

func toSymbolInfo(s api.ExchangeSymbol) model.SymbolInfo {
	return model.SymbolInfo{
		Symbol: NormalizeSymbol(s.Symbol),
		Base:   s.BaseAsset,
		Quote:  s.QuoteAsset,
		Status: s.Status,
	}
}
