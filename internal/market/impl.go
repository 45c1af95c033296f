package market

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/dashfeed/internal/api"
	"github.com/rickgao/dashfeed/internal/model"
)

// Config holds Symbol Registry configuration.
type Config struct {
	ReconcileInterval time.Duration
	Timeout           time.Duration // Per-request timeout
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval: time.Hour,
		Timeout:           30 * time.Second,
	}
}

// ListingSource fetches the exchange's symbol listing.
type ListingSource interface {
	GetExchangeInfo(ctx context.Context) (*api.ExchangeInfoResponse, error)
}

// registryImpl implements the Registry interface.
type registryImpl struct {
	cfg    Config
	rest   ListingSource
	logger *slog.Logger

	state *registryState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a new Symbol Registry.
func NewRegistry(cfg Config, rest ListingSource, logger *slog.Logger) Registry {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = def.ReconcileInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	return &registryImpl{
		cfg:    cfg,
		rest:   rest,
		logger: logger,
		state:  newState(),
	}
}

// Start performs the initial sync and begins background reconciliation.
func (r *registryImpl) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	// Initial sync (blocking).
	if err := r.initialSync(r.ctx); err != nil {
		r.cancel()
		return err
	}

	// Start background reconciliation.
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.reconciliationLoop(r.ctx)
	}()

	return nil
}

// Stop gracefully shuts down.
func (r *registryImpl) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("symbol registry stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup returns a symbol's listing.
func (r *registryImpl) Lookup(symbol string) (model.SymbolInfo, bool) {
	return r.state.get(NormalizeSymbol(symbol))
}

// IsTrading reports whether a symbol is open for trading.
func (r *registryImpl) IsTrading(symbol string) bool {
	return r.state.isTrading(NormalizeSymbol(symbol))
}

// TradingSymbols returns every symbol open for trading.
func (r *registryImpl) TradingSymbols() []string {
	return r.state.trading()
}
