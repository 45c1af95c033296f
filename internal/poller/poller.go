package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/dashfeed/internal/account"
	"github.com/rickgao/dashfeed/internal/api"
	"github.com/rickgao/dashfeed/internal/metrics"
	"github.com/rickgao/dashfeed/internal/model"
)

// AccountFetcher fetches the account snapshot over REST.
type AccountFetcher interface {
	GetAccount(ctx context.Context) (*api.AccountResponse, error)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 5m)
	Timeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Poller periodically refreshes the balance ledger via REST API.
type Poller struct {
	cfg     Config
	client  AccountFetcher
	ledger  *account.Ledger
	metrics *metrics.Collector
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, client AccountFetcher, ledger *account.Ledger, m *metrics.Collector, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = d.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	return &Poller{
		cfg:     cfg,
		client:  client,
		ledger:  ledger,
		metrics: m,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("balance poller started", "interval", p.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("balance poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	if err := p.Refresh(p.ctx); err != nil && p.ctx.Err() == nil {
		p.logger.Warn("balance refresh failed", "error", err)
	}
}

// Refresh fetches the account once and replaces the ledger snapshot.
// Balances that fail validation are skipped and logged.
func (p *Poller) Refresh(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.client.GetAccount(ctx)
	if err != nil {
		p.metrics.RecordBalanceRefresh(false)
		return fmt.Errorf("get account: %w", err)
	}

	balances := make([]model.Balance, 0, len(resp.Balances))
	skipped := 0
	for _, b := range resp.Balances {
		bal, err := account.BalanceFromREST(b)
		if err != nil {
			p.logger.Warn("skipping balance", "asset", b.Asset, "error", err)
			skipped++
			continue
		}
		balances = append(balances, bal)
	}

	at := time.UnixMilli(resp.UpdateTime)
	if resp.UpdateTime == 0 {
		at = start
	}
	p.ledger.Replace(balances, at)
	p.metrics.RecordBalanceRefresh(true)

	p.logger.Debug("balances refreshed",
		"assets", len(balances),
		"skipped", skipped,
		"duration", time.Since(start),
	)

	return nil
}
