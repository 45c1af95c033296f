// dashfeed streams Binance market and account data into a live board
// served over HTTP, with health, metrics and control endpoints.
// Usage: go run ./cmd/dashfeed --config configs/dashfeed.example.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/dashfeed/internal/account"
	"github.com/rickgao/dashfeed/internal/api"
	"github.com/rickgao/dashfeed/internal/auth"
	"github.com/rickgao/dashfeed/internal/config"
	"github.com/rickgao/dashfeed/internal/connection"
	"github.com/rickgao/dashfeed/internal/market"
	"github.com/rickgao/dashfeed/internal/metrics"
	"github.com/rickgao/dashfeed/internal/orderbook"
	"github.com/rickgao/dashfeed/internal/poller"
	"github.com/rickgao/dashfeed/internal/router"
	"github.com/rickgao/dashfeed/internal/stream"
	"github.com/rickgao/dashfeed/internal/ticker"
	"github.com/rickgao/dashfeed/internal/trade"
	"github.com/rickgao/dashfeed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/dashfeed.example.yaml", "path to config file")
	envPath := flag.String("env", ".env", "dotenv file loaded before the config, ignored if missing")
	flag.Parse()

	// Load configuration
	if err := config.LoadEnvFile(*envPath); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)

	logger.Info("starting dashfeed",
		version.Attr(),
		"config", *configPath,
		"symbol", cfg.Subscriptions.Symbol,
		"account", cfg.Subscriptions.Account,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("dashfeed failed", "error", err)
		os.Exit(1)
	}

	logger.Info("dashfeed stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	m := metrics.New()

	var creds *auth.Credentials
	if cfg.Subscriptions.Account {
		var err error
		creds, err = auth.LoadCredentials(cfg.API.APIKey, cfg.API.SecretKey, cfg.API.SecretKeyPath)
		if err != nil {
			return fmt.Errorf("load credentials: %w", err)
		}
	}

	apiClient := api.NewClient(
		cfg.API.RestURL,
		creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	// Check REST connectivity before opening streams
	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.API.Timeout)
	err := apiClient.Ping(pingCtx)
	pingCancel()
	if err != nil {
		return fmt.Errorf("check exchange: %w", err)
	}

	// Signed account calls depend on the local clock
	if creds != nil {
		clockCtx, clockCancel := context.WithTimeout(ctx, cfg.API.Timeout)
		if _, err := checkClock(clockCtx, apiClient, creds.RecvWindow, logger); err != nil {
			logger.Warn("clock check failed", "error", err)
		}
		clockCancel()
	}

	g, gctx := errgroup.WithContext(ctx)

	// Load the symbol listing and keep it current
	registry := market.NewRegistry(market.Config{
		ReconcileInterval: cfg.Symbols.RefreshInterval,
		Timeout:           cfg.API.Timeout,
	}, apiClient, logger)
	if err := registry.Start(gctx); err != nil {
		return fmt.Errorf("start symbol registry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		registry.Stop(shutdownCtx)
	}()

	for _, symbol := range []string{cfg.Subscriptions.Symbol, cfg.Subscriptions.TradesSymbol} {
		if !registry.IsTrading(symbol) {
			logger.Warn("configured symbol is not trading", "symbol", symbol)
		}
	}

	deps := stream.Deps{
		Dialer:  connection.NewDialer(cfg.ConnectionConfig(), logger),
		Config:  cfg.StreamConfig(),
		Logger:  logger,
		Metrics: m,
	}

	var streams router.Streams
	streams.Tickers, _ = ticker.Subscribe(gctx, deps, cfg.API.WSURL)
	streams.OrderBook, _ = orderbook.Subscribe(gctx, deps, cfg.API.WSURL, orderbook.Params{
		Symbol:   cfg.Subscriptions.Symbol,
		Interval: cfg.Streams.OrderbookInterval,
		Depth:    cfg.Streams.OrderbookDepth,
	})
	streams.Trades, _ = trade.Subscribe(gctx, deps, cfg.API.WSURL, cfg.Subscriptions.TradesSymbol)

	var ledger *account.Ledger
	if cfg.Subscriptions.Account {
		ledger = account.NewLedger()
		streams.Account, _ = account.Subscribe(gctx, deps, apiClient, cfg.API.WSURL, ledger)

		balancePoller := poller.New(poller.Config{
			Interval: cfg.Poller.Interval,
			Timeout:  cfg.Poller.Timeout,
		}, apiClient, ledger, m, logger)
		if err := balancePoller.Start(gctx); err != nil {
			return fmt.Errorf("start balance poller: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			balancePoller.Stop(shutdownCtx)
		}()
	}

	rt := router.New(router.DefaultConfig(), logger)
	b := newBoard(cfg.Subscriptions.Symbol, cfg.Subscriptions.TradesSymbol, defaultHistory)

	g.Go(func() error {
		return rt.Run(gctx, streams)
	})
	g.Go(func() error {
		for u := range rt.Updates() {
			b.apply(u)
		}
		return nil
	})

	srv := &server{
		streams:     rt,
		symbols:     registry,
		board:       b,
		ledger:      ledger,
		metrics:     m,
		metricsPath: cfg.Metrics.Path,
		logger:      logger,
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("starting http server",
			"port", cfg.Metrics.Port,
			"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
		)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newLogger builds the process logger from the log section.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
