// streamtest connects to Binance streams and prints lifecycle events and
// payloads to the console.
// Usage: go run ./cmd/streamtest --config configs/dashfeed.example.yaml
//
// The account stream is opened only when subscriptions.account is set,
// which needs BINANCE_API_KEY and BINANCE_SECRET_KEY in the environment
// of the example config.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/dashfeed/internal/account"
	"github.com/rickgao/dashfeed/internal/api"
	"github.com/rickgao/dashfeed/internal/auth"
	"github.com/rickgao/dashfeed/internal/config"
	"github.com/rickgao/dashfeed/internal/connection"
	"github.com/rickgao/dashfeed/internal/market"
	"github.com/rickgao/dashfeed/internal/model"
	"github.com/rickgao/dashfeed/internal/orderbook"
	"github.com/rickgao/dashfeed/internal/router"
	"github.com/rickgao/dashfeed/internal/stream"
	"github.com/rickgao/dashfeed/internal/ticker"
	"github.com/rickgao/dashfeed/internal/trade"
)

func main() {
	configPath := flag.String("config", "configs/dashfeed.example.yaml", "path to config file")
	envPath := flag.String("env", ".env", "dotenv file loaded before the config, ignored if missing")
	symbol := flag.String("symbol", "", "override subscriptions.symbol")
	kinds := flag.String("streams", "price_ticker,order_book,trade,user_account", "comma-separated streams to open")
	verbose := flag.Bool("verbose", false, "print full payload JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	if err := config.LoadEnvFile(*envPath); err != nil {
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *symbol != "" {
		cfg.Subscriptions.Symbol = market.NormalizeSymbol(*symbol)
		cfg.Subscriptions.TradesSymbol = cfg.Subscriptions.Symbol
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	enabled, err := parseKinds(*kinds)
	if err != nil {
		logger.Error("invalid -streams", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	deps := stream.Deps{
		Dialer: connection.NewDialer(cfg.ConnectionConfig(), logger),
		Config: cfg.StreamConfig(),
		Logger: logger,
	}

	var streams router.Streams
	if enabled[stream.KindPriceTicker] {
		streams.Tickers, _ = ticker.Subscribe(ctx, deps, cfg.API.WSURL)
	}
	if enabled[stream.KindOrderBook] {
		streams.OrderBook, _ = orderbook.Subscribe(ctx, deps, cfg.API.WSURL, orderbook.Params{
			Symbol:   cfg.Subscriptions.Symbol,
			Interval: cfg.Streams.OrderbookInterval,
			Depth:    5,
		})
	}
	if enabled[stream.KindTrade] {
		streams.Trades, _ = trade.Subscribe(ctx, deps, cfg.API.WSURL, cfg.Subscriptions.TradesSymbol)
	}
	if enabled[stream.KindUserAccount] && cfg.Subscriptions.Account {
		creds, err := auth.LoadCredentials(cfg.API.APIKey, cfg.API.SecretKey, cfg.API.SecretKeyPath)
		if err != nil {
			logger.Error("failed to load credentials", "error", err)
			os.Exit(1)
		}
		apiClient := api.NewClient(cfg.API.RestURL, creds, api.WithLogger(logger))
		streams.Account, _ = account.Subscribe(ctx, deps, apiClient, cfg.API.WSURL, account.NewLedger())
	}

	rtr := router.New(router.DefaultConfig(), logger)
	go func() {
		if err := rtr.Run(ctx, streams); err != nil && ctx.Err() == nil {
			logger.Error("router failed", "error", err)
		}
	}()

	// Stats printer
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				for name, st := range rtr.Stats().Streams {
					logger.Info("stats",
						"stream", name,
						"connected", st.Connected,
						"connects", st.Connects,
						"messages", st.Messages,
					)
				}
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	for u := range rtr.Updates() {
		printUpdate(os.Stdout, u, *verbose)
	}

	logger.Info("shutdown complete")
}

func parseKinds(list string) (map[stream.Kind]bool, error) {
	out := make(map[stream.Kind]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		k, ok := stream.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown stream %q", name)
		}
		out[k] = true
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no streams selected")
	}
	return out, nil
}

func printUpdate(w io.Writer, u router.Update, verbose bool) {
	tag := strings.ToUpper(u.Kind.String())

	if u.Type != stream.EventMessage {
		fmt.Fprintf(w, "[%s] %s\n", tag, strings.ToUpper(u.Type.String()))
		return
	}

	if verbose {
		var payload any
		switch {
		case u.Ticker != nil:
			payload = u.Ticker
		case u.OrderBook != nil:
			payload = u.OrderBook
		case u.Trade != nil:
			payload = u.Trade
		case u.Account != nil:
			payload = u.Account
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		fmt.Fprintf(w, "[%s] %s\n", tag, data)
		return
	}

	switch {
	case u.Ticker != nil:
		t := u.Ticker
		fmt.Fprintf(w, "[%s] %s/%s close=%s high=%s low=%s vol=%s\n",
			tag, t.Base, t.Quote, t.Close, t.High, t.Low, t.Volume)
	case u.OrderBook != nil:
		b := u.OrderBook
		bid, _ := b.BestBid()
		ask, _ := b.BestAsk()
		fmt.Fprintf(w, "[%s] %s bid=%s@%s ask=%s@%s levels=%d/%d upd=%d\n",
			tag, b.Symbol, bid.Quantity, bid.Price, ask.Quantity, ask.Price,
			b.BidDepth, b.AskDepth, b.LastUpdateID)
	case u.Trade != nil:
		t := u.Trade
		side := "BUY"
		if t.BuyerIsMaker {
			side = "SELL"
		}
		fmt.Fprintf(w, "[%s] %s id=%d %s %s@%s\n", tag, t.Symbol, t.TradeID, side, t.Quantity, t.Price)
	case u.Account != nil:
		printAccount(w, tag, u.Account)
	}
}

func printAccount(w io.Writer, tag string, ev *model.AccountEvent) {
	switch {
	case ev.Account != nil:
		for _, b := range ev.Account.Balances {
			fmt.Fprintf(w, "[%s] balance %s free=%s locked=%s\n", tag, b.Asset, b.Free, b.Locked)
		}
	case ev.Balance != nil:
		fmt.Fprintf(w, "[%s] delta %s %s\n", tag, ev.Balance.Asset, ev.Balance.Delta)
	case ev.Order != nil:
		o := ev.Order
		fmt.Fprintf(w, "[%s] order %s #%d %s %s %s qty=%s filled=%s\n",
			tag, o.Symbol, o.OrderID, o.Side, o.OrderType, o.Status, o.Quantity, o.CumulativeQty)
	}
}
