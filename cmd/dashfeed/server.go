package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rickgao/dashfeed/internal/account"
	"github.com/rickgao/dashfeed/internal/market"
	"github.com/rickgao/dashfeed/internal/metrics"
	"github.com/rickgao/dashfeed/internal/router"
	"github.com/rickgao/dashfeed/internal/stream"
)

const controlTimeout = 5 * time.Second

// controller is the part of the router the HTTP surface drives.
type controller interface {
	Stats() router.Stats
	SetSymbol(ctx context.Context, symbol string) error
	Reconnect(ctx context.Context, kind stream.Kind) error
}

type server struct {
	streams     controller
	symbols     market.Registry // nil falls back to quote-asset splitting
	board       *board
	ledger      *account.Ledger // nil when the account stream is disabled
	metrics     *metrics.Collector
	metricsPath string
	logger      *slog.Logger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET "+s.metricsPath, s.metrics.Handler())
	mux.HandleFunc("GET /debug/board", s.handleBoard)
	mux.HandleFunc("GET /debug/balances", s.handleBalances)
	mux.HandleFunc("GET /debug/symbols", s.handleSymbols)
	mux.HandleFunc("POST /control/symbol", s.handleSymbol)
	mux.HandleFunc("POST /control/reconnect", s.handleReconnect)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.streams.Stats()

	connected := 0
	for _, st := range stats.Streams {
		if st.Connected {
			connected++
		}
	}

	health := struct {
		Status   string                        `json:"status"`
		Streams  map[string]router.StreamStats `json:"streams"`
		Balances *int                          `json:"balances,omitempty"`
	}{
		Status:  "healthy",
		Streams: stats.Streams,
	}
	switch {
	case connected == 0:
		health.Status = "unhealthy"
	case !stats.AllConnected():
		health.Status = "degraded"
	}
	if s.ledger != nil {
		n := s.ledger.Len()
		health.Balances = &n
	}

	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, health)
}

func (s *server) handleBoard(w http.ResponseWriter, r *http.Request) {
	quote := market.NormalizeSymbol(r.URL.Query().Get("quote"))

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	s.writeJSON(w, http.StatusOK, s.board.view(quote, limit))
}

func (s *server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "account stream disabled", http.StatusNotFound)
		return
	}
	balances := s.ledger.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(balances),
		"balances": balances,
	})
}

func (s *server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := market.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if !s.tradable(symbol) {
		http.Error(w, "symbol not tradable "+strconv.Quote(symbol), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
	defer cancel()

	if err := s.streams.SetSymbol(ctx, symbol); err != nil {
		if errors.Is(err, router.ErrPartialSwitch) {
			s.board.switchBook(symbol)
		}
		s.controlError(w, "set symbol", err)
		return
	}
	s.board.switchSymbol(symbol)

	s.logger.Info("symbol switched", "symbol", symbol)
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if s.symbols == nil {
		http.Error(w, "symbol registry disabled", http.StatusNotFound)
		return
	}
	symbols := s.symbols.TradingSymbols()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(symbols),
		"symbols": symbols,
	})
}

// tradable reports whether the streams can be switched to symbol.
func (s *server) tradable(symbol string) bool {
	if s.symbols != nil {
		return s.symbols.IsTrading(symbol)
	}
	_, _, ok := market.SplitSymbol(symbol)
	return ok
}

func (s *server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("stream")
	kind, ok := stream.ParseKind(name)
	if !ok {
		http.Error(w, "unknown stream "+strconv.Quote(name), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
	defer cancel()

	if err := s.streams.Reconnect(ctx, kind); err != nil {
		s.controlError(w, "reconnect", err)
		return
	}

	s.logger.Info("reconnect requested", "stream", kind)
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) controlError(w http.ResponseWriter, op string, err error) {
	s.logger.Warn("control failed", "op", op, "error", err)
	switch {
	case errors.Is(err, router.ErrNotReady), errors.Is(err, stream.ErrStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}
