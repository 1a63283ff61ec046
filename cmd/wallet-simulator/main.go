package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/shared/config"
	"github.com/radieske/parimutuel-engine/internal/shared/logger"
	"github.com/radieske/parimutuel-engine/internal/shared/metrics"
)

var transfers = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "wallet_transfers_total",
	Help: "Wallet transfers by kind and result",
}, []string{"kind", "result"})

func init() {
	prometheus.MustRegister(transfers)
}

type transferRequest struct {
	Account     string `json:"account"`
	AmountCents int64  `json:"amountCents"`
	Ref         string `json:"ref"`
}

// ledger is an in-memory balance book. Refs are remembered so a retried
// transfer applies once.
type ledger struct {
	mu       sync.Mutex
	balances map[string]int64
	applied  map[string]bool
}

func newLedger() *ledger {
	return &ledger{balances: make(map[string]int64), applied: make(map[string]bool)}
}

func (l *ledger) credit(account string, amount int64, ref string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ref != "" && l.applied["C:"+ref] {
		return l.balances[account]
	}
	l.balances[account] += amount
	if ref != "" {
		l.applied["C:"+ref] = true
	}
	return l.balances[account]
}

func (l *ledger) debit(account string, amount int64, ref string) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ref != "" && l.applied["D:"+ref] {
		return l.balances[account], true
	}
	if l.balances[account] < amount {
		return l.balances[account], false
	}
	l.balances[account] -= amount
	if ref != "" {
		l.applied["D:"+ref] = true
	}
	return l.balances[account], true
}

func (l *ledger) balance(account string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	book := newLedger()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /wallet/credit", func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" || req.AmountCents <= 0 {
			transfers.WithLabelValues("credit", "rejected").Inc()
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		balance := book.credit(req.Account, req.AmountCents, req.Ref)
		transfers.WithLabelValues("credit", "ok").Inc()
		writeJSON(w, map[string]int64{"balance_cents": balance})
	})

	mux.HandleFunc("POST /wallet/debit", func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" || req.AmountCents <= 0 {
			transfers.WithLabelValues("debit", "rejected").Inc()
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		balance, ok := book.debit(req.Account, req.AmountCents, req.Ref)
		if !ok {
			transfers.WithLabelValues("debit", "insufficient").Inc()
			http.Error(w, "insufficient balance", http.StatusConflict)
			return
		}
		transfers.WithLabelValues("debit", "ok").Inc()
		writeJSON(w, map[string]int64{"balance_cents": balance})
	})

	mux.HandleFunc("GET /wallet/balance/{account}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int64{"balance_cents": book.balance(r.PathValue("account"))})
	})

	metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("wallet-simulator listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
