package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/oraclesim"
	"github.com/radieske/parimutuel-engine/internal/shared/config"
	"github.com/radieske/parimutuel-engine/internal/shared/kafka"
	"github.com/radieske/parimutuel-engine/internal/shared/logger"
	"github.com/radieske/parimutuel-engine/internal/shared/metrics"
	"github.com/radieske/parimutuel-engine/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRandomnessRequested, "oracle-simulator")
	defer reader.Close()

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessFulfilled)
	defer writer.Close()

	delay := 2 * time.Second
	if v := os.Getenv("ORACLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			delay = d
		}
	}

	oracle := oraclesim.New(log, reader, writer, delay)
	ctx := context.Background()
	go oracle.Run(ctx)

	metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })

	// Manual fulfillment surface for local testing: inject a specific seed
	// for a pending request instead of waiting for the consumer loop.
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oracle/fulfill", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RequestID string `json:"requestId"`
			RoundID   string `json:"roundId"`
			Seed      string `json:"seed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
			http.Error(w, "requestId required", http.StatusBadRequest)
			return
		}
		if req.Seed == "" {
			seed, serr := oraclesim.Seed()
			if serr != nil {
				http.Error(w, "seed generation", http.StatusInternalServerError)
				return
			}
			req.Seed = seed
		}
		out, _ := json.Marshal(events.RandomnessFulfilled{
			RequestID: req.RequestID,
			RoundID:   req.RoundID,
			Value:     req.Seed,
			Ts:        time.Now().UTC(),
		})
		if err := kafka.WriteJSON(r.Context(), writer, req.RequestID, out); err != nil {
			http.Error(w, "publish failed", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"requestId": req.RequestID, "seed": req.Seed})
	})

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("oracle-simulator listening", zap.String("addr", addr), zap.Duration("delay", delay))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
