package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
	"github.com/radieske/parimutuel-engine/internal/engine/odds"
	"github.com/radieske/parimutuel-engine/internal/engine/producer"
	"github.com/radieske/parimutuel-engine/internal/engine/service"
	"github.com/radieske/parimutuel-engine/internal/engine/store"
	"github.com/radieske/parimutuel-engine/internal/engine/wallet"
	"github.com/radieske/parimutuel-engine/internal/shared/config"
	"github.com/radieske/parimutuel-engine/internal/shared/db"
	"github.com/radieske/parimutuel-engine/internal/shared/kafka"
	"github.com/radieske/parimutuel-engine/internal/shared/logger"
	"github.com/radieske/parimutuel-engine/internal/shared/metrics"
	ev "github.com/radieske/parimutuel-engine/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()
	if err := store.Migrate(pg); err != nil {
		log.Fatal("pg migrate", zap.Error(err))
	}

	// Consumes fulfillments; publishes settlement results and a DLQ for
	// fulfillments that keep failing.
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRandomnessFulfilled, "settlement-worker")
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicRandomnessDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessDLQ)
		defer dlqWriter.Close()
	}

	publ := &producer.KafkaPublisher{
		RandomnessRequested: kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessRequested),
		BetPlaced:           kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced),
		BetCancelled:        kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetCancelled),
		RoundSettled:        kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled),
		WinningsClaimed:     kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWinningsClaimed),
		RoundSwept:          kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSwept),
	}
	defer publ.RoundSettled.Close()

	calc, err := odds.NewCalculator(cfg.Engine.WinnerShareBps, cfg.Engine.VirtualLiquidityCents, cfg.Engine.ParlayBonusSchedule)
	if err != nil {
		log.Fatal("odds calculator", zap.Error(err))
	}

	// The worker settles only; live odds stay with the API service.
	eng := service.New(log, store.NewPostgres(pg), calc, wallet.New(cfg.WalletURL), publ, nil, cfg.Engine)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("settlement-worker started", zap.String("consume", cfg.TopicRandomnessFulfilled))

	ctx := context.Background()
	for {
		key, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var fulfilled ev.RandomnessFulfilled
		if jerr := json.Unmarshal(value, &fulfilled); jerr != nil {
			log.Error("unmarshal randomness_fulfilled", zap.Error(jerr))
			continue
		}

		if err := settleOne(ctx, eng, fulfilled); err != nil {
			log.Error("settle", zap.String("requestId", fulfilled.RequestID), zap.Error(err))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, string(key), value)
			}
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// settleOne resolves one fulfillment. An already-consumed request means a
// redelivered message, not a failure.
func settleOne(ctx context.Context, eng *service.Engine, fulfilled ev.RandomnessFulfilled) error {
	_, err := eng.FulfillRandomness(ctx, fulfilled.RequestID, fulfilled.Value)
	if errors.Is(err, domain.ErrRequestConsumed) || errors.Is(err, domain.ErrAlreadySettled) {
		return nil
	}
	return err
}
