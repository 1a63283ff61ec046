package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	ehttp "github.com/radieske/parimutuel-engine/internal/engine/http"
	"github.com/radieske/parimutuel-engine/internal/engine/livecache"
	"github.com/radieske/parimutuel-engine/internal/engine/odds"
	"github.com/radieske/parimutuel-engine/internal/engine/producer"
	"github.com/radieske/parimutuel-engine/internal/engine/service"
	"github.com/radieske/parimutuel-engine/internal/engine/store"
	"github.com/radieske/parimutuel-engine/internal/engine/wallet"
	"github.com/radieske/parimutuel-engine/internal/engine/ws"
	"github.com/radieske/parimutuel-engine/internal/shared/cache"
	"github.com/radieske/parimutuel-engine/internal/shared/config"
	"github.com/radieske/parimutuel-engine/internal/shared/db"
	"github.com/radieske/parimutuel-engine/internal/shared/kafka"
	"github.com/radieske/parimutuel-engine/internal/shared/logger"
	"github.com/radieske/parimutuel-engine/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()
	if err := store.Migrate(pg); err != nil {
		log.Fatal("pg migrate", zap.Error(err))
	}

	// Redis
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}

	// Kafka writers, one per emitted topic
	publ := &producer.KafkaPublisher{
		RandomnessRequested: kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessRequested),
		BetPlaced:           kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced),
		BetCancelled:        kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetCancelled),
		RoundSettled:        kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled),
		WinningsClaimed:     kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWinningsClaimed),
		RoundSwept:          kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSwept),
	}
	defer func() {
		publ.RandomnessRequested.Close()
		publ.BetPlaced.Close()
		publ.BetCancelled.Close()
		publ.RoundSettled.Close()
		publ.WinningsClaimed.Close()
		publ.RoundSwept.Close()
	}()

	calc, err := odds.NewCalculator(cfg.Engine.WinnerShareBps, cfg.Engine.VirtualLiquidityCents, cfg.Engine.ParlayBonusSchedule)
	if err != nil {
		log.Fatal("odds calculator", zap.Error(err))
	}

	wcli := wallet.New(cfg.WalletURL)
	live := livecache.New(rdb, cfg.RedisPubSubChannel)
	eng := service.New(log, store.NewPostgres(pg), calc, wcli, publ, live, cfg.Engine)

	// Public API plus the websocket hub fed by Redis Pub/Sub
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(context.Background(), log, rdb, cfg.RedisPubSubChannel, hub)

	api := ehttp.NewServer(log, eng, cfg.AdminToken)
	mux := http.NewServeMux()
	mux.Handle("/", api.Router())
	mux.HandleFunc("/ws", hub.HandleWS)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("engine-service listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
