package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/engine/service"
)

// StartRedisSubscriber relays odds snapshots from the Redis Pub/Sub channel
// to every subscribed websocket client.
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var snap service.OddsSnapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					log.Warn("odds broadcast unmarshal", zap.Error(err))
					continue
				}
				hub.Broadcast(snap)
			}
		}
	}()
}
