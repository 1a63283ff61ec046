// Package livecache keeps the latest display odds per round in Redis and
// fans updates out over Pub/Sub for the websocket hub.
package livecache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/parimutuel-engine/internal/engine/service"
)

const ttl = 10 * time.Minute

type Cache struct {
	R       *redis.Client
	Channel string
}

func New(r *redis.Client, channel string) *Cache { return &Cache{R: r, Channel: channel} }

func keyRound(roundID string) string { return "odds:round:" + roundID }

// Publish stores the snapshot and broadcasts it. The cache write is the
// authoritative part; a missed broadcast only delays a client by one update.
func (c *Cache) Publish(ctx context.Context, snap service.OddsSnapshot) error {
	b, _ := json.Marshal(snap)
	if err := c.R.Set(ctx, keyRound(snap.RoundID), b, ttl).Err(); err != nil {
		return err
	}
	return c.R.Publish(ctx, c.Channel, b).Err()
}

// GetOdds reads the cached snapshot. Returns false on a miss.
func (c *Cache) GetOdds(ctx context.Context, roundID string) (service.OddsSnapshot, bool, error) {
	b, err := c.R.Get(ctx, keyRound(roundID)).Bytes()
	if err == redis.Nil {
		return service.OddsSnapshot{}, false, nil
	}
	if err != nil {
		return service.OddsSnapshot{}, false, err
	}
	var snap service.OddsSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return service.OddsSnapshot{}, false, err
	}
	return snap, true, nil
}
