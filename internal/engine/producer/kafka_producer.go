package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/parimutuel-engine/pkg/contracts/events"
)

// KafkaPublisher emits engine events, one writer per topic.
type KafkaPublisher struct {
	RandomnessRequested *kafka.Writer
	BetPlaced           *kafka.Writer
	BetCancelled        *kafka.Writer
	RoundSettled        *kafka.Writer
	WinningsClaimed     *kafka.Writer
	RoundSwept          *kafka.Writer
}

func write(ctx context.Context, w *kafka.Writer, key string, v any) error {
	b, _ := json.Marshal(v)
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
}

func (p *KafkaPublisher) PublishRandomnessRequested(ctx context.Context, e events.RandomnessRequested) error {
	return write(ctx, p.RandomnessRequested, e.RoundID, e)
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	return write(ctx, p.BetPlaced, e.RoundID, e)
}

func (p *KafkaPublisher) PublishBetCancelled(ctx context.Context, e events.BetCancelled) error {
	return write(ctx, p.BetCancelled, e.RoundID, e)
}

func (p *KafkaPublisher) PublishRoundSettled(ctx context.Context, e events.RoundSettled) error {
	return write(ctx, p.RoundSettled, e.RoundID, e)
}

func (p *KafkaPublisher) PublishWinningsClaimed(ctx context.Context, e events.WinningsClaimed) error {
	return write(ctx, p.WinningsClaimed, e.RoundID, e)
}

func (p *KafkaPublisher) PublishRoundSwept(ctx context.Context, e events.RoundSwept) error {
	return write(ctx, p.RoundSwept, e.RoundID, e)
}
