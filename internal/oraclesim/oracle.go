// Package oraclesim is a stand-in randomness oracle for local development.
// It consumes randomness requests and fulfills them with a random seed after
// a short delay, the way a real oracle callback would arrive.
package oraclesim

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/shared/kafka"
	"github.com/radieske/parimutuel-engine/pkg/contracts/events"
)

var (
	requestsServed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_requests_fulfilled_total",
		Help: "Randomness requests fulfilled",
	})
	requestsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_requests_failed_total",
		Help: "Randomness fulfillments that could not be published",
	})
)

func init() {
	prometheus.MustRegister(requestsServed, requestsFailed)
}

type Oracle struct {
	log    *zap.Logger
	reader *kafkago.Reader
	writer *kafkago.Writer
	delay  time.Duration
}

func New(log *zap.Logger, reader *kafkago.Reader, writer *kafkago.Writer, delay time.Duration) *Oracle {
	return &Oracle{log: log, reader: reader, writer: writer, delay: delay}
}

// Seed returns a fresh 32-byte hex seed.
func Seed() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// Run consumes requests until the context ends.
func (o *Oracle) Run(ctx context.Context) {
	for {
		_, value, err := kafka.ReadNext(ctx, o.reader)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var req events.RandomnessRequested
		if err := json.Unmarshal(value, &req); err != nil {
			o.log.Error("unmarshal randomness_requested", zap.Error(err))
			continue
		}
		o.fulfill(ctx, req)
	}
}

func (o *Oracle) fulfill(ctx context.Context, req events.RandomnessRequested) {
	if o.delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(o.delay):
		}
	}

	seed, err := Seed()
	if err != nil {
		o.log.Error("seed generation", zap.Error(err))
		requestsFailed.Inc()
		return
	}

	out, _ := json.Marshal(events.RandomnessFulfilled{
		RequestID: req.RequestID,
		RoundID:   req.RoundID,
		Value:     seed,
		Ts:        time.Now().UTC(),
	})
	if err := kafka.WriteJSON(ctx, o.writer, req.RequestID, out); err != nil {
		o.log.Error("publish randomness_fulfilled", zap.String("requestId", req.RequestID), zap.Error(err))
		requestsFailed.Inc()
		return
	}

	requestsServed.Inc()
	o.log.Info("randomness fulfilled",
		zap.String("requestId", req.RequestID),
		zap.String("roundId", req.RoundID),
	)
}
