// Package redis publishes progression signals on a Redis pub/sub channel
// for consumers outside this process.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/ecoprog/internal/core/effects"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "ecoprog.signals"

// Config holds the connection settings for the publisher.
type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// publisher is the slice of the go-redis client the adapter needs.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Message is the envelope published for each signal.
type Message struct {
	Type      string          `json:"type"`
	SchoolID  string          `json:"school_id"`
	DedupeKey string          `json:"dedupe_key"`
	Payload   json.RawMessage `json:"payload"`
}

// SignalPublisher forwards signals to a Redis channel.
type SignalPublisher struct {
	client  publisher
	closer  func() error
	channel string
	logger  *zap.Logger
}

// NewSignalPublisher connects a publisher using cfg.
// The connection is established lazily on first publish.
func NewSignalPublisher(cfg Config, logger *zap.Logger) *SignalPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     4,
		MinIdleConns: 1,
	})
	p := newSignalPublisher(client, cfg.Channel, logger)
	p.closer = client.Close
	return p
}

func newSignalPublisher(client publisher, channel string, logger *zap.Logger) *SignalPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalPublisher{
		client:  client,
		closer:  func() error { return nil },
		channel: channel,
		logger:  logger.Named("redis"),
	}
}

// Name identifies the subscriber.
func (p *SignalPublisher) Name() string { return "redis" }

// HandleSignal publishes the signal envelope. Encoding failures are permanent;
// connection failures are retried by the dispatcher.
func (p *SignalPublisher) HandleSignal(ctx context.Context, signal effects.Signal) error {
	data, err := BuildMessage(signal)
	if err != nil {
		return backoff.Permanent(err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}

	p.logger.Debug("signal published",
		zap.String("channel", p.channel),
		zap.String("dedupe_key", signal.DedupeKey()),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Close releases the client connection pool.
func (p *SignalPublisher) Close() error {
	return p.closer()
}

// BuildMessage encodes the published envelope for a signal.
func BuildMessage(signal effects.Signal) ([]byte, error) {
	payload, err := effects.Encode(signal)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(Message{
		Type:      signal.EffectType(),
		SchoolID:  signal.School(),
		DedupeKey: signal.DedupeKey(),
		Payload:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

var _ secondary.SignalSubscriber = (*SignalPublisher)(nil)
