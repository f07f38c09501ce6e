package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rentals/backend/internal/domain/rental"
	"go.uber.org/zap"
)

// DefaultChangeChannel is the Pub/Sub channel read-model caches listen on
const DefaultChangeChannel = "rental:entity-changed"

// EntityRef identifies one changed entity in a change message
type EntityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// EntityChangeMessage is the JSON payload published for each change
type EntityChangeMessage struct {
	Entities  []EntityRef `json:"entities"`
	Timestamp int64       `json:"timestamp"`
}

// publisherClient is the part of *redis.Client the publisher needs
type publisherClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisEntityChangePublisher announces changed entities over Redis Pub/Sub
// so other instances can drop cached copies.
type RedisEntityChangePublisher struct {
	client  publisherClient
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

// RedisEntityChangePublisherOption configures the publisher
type RedisEntityChangePublisherOption func(*RedisEntityChangePublisher)

// WithChangeChannel sets the Pub/Sub channel
func WithChangeChannel(channel string) RedisEntityChangePublisherOption {
	return func(p *RedisEntityChangePublisher) {
		if channel != "" {
			p.channel = channel
		}
	}
}

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *zap.Logger) RedisEntityChangePublisherOption {
	return func(p *RedisEntityChangePublisher) {
		p.logger = logger
	}
}

// NewRedisEntityChangePublisher creates a publisher on a shared client.
// The caller keeps ownership of the client.
func NewRedisEntityChangePublisher(client *redis.Client, opts ...RedisEntityChangePublisherOption) *RedisEntityChangePublisher {
	return newRedisEntityChangePublisher(client, opts...)
}

func newRedisEntityChangePublisher(client publisherClient, opts ...RedisEntityChangePublisherOption) *RedisEntityChangePublisher {
	p := &RedisEntityChangePublisher{
		client:  client,
		channel: DefaultChangeChannel,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishEntityChange publishes one message listing every entity
func (p *RedisEntityChangePublisher) PublishEntityChange(ctx context.Context, entities []rental.ChangedEntity) error {
	if len(entities) == 0 {
		return nil
	}

	msg := NewEntityChangeMessage(entities, p.now())
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal change message: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change message on %s: %w", p.channel, err)
	}

	p.logger.Debug("Published entity change",
		zap.String("channel", p.channel),
		zap.Int("entities", len(entities)),
	)
	return nil
}

// NewEntityChangeMessage builds the wire message for entities at t
func NewEntityChangeMessage(entities []rental.ChangedEntity, t time.Time) EntityChangeMessage {
	refs := make([]EntityRef, 0, len(entities))
	for _, e := range entities {
		refs = append(refs, EntityRef{Type: e.Type, ID: e.ID.String()})
	}
	return EntityChangeMessage{Entities: refs, Timestamp: t.UnixMilli()}
}

// LoggingChangePublisher stands in for Redis when it is not configured
type LoggingChangePublisher struct {
	logger *zap.Logger
}

// NewLoggingChangePublisher creates a publisher that only logs
func NewLoggingChangePublisher(logger *zap.Logger) *LoggingChangePublisher {
	return &LoggingChangePublisher{logger: logger}
}

// PublishEntityChange logs the entities at debug level
func (p *LoggingChangePublisher) PublishEntityChange(ctx context.Context, entities []rental.ChangedEntity) error {
	if ce := p.logger.Check(zap.DebugLevel, "Entity change (no broker configured)"); ce != nil {
		refs := NewEntityChangeMessage(entities, time.Now()).Entities
		ce.Write(zap.Any("entities", refs))
	}
	return nil
}
