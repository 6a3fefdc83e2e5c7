package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// DefaultChannel is the Redis channel ordering events travel on
const DefaultChannel = "ordering.events"

// RedisEventBus publishes events on a Redis pub/sub channel and dispatches
// received events to local handlers. It lets the render worker run in a
// separate process.
type RedisEventBus struct {
	client     *redis.Client
	channel    string
	serializer *EventSerializer
	local      *InMemoryEventBus
	logger     *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisEventBus creates a bus on channel. Handlers run synchronously in
// the receive loop unless opts ask for async dispatch.
func NewRedisEventBus(client *redis.Client, channel string, serializer *EventSerializer, logger *zap.Logger, opts ...BusOption) *RedisEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisEventBus{
		client:     client,
		channel:    channel,
		serializer: serializer,
		local:      NewInMemoryEventBus(logger, opts...),
		logger:     logger,
	}
}

// Publish serializes and sends each event
func (b *RedisEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, event := range events {
		data, err := b.serializer.Serialize(event)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish %s: %w", event.EventType(), err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a local handler
func (b *RedisEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	b.local.Subscribe(handler, eventTypes...)
}

// Unsubscribe removes a local handler
func (b *RedisEventBus) Unsubscribe(handler shared.EventHandler) {
	b.local.Unsubscribe(handler)
}

// Start subscribes to the channel and starts the receive loop
func (b *RedisEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub != nil {
		return nil
	}

	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.pubsub = pubsub
	b.done = make(chan struct{})
	if err := b.local.Start(ctx); err != nil {
		return err
	}

	go b.receive(context.WithoutCancel(ctx), pubsub.Channel(), b.done)
	b.logger.Info("redis event bus started", zap.String("channel", b.channel))
	return nil
}

func (b *RedisEventBus) receive(ctx context.Context, messages <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range messages {
		event, err := b.serializer.Deserialize([]byte(msg.Payload))
		if err != nil {
			b.logger.Warn("dropping undecodable event", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		_ = b.local.Publish(ctx, event)
	}
}

// Stop closes the subscription and waits for the receive loop
func (b *RedisEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.pubsub, b.done = nil, nil
	b.mu.Unlock()
	if pubsub == nil {
		return nil
	}

	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription: %w", err)
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.local.Stop(ctx)
}

var _ shared.EventBus = (*RedisEventBus)(nil)
