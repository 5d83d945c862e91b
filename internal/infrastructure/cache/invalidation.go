package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Constants for invalidator configuration
const (
	defaultCloseTimeout = 5 * time.Second
)

// RedisSizeCacheInvalidator propagates reference master changes to the
// L1 tiers of other instances over Redis Pub/Sub. Without it a stale
// size can be served until the L1 TTL elapses.
type RedisSizeCacheInvalidator struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisSizeCacheInvalidatorOption is a functional option for configuring the invalidator
type RedisSizeCacheInvalidatorOption func(*RedisSizeCacheInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) RedisSizeCacheInvalidatorOption {
	return func(i *RedisSizeCacheInvalidator) {
		i.channel = channel
	}
}

// WithInvalidatorLogger sets the logger for the invalidator
func WithInvalidatorLogger(logger *zap.Logger) RedisSizeCacheInvalidatorOption {
	return func(i *RedisSizeCacheInvalidator) {
		i.logger = logger
	}
}

// NewRedisSizeCacheInvalidator creates a new Redis Pub/Sub cache invalidator
func NewRedisSizeCacheInvalidator(cfg RedisConfig, opts ...RedisSizeCacheInvalidatorOption) (*RedisSizeCacheInvalidator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	invalidator := &RedisSizeCacheInvalidator{
		client:     client,
		ownsClient: true,
		channel:    DefaultSizeCacheConfig().PubSubChannel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(invalidator)
	}

	return invalidator, nil
}

// NewRedisSizeCacheInvalidatorWithClient creates an invalidator with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisSizeCacheInvalidatorWithClient(client *redis.Client, opts ...RedisSizeCacheInvalidatorOption) *RedisSizeCacheInvalidator {
	invalidator := &RedisSizeCacheInvalidator{
		client:     client,
		ownsClient: false,
		channel:    DefaultSizeCacheConfig().PubSubChannel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(invalidator)
	}

	return invalidator
}

// Publish sends an invalidation notification to all subscribers
func (i *RedisSizeCacheInvalidator) Publish(ctx context.Context, msg InvalidationMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		i.logger.Error("Failed to marshal invalidation message",
			zap.String("action", msg.Action),
			zap.Error(err))
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("Failed to publish invalidation message",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	i.logger.Debug("Published invalidation message",
		zap.String("action", msg.Action),
		zap.String("brand", msg.Brand),
		zap.String("device", msg.DeviceName))

	return nil
}

// PublishEntryInvalidation publishes an invalidation for one device
func (i *RedisSizeCacheInvalidator) PublishEntryInvalidation(ctx context.Context, brand, deviceName string) error {
	return i.Publish(ctx, InvalidationMessage{
		Action:     InvalidateEntry,
		Brand:      brand,
		DeviceName: deviceName,
	})
}

// PublishInvalidateAll publishes an invalidate-all notification
func (i *RedisSizeCacheInvalidator) PublishInvalidateAll(ctx context.Context) error {
	return i.Publish(ctx, InvalidationMessage{
		Action: InvalidateAll,
	})
}

// Subscribe starts listening for invalidation notifications.
// The callback is invoked for each received message. This method
// blocks and should be run in its own goroutine.
func (i *RedisSizeCacheInvalidator) Subscribe(ctx context.Context, callback func(msg InvalidationMessage)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	i.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	i.mu.Lock()
	i.cancelFn = cancel
	i.mu.Unlock()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(subCtx); err != nil {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	i.logger.Info("Subscribed to size cache invalidation channel",
		zap.String("channel", i.channel))

	ch := pubsub.Channel()

	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("Size cache invalidation subscription stopped")
			i.mu.Lock()
			i.isRunning = false
			i.mu.Unlock()
			i.markDone()
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Size cache invalidation channel closed")
				i.mu.Lock()
				i.isRunning = false
				i.mu.Unlock()
				i.markDone()
				return nil
			}

			var invalidation InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &invalidation); err != nil {
				i.logger.Error("Failed to unmarshal invalidation message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			// Run the callback off the receive loop so a slow
			// invalidation cannot back up the subscription.
			go func(m InvalidationMessage) {
				defer func() {
					if r := recover(); r != nil {
						i.logger.Error("Panic in invalidation callback",
							zap.Any("panic", r))
					}
				}()
				callback(m)
			}(invalidation)
		}
	}
}

// markDone safely marks the invalidator as done
func (i *RedisSizeCacheInvalidator) markDone() {
	i.doneOnce.Do(func() {
		close(i.doneCh)
	})
}

// Close releases any resources held by the invalidator
func (i *RedisSizeCacheInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-i.doneCh:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("Timeout waiting for subscription to stop")
		}
	}

	if i.ownsClient {
		return i.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (i *RedisSizeCacheInvalidator) GetClient() *redis.Client {
	return i.client
}
