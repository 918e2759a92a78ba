package redisChannel

import (
	"context"
	"fmt"
	"time"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds the connection settings shared by publisher and subscriber
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// NewClient opens a client and verifies connectivity
func NewClient(ctx context.Context, cfg *RedisConfig) (*redis.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}
	return client, nil
}

// Publisher sends messages on one pub/sub channel
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

var _ channel.IOutbound = (*Publisher)(nil)

func NewPublisher(client *redis.Client, channelName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:  client,
		channel: channelName,
		logger:  logger,
	}
}

// Send publishes message. Pub/sub is fire and forget; zero receivers is not an error.
func (p *Publisher) Send(ctx context.Context, message []byte) error {
	receivers, err := p.client.Publish(ctx, p.channel, message).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}
	if receivers == 0 {
		p.logger.Sugar().Debugw("Published with no subscribers", "channel", p.channel)
	}
	return nil
}

// Subscriber delivers messages from one pub/sub channel to a handler
type Subscriber struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewSubscriber(client *redis.Client, channelName string, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		client:  client,
		channel: channelName,
		logger:  logger,
	}
}

// Subscribe confirms the subscription and returns a run function that
// delivers messages until ctx is done. Confirming first means a publish made
// after Subscribe returns is never missed.
func (s *Subscriber) Subscribe(ctx context.Context) (func(ctx context.Context, handler channel.Handler) error, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	run := func(ctx context.Context, handler channel.Handler) error {
		defer func() { _ = pubsub.Close() }()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-messages:
				if !ok {
					return fmt.Errorf("subscription to %s closed", s.channel)
				}
				if err := handler(ctx, []byte(msg.Payload)); err != nil {
					s.logger.Sugar().Warnw("Handler rejected message", "channel", s.channel, "error", err)
				}
			}
		}
	}
	return run, nil
}

// Run subscribes and delivers messages until ctx is done
func (s *Subscriber) Run(ctx context.Context, handler channel.Handler) error {
	run, err := s.Subscribe(ctx)
	if err != nil {
		return err
	}
	s.logger.Sugar().Infow("Subscribed", "channel", s.channel)
	return run(ctx, handler)
}
