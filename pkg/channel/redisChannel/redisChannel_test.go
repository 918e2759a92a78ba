package redisChannel

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewClient(ctx, &RedisConfig{Address: getTestRedisAddress(), DB: 15})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer func() { _ = client.Close() }()

	name := "test-" + uuid.New().String() + ":outbound"
	sub := NewSubscriber(client, name, zap.NewNop())
	run, err := sub.Subscribe(ctx)
	require.NoError(t, err)

	received := make(chan []byte, 1)
	go func() {
		_ = run(ctx, func(ctx context.Context, msg []byte) error {
			received <- msg
			return nil
		})
	}()

	pub := NewPublisher(client, name, zap.NewNop())
	require.NoError(t, pub.Send(ctx, []byte(`{"method":"connect"}`)))

	select {
	case msg := <-received:
		assert.JSONEq(t, `{"method":"connect"}`, string(msg))
	case <-ctx.Done():
		t.Fatal("timed out waiting for published message")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewClient(ctx, &RedisConfig{Address: getTestRedisAddress(), DB: 15})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer func() { _ = client.Close() }()

	pub := NewPublisher(client, "test-"+uuid.New().String(), zap.NewNop())
	assert.NoError(t, pub.Send(ctx, []byte(`{}`)))
}

func TestNewClientRequiresConfig(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	assert.Error(t, err)
}
