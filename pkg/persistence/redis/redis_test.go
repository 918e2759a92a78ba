package redis

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/logger"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/persistence"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestRedisAddress returns REDIS_TEST_ADDRESS or localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test when no Redis is reachable. Every test gets its
// own key prefix so runs never see each other's records.
func requireRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15,
		KeyPrefix: fmt.Sprintf("test-%s:", uuid.New().String()),
	}

	rp, err := NewRedisPersistence(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}
	return rp
}

func newTestRecord(id string, receivedAt int64) *persistence.RequestRecord {
	return &persistence.RequestRecord{
		ID:         id,
		Method:     types.MethodSignTransaction,
		PublicKey:  "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
		Status:     persistence.StatusReceived,
		ReceivedAt: receivedAt,
	}
}

func TestRedisPersistence_SaveLoadListDelete(t *testing.T) {
	rp := requireRedis(t)
	defer func() { _ = rp.Close() }()

	now := time.Now().UnixMilli()
	require.NoError(t, rp.SaveRequest(newTestRecord("second", now+1)))
	require.NoError(t, rp.SaveRequest(newTestRecord("first", now)))

	loaded, err := rp.LoadRequest("first")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, now, loaded.ReceivedAt)

	records, err := rp.ListRequests()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].ID)

	require.NoError(t, rp.DeleteRequest("first"))
	missing, err := rp.LoadRequest("first")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRedisPersistence_HostState(t *testing.T) {
	rp := requireRedis(t)
	defer func() { _ = rp.Close() }()

	state, err := rp.LoadHostState()
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, rp.SaveHostState(&persistence.HostState{PublicKey: "pk", HostStartTime: 3}))
	state, err = rp.LoadHostState()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "pk", state.PublicKey)
}

func TestRedisPersistence_Closed(t *testing.T) {
	rp := requireRedis(t)
	require.NoError(t, rp.HealthCheck())
	require.NoError(t, rp.Close())
	require.NoError(t, rp.Close())
	assert.Error(t, rp.HealthCheck())
	assert.Error(t, rp.SaveRequest(newTestRecord("x", 1)))
}

func TestNewRedisPersistence_InvalidConfig(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisPersistence(nil, testLogger)
	assert.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, testLogger)
	assert.Error(t, err)
}
