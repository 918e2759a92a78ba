package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/persistence"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRecord(id string, receivedAt int64) *persistence.RequestRecord {
	return &persistence.RequestRecord{
		ID:         id,
		Method:     types.MethodSignTransaction,
		PublicKey:  "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
		Status:     persistence.StatusReceived,
		ReceivedAt: receivedAt,
	}
}

func TestMemoryPersistence_SaveAndLoadRequest(t *testing.T) {
	mp := NewMemoryPersistence(zap.NewNop())
	defer func() { _ = mp.Close() }()

	record := newTestRecord("req-1", 100)
	require.NoError(t, mp.SaveRequest(record))

	loaded, err := mp.LoadRequest("req-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, record, loaded)

	// mutation after save must not leak into the journal
	record.Status = persistence.StatusSigned
	loaded, err = mp.LoadRequest("req-1")
	require.NoError(t, err)
	assert.Equal(t, persistence.StatusReceived, loaded.Status)
}

func TestMemoryPersistence_LoadRequest_NotFound(t *testing.T) {
	mp := NewMemoryPersistence(zap.NewNop())
	defer func() { _ = mp.Close() }()

	loaded, err := mp.LoadRequest("missing")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryPersistence_SaveRequest_Invalid(t *testing.T) {
	mp := NewMemoryPersistence(zap.NewNop())
	defer func() { _ = mp.Close() }()

	assert.Error(t, mp.SaveRequest(nil))
	assert.Error(t, mp.SaveRequest(&persistence.RequestRecord{}))
}

func TestMemoryPersistence_UpsertAndList(t *testing.T) {
	mp := NewMemoryPersistence(zap.NewNop())
	defer func() { _ = mp.Close() }()

	require.NoError(t, mp.SaveRequest(newTestRecord("b", 200)))
	require.NoError(t, mp.SaveRequest(newTestRecord("a", 300)))
	require.NoError(t, mp.SaveRequest(newTestRecord("c", 100)))

	settled := newTestRecord("b", 200)
	settled.Settle(persistence.StatusSigned, "sig")
	require.NoError(t, mp.SaveRequest(settled))

	records, err := mp.ListRequests()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, persistence.StatusSigned, records[1].Status)
	assert.Equal(t, "a", records[2].ID)

	require.NoError(t, mp.DeleteRequest("b"))
	require.NoError(t, mp.DeleteRequest("b"))
	records, err = mp.ListRequests()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMemoryPersistence_HostState(t *testing.T) {
	mp := NewMemoryPersistence(zap.NewNop())
	defer func() { _ = mp.Close() }()

	state, err := mp.LoadHostState()
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, mp.SaveHostState(&persistence.HostState{PublicKey: "pk", HostStartTime: 10}))
	state, err = mp.LoadHostState()
	require.NoError(t, err)
	assert.Equal(t, "pk", state.PublicKey)
	assert.Error(t, mp.SaveHostState(nil))
}

func TestMemoryPersistence_Closed(t *testing.T) {
	mp := NewMemoryPersistence(zap.NewNop())
	require.NoError(t, mp.HealthCheck())
	require.NoError(t, mp.Close())
	require.NoError(t, mp.Close())

	assert.Error(t, mp.HealthCheck())
	assert.Error(t, mp.SaveRequest(newTestRecord("x", 1)))
	_, err := mp.LoadRequest("x")
	assert.Error(t, err)
	_, err = mp.ListRequests()
	assert.Error(t, err)
}

func TestMemoryPersistence_Concurrent(t *testing.T) {
	mp := NewMemoryPersistence(zap.NewNop())
	defer func() { _ = mp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, mp.SaveRequest(newTestRecord(fmt.Sprintf("req-%d", i), int64(i))))
			_, err := mp.ListRequests()
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	records, err := mp.ListRequests()
	require.NoError(t, err)
	assert.Len(t, records, 50)
}
