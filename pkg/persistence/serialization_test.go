package persistence

import (
	"testing"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRecord_Serialization(t *testing.T) {
	record := &RequestRecord{
		ID:         "req-1",
		Method:     types.MethodSignMessage,
		PublicKey:  "11111111111111111111111111111111",
		Status:     StatusReceived,
		ReceivedAt: 1700000000000,
	}

	data, err := MarshalRequestRecord(record)
	require.NoError(t, err)

	loaded, err := UnmarshalRequestRecord(data)
	require.NoError(t, err)
	assert.Equal(t, record, loaded)
}

func TestRequestRecord_SerializationErrors(t *testing.T) {
	_, err := MarshalRequestRecord(nil)
	assert.Error(t, err)

	_, err = UnmarshalRequestRecord(nil)
	assert.Error(t, err)

	_, err = UnmarshalRequestRecord([]byte(`{"method":"connect"}`))
	assert.Error(t, err, "records without an id are rejected")

	_, err = UnmarshalRequestRecord([]byte(`{`))
	assert.Error(t, err)
}

func TestRequestRecord_Settle(t *testing.T) {
	record := &RequestRecord{ID: "req-2", Status: StatusReceived}
	assert.False(t, record.Status.IsFinal())

	record.Settle(StatusDeclined, "user declined")
	assert.True(t, record.Status.IsFinal())
	assert.Equal(t, "user declined", record.Detail)
	assert.NotZero(t, record.SettledAt)
}

func TestSortRequestRecords(t *testing.T) {
	records := []*RequestRecord{
		{ID: "c", ReceivedAt: 2},
		{ID: "b", ReceivedAt: 1},
		{ID: "a", ReceivedAt: 2},
	}
	SortRequestRecords(records)
	assert.Equal(t, "b", records[0].ID)
	assert.Equal(t, "a", records[1].ID)
	assert.Equal(t, "c", records[2].ID)
}

func TestHostState_Serialization(t *testing.T) {
	state := &HostState{PublicKey: "abc", HostStartTime: 42}
	data, err := MarshalHostState(state)
	require.NoError(t, err)

	loaded, err := UnmarshalHostState(data)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	_, err = MarshalHostState(nil)
	assert.Error(t, err)
}
