package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/persistence"
	"go.uber.org/zap"
)

// MemoryPersistence is an in-memory IJournal. All records are lost when the
// process exits. Records are copied in and out to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	requests  map[string]*persistence.RequestRecord
	hostState *persistence.HostState

	closed bool
}

var _ persistence.IJournal = (*MemoryPersistence)(nil)

// NewMemoryPersistence warns loudly since nothing survives a restart.
func NewMemoryPersistence(logger *zap.Logger) *MemoryPersistence {
	logger.Sugar().Warnw("Using in-memory request journal - ALL RECORDS WILL BE LOST ON RESTART")

	return &MemoryPersistence{
		requests: make(map[string]*persistence.RequestRecord),
	}
}

func (m *MemoryPersistence) SaveRequest(record *persistence.RequestRecord) error {
	if err := persistence.ValidateRequestRecord(record); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	copied := *record
	m.requests[record.ID] = &copied
	return nil
}

func (m *MemoryPersistence) LoadRequest(id string) (*persistence.RequestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	record, exists := m.requests[id]
	if !exists {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (m *MemoryPersistence) ListRequests() ([]*persistence.RequestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	result := make([]*persistence.RequestRecord, 0, len(m.requests))
	for _, record := range m.requests {
		copied := *record
		result = append(result, &copied)
	}
	persistence.SortRequestRecords(result)
	return result, nil
}

func (m *MemoryPersistence) DeleteRequest(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.requests, id)
	return nil
}

func (m *MemoryPersistence) SaveHostState(state *persistence.HostState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil HostState")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	copied := *state
	m.hostState = &copied
	return nil
}

func (m *MemoryPersistence) LoadHostState() (*persistence.HostState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	if m.hostState == nil {
		return nil, nil
	}
	copied := *m.hostState
	return &copied, nil
}

func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.requests = nil
	m.hostState = nil
	return nil
}

func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}
