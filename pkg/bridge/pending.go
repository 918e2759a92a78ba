package bridge

import (
	"sync"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
)

type settlement struct {
	result *types.ResultEnvelope
	err    error
}

type pendingRequest struct {
	id      string
	method  types.Method
	seq     uint64
	settled chan settlement
}

// pendingTable tracks outstanding result-bearing requests by correlation id.
// Every request is settled at most once: whoever removes it from the map owns
// the single send on its buffered channel.
type pendingTable struct {
	mu       sync.Mutex
	seq      uint64
	requests map[string]*pendingRequest
	closed   bool
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		requests: make(map[string]*pendingRequest),
	}
}

func (pt *pendingTable) register(id string, method types.Method) (*pendingRequest, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.closed {
		return nil, ErrClosed
	}
	if _, exists := pt.requests[id]; exists {
		return nil, ErrDuplicateRequest
	}

	pt.seq++
	req := &pendingRequest{
		id:      id,
		method:  method,
		seq:     pt.seq,
		settled: make(chan settlement, 1),
	}
	pt.requests[id] = req
	return req, nil
}

// remove drops a request without settling it. Returns false if it was already
// settled or removed.
func (pt *pendingTable) remove(id string) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if _, exists := pt.requests[id]; !exists {
		return false
	}
	delete(pt.requests, id)
	return true
}

// resolve settles the request a result belongs to. A result with an id
// settles that request. A result without one settles the most recently
// registered request of its method, or of any method when it names none.
// Results naming a method the host never answers settle nothing.
func (pt *pendingTable) resolve(result *types.ResultEnvelope) (*pendingRequest, bool) {
	if result.Method != "" && !result.Method.IsResultBearing() {
		return nil, false
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()

	var target *pendingRequest
	if result.ID != "" {
		target = pt.requests[result.ID]
	} else {
		for _, req := range pt.requests {
			if result.Method != "" && req.method != result.Method {
				continue
			}
			if target == nil || req.seq > target.seq {
				target = req
			}
		}
	}
	if target == nil {
		return nil, false
	}

	delete(pt.requests, target.id)
	target.settled <- settlement{result: result}
	return target, true
}

// closeAll rejects every outstanding request with err and refuses new ones.
func (pt *pendingTable) closeAll(err error) int {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.closed = true
	n := len(pt.requests)
	for id, req := range pt.requests {
		delete(pt.requests, id)
		req.settled <- settlement{err: err}
	}
	return n
}

func (pt *pendingTable) len() int {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return len(pt.requests)
}
