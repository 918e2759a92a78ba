package persistence

import (
	"time"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
)

type RequestStatus string

const (
	// StatusReceived: accepted, not yet answered.
	StatusReceived RequestStatus = "received"
	// StatusSigned: answered with a signature.
	StatusSigned RequestStatus = "signed"
	// StatusDeclined: answered without a signature by policy (user, rate limit).
	StatusDeclined RequestStatus = "declined"
	// StatusFailed: answered without a signature because the request was unusable.
	StatusFailed RequestStatus = "failed"
	// StatusAnnounced: informational request that never gets an answer.
	StatusAnnounced RequestStatus = "announced"
)

// IsFinal reports whether the record will not change again.
func (s RequestStatus) IsFinal() bool {
	return s != StatusReceived
}

// RequestRecord is one journal entry.
type RequestRecord struct {
	ID        string        `json:"id"`
	Method    types.Method  `json:"method"`
	PublicKey string        `json:"publicKey"`
	Status    RequestStatus `json:"status"`

	// Detail holds the decline/failure reason or the produced signature.
	Detail string `json:"detail,omitempty"`

	// ReceivedAt and SettledAt are unix milliseconds.
	ReceivedAt int64 `json:"receivedAt"`
	SettledAt  int64 `json:"settledAt,omitempty"`
}

// Settle marks the record final with the given status.
func (r *RequestRecord) Settle(status RequestStatus, detail string) {
	r.Status = status
	r.Detail = detail
	r.SettledAt = time.Now().UnixMilli()
}

// HostState is what a host needs to recognize its own journal after a
// restart.
type HostState struct {
	// PublicKey is the base58 wallet key the journal was written for.
	PublicKey string `json:"publicKey"`

	// HostStartTime is the unix time the host last started.
	HostStartTime int64 `json:"hostStartTime"`
}
