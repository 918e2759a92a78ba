package persistence

// IJournal records every wallet request a host receives and how it was
// settled. All implementations must be thread-safe; the host handles
// requests concurrently.
type IJournal interface {
	// SaveRequest upserts a request record keyed by its ID.
	SaveRequest(record *RequestRecord) error

	// LoadRequest returns nil if the record doesn't exist, error only on
	// storage failure.
	LoadRequest(id string) (*RequestRecord, error)

	// ListRequests returns all records ordered by ReceivedAt, then ID.
	ListRequests() ([]*RequestRecord, error)

	// DeleteRequest is idempotent.
	DeleteRequest(id string) error

	// SaveHostState overwrites the host's operational state.
	SaveHostState(state *HostState) error

	// LoadHostState returns nil state if none exists (first run).
	LoadHostState() (*HostState, error)

	// Close is idempotent. After Close all other operations return errors.
	Close() error

	// HealthCheck returns nil if the journal is usable.
	HealthCheck() error
}
