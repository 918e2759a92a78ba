package persistence

import (
	"encoding/json"
	"fmt"
	"sort"
)

// MarshalRequestRecord serializes a RequestRecord to JSON bytes.
func MarshalRequestRecord(r *RequestRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil RequestRecord")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RequestRecord to JSON: %w", err)
	}
	return data, nil
}

// UnmarshalRequestRecord deserializes a RequestRecord from JSON bytes.
func UnmarshalRequestRecord(data []byte) (*RequestRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var r RequestRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to RequestRecord: %w", err)
	}
	if r.ID == "" {
		return nil, fmt.Errorf("RequestRecord is missing an id")
	}
	return &r, nil
}

// MarshalHostState serializes HostState to JSON bytes.
func MarshalHostState(hs *HostState) ([]byte, error) {
	if hs == nil {
		return nil, fmt.Errorf("cannot marshal nil HostState")
	}
	return json.Marshal(hs)
}

// UnmarshalHostState deserializes HostState from JSON bytes.
func UnmarshalHostState(data []byte) (*HostState, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var hs HostState
	if err := json.Unmarshal(data, &hs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to HostState: %w", err)
	}
	return &hs, nil
}

// SortRequestRecords orders records by ReceivedAt, then ID.
func SortRequestRecords(records []*RequestRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ReceivedAt != records[j].ReceivedAt {
			return records[i].ReceivedAt < records[j].ReceivedAt
		}
		return records[i].ID < records[j].ID
	})
}

// ValidateRequestRecord rejects records no backend should store.
func ValidateRequestRecord(r *RequestRecord) error {
	if r == nil {
		return fmt.Errorf("cannot save nil RequestRecord")
	}
	if r.ID == "" {
		return fmt.Errorf("RequestRecord id cannot be empty")
	}
	return nil
}
