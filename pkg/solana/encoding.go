package solana

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// EncodeBase64 renders bytes with the standard padded alphabet, the encoding
// webview hosts use for transaction and message payloads.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

func EncodeBase58(data []byte) string {
	return base58.Encode(data)
}

func DecodeBase58(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("failed to decode base58: empty string")
	}
	data, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58: %w", err)
	}
	return data, nil
}
