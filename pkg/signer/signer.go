package signer

import (
	"context"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/solana"
)

// ISigner holds one wallet key and signs raw bytes with it.
type ISigner interface {
	KeyID() string
	PublicKey() solana.PublicKey
	Sign(ctx context.Context, message []byte) ([]byte, error)
}
