package localSigner

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/signer"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/solana"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalSigner keeps an ed25519 private key in process memory.
type LocalSigner struct {
	logger     *zap.Logger
	keyID      string
	privateKey ed25519.PrivateKey
	publicKey  solana.PublicKey

	mu       sync.Mutex
	numSigns uint64
}

var _ signer.ISigner = (*LocalSigner)(nil)

// NewLocalSigner generates a fresh key.
func NewLocalSigner(logger *zap.Logger) (*LocalSigner, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return newLocalSigner(priv, logger)
}

// NewLocalSignerFromSeed derives the key from a 32-byte seed.
func NewLocalSignerFromSeed(seed []byte, logger *zap.Logger) (*LocalSigner, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return newLocalSigner(ed25519.NewKeyFromSeed(seed), logger)
}

// NewLocalSignerFromBase58 accepts either a base58 seed (32 bytes) or a
// base58 keypair (64 bytes, seed followed by public key) as exported by
// common wallets.
func NewLocalSignerFromBase58(encoded string, logger *zap.Logger) (*LocalSigner, error) {
	raw, err := solana.DecodeBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}

	switch len(raw) {
	case ed25519.SeedSize:
		return NewLocalSignerFromSeed(raw, logger)
	case ed25519.PrivateKeySize:
		priv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(raw[ed25519.SeedSize:])) {
			return nil, fmt.Errorf("keypair public half does not match its seed")
		}
		return newLocalSigner(priv, logger)
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}

func newLocalSigner(priv ed25519.PrivateKey, logger *zap.Logger) (*LocalSigner, error) {
	pub, err := solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}

	ls := &LocalSigner{
		logger:     logger,
		keyID:      fmt.Sprintf("local-key-%s", uuid.New().String()),
		privateKey: priv,
		publicKey:  pub,
	}

	logger.Info("Loaded local ed25519 key",
		zap.String("keyId", ls.keyID),
		zap.String("publicKey", pub.String()),
	)
	return ls, nil
}

func (l *LocalSigner) KeyID() string {
	return l.keyID
}

func (l *LocalSigner) PublicKey() solana.PublicKey {
	return l.publicKey
}

func (l *LocalSigner) Sign(ctx context.Context, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sig := ed25519.Sign(l.privateKey, message)

	l.mu.Lock()
	l.numSigns++
	count := l.numSigns
	l.mu.Unlock()

	l.logger.Debug("Signed message",
		zap.String("keyId", l.keyID),
		zap.Int("messageLength", len(message)),
		zap.Uint64("signCount", count),
	)
	return sig, nil
}

// SeedBase58 exports the private seed. Used by the host CLI to print a newly
// generated key once.
func (l *LocalSigner) SeedBase58() string {
	return solana.EncodeBase58(l.privateKey.Seed())
}
