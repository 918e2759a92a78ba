package localSigner

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/solana"
	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const keyFileVersion = 1

// Default scrypt cost parameters for new key files.
const (
	DefaultScryptN = 1 << 15
	DefaultScryptR = 8
	DefaultScryptP = 1
)

// KeyFile is the on-disk form of a password protected wallet seed.
type KeyFile struct {
	Version    int    `json:"version"`
	PublicKey  string `json:"publicKey"`
	ScryptN    int    `json:"scryptN"`
	ScryptR    int    `json:"scryptR"`
	ScryptP    int    `json:"scryptP"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// EncryptKeyFile seals the signer's seed under password.
func (l *LocalSigner) EncryptKeyFile(password string, scryptN int) (*KeyFile, error) {
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if scryptN <= 0 {
		scryptN = DefaultScryptN
	}

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := deriveKey(password, salt, scryptN, DefaultScryptR, DefaultScryptP)
	if err != nil {
		return nil, err
	}
	sealed := secretbox.Seal(nil, l.privateKey.Seed(), &nonce, key)

	return &KeyFile{
		Version:    keyFileVersion,
		PublicKey:  l.publicKey.String(),
		ScryptN:    scryptN,
		ScryptR:    DefaultScryptR,
		ScryptP:    DefaultScryptP,
		Salt:       solana.EncodeBase64(salt),
		Nonce:      solana.EncodeBase64(nonce[:]),
		Ciphertext: solana.EncodeBase64(sealed),
	}, nil
}

// WriteKeyFile encrypts the seed and writes it to path with 0600 permissions.
func (l *LocalSigner) WriteKeyFile(path string, password string) error {
	kf, err := l.EncryptKeyFile(password, DefaultScryptN)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create key file directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// NewLocalSignerFromKeyFile decrypts a key file written by WriteKeyFile.
func NewLocalSignerFromKeyFile(path string, password string, logger *zap.Logger) (*LocalSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	var kf KeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}
	return DecryptKeyFile(&kf, password, logger)
}

// DecryptKeyFile opens kf and checks the recovered key against its recorded
// public key.
func DecryptKeyFile(kf *KeyFile, password string, logger *zap.Logger) (*LocalSigner, error) {
	if kf.Version != keyFileVersion {
		return nil, fmt.Errorf("unsupported key file version %d", kf.Version)
	}

	salt, err := solana.DecodeBase64(kf.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}
	nonceBytes, err := solana.DecodeBase64(kf.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, fmt.Errorf("invalid nonce")
	}
	sealed, err := solana.DecodeBase64(kf.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext: %w", err)
	}

	key, err := deriveKey(password, salt, kf.ScryptN, kf.ScryptR, kf.ScryptP)
	if err != nil {
		return nil, err
	}
	var nonce [24]byte
	copy(nonce[:], nonceBytes)

	seed, ok := secretbox.Open(nil, sealed, &nonce, key)
	if !ok {
		return nil, fmt.Errorf("wrong password or corrupted key file")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key file holds %d bytes, expected a %d byte seed", len(seed), ed25519.SeedSize)
	}

	ls, err := NewLocalSignerFromSeed(seed, logger)
	if err != nil {
		return nil, err
	}
	if kf.PublicKey != "" && ls.publicKey.String() != kf.PublicKey {
		return nil, fmt.Errorf("key file public key %s does not match decrypted key %s", kf.PublicKey, ls.publicKey)
	}
	return ls, nil
}

func deriveKey(password string, salt []byte, n, r, p int) (*[32]byte, error) {
	derived, err := scrypt.Key([]byte(password), salt, n, r, p, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	var key [32]byte
	copy(key[:], derived)
	return &key, nil
}
