package solana

import (
	"bytes"
	"fmt"
)

const (
	PublicKeyLength = 32
	SignatureLength = 64
	HashLength      = 32
)

// PublicKey is an ed25519 public key, rendered as base58.
type PublicKey [PublicKeyLength]byte

// PublicKeyFromBase58 parses a wallet address.
func PublicKeyFromBase58(address string) (PublicKey, error) {
	var pk PublicKey
	raw, err := DecodeBase58(address)
	if err != nil {
		return pk, fmt.Errorf("invalid public key %q: %w", address, err)
	}
	if len(raw) != PublicKeyLength {
		return pk, fmt.Errorf("invalid public key %q: expected %d bytes, got %d", address, PublicKeyLength, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// PublicKeyFromBytes copies a raw 32-byte key.
func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	var pk PublicKey
	if len(raw) != PublicKeyLength {
		return pk, fmt.Errorf("expected %d byte public key, got %d", PublicKeyLength, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

func (pk PublicKey) String() string {
	return EncodeBase58(pk[:])
}

func (pk PublicKey) Bytes() []byte {
	return append([]byte{}, pk[:]...)
}

func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

func (pk PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(pk[:], other[:])
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := PublicKeyFromBase58(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// Signature is a 64-byte ed25519 signature.
type Signature [SignatureLength]byte

// SignatureFromBytes copies a raw signature, rejecting any other length.
func SignatureFromBytes(raw []byte) (Signature, error) {
	var sig Signature
	if len(raw) != SignatureLength {
		return sig, fmt.Errorf("expected %d byte signature, got %d", SignatureLength, len(raw))
	}
	copy(sig[:], raw)
	return sig, nil
}

func (s Signature) String() string {
	return EncodeBase58(s[:])
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	raw, err := DecodeBase58(string(text))
	if err != nil {
		return err
	}
	parsed, err := SignatureFromBytes(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Hash is a block hash, used as the recent blockhash of a message.
type Hash [HashLength]byte

func HashFromBase58(s string) (Hash, error) {
	var h Hash
	raw, err := DecodeBase58(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(raw) != HashLength {
		return h, fmt.Errorf("invalid hash %q: expected %d bytes, got %d", s, HashLength, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func (h Hash) String() string {
	return EncodeBase58(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromBase58(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
