package testutil

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/solana"
)

// TestKeyPair derives a deterministic ed25519 key pair from a label.
func TestKeyPair(t *testing.T, label string) (ed25519.PrivateKey, solana.PublicKey) {
	t.Helper()
	seed := sha256.Sum256([]byte(label))
	priv := ed25519.NewKeyFromSeed(seed[:])
	pub, err := solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		t.Fatalf("failed to build public key: %v", err)
	}
	return priv, pub
}

// TestBlockhash returns a deterministic blockhash derived from a label.
func TestBlockhash(label string) solana.Hash {
	return solana.Hash(sha256.Sum256([]byte("blockhash:" + label)))
}

// CreateTestTransaction builds an unsigned transfer-shaped transaction with
// feePayer as the only required signer.
func CreateTestTransaction(t *testing.T, feePayer solana.PublicKey, blockhashLabel string) *solana.Transaction {
	t.Helper()
	_, recipient := TestKeyPair(t, "recipient:"+blockhashLabel)
	var systemProgram solana.PublicKey

	return solana.NewTransaction(solana.Message{
		Header: solana.MessageHeader{
			NumRequiredSignatures:       1,
			NumReadonlySignedAccounts:   0,
			NumReadonlyUnsignedAccounts: 1,
		},
		AccountKeys:     []solana.PublicKey{feePayer, recipient, systemProgram},
		RecentBlockhash: TestBlockhash(blockhashLabel),
		Instructions: []solana.CompiledInstruction{
			{
				ProgramIDIndex: 2,
				Accounts:       []uint8{0, 1},
				Data:           []byte{2, 0, 0, 0, 0x40, 0x42, 0x0f, 0, 0, 0, 0, 0},
			},
		},
	})
}
