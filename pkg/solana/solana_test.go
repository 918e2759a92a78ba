package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(label string) (ed25519.PrivateKey, PublicKey) {
	seed := sha256.Sum256([]byte(label))
	priv := ed25519.NewKeyFromSeed(seed[:])
	var pk PublicKey
	copy(pk[:], priv.Public().(ed25519.PublicKey))
	return priv, pk
}

func testTransaction(payer PublicKey, data []byte) *Transaction {
	_, other := testKey("other")
	return NewTransaction(Message{
		Header:          MessageHeader{NumRequiredSignatures: 1, NumReadonlyUnsignedAccounts: 1},
		AccountKeys:     []PublicKey{payer, other, {}},
		RecentBlockhash: Hash(sha256.Sum256([]byte("blockhash"))),
		Instructions: []CompiledInstruction{
			{ProgramIDIndex: 2, Accounts: []uint8{0, 1}, Data: data},
		},
	})
}

func Test_PublicKey(t *testing.T) {
	_, pk := testKey("alice")

	t.Run("Should round trip through base58", func(t *testing.T) {
		parsed, err := PublicKeyFromBase58(pk.String())
		require.NoError(t, err)
		assert.Equal(t, pk, parsed)
		assert.True(t, parsed.Equals(pk))
	})

	t.Run("Should reject invalid addresses", func(t *testing.T) {
		for _, address := range []string{
			"",
			"not-base58-0OIl",
			EncodeBase58([]byte{1, 2, 3}),
			EncodeBase58(bytes.Repeat([]byte{7}, 33)),
		} {
			_, err := PublicKeyFromBase58(address)
			assert.Error(t, err, "address %q", address)
		}
	})

	t.Run("Should unmarshal from text", func(t *testing.T) {
		var parsed PublicKey
		require.NoError(t, parsed.UnmarshalText([]byte(pk.String())))
		assert.Equal(t, pk, parsed)
	})
}

func Test_Transaction(t *testing.T) {
	priv, payer := testKey("payer")

	t.Run("Should survive a serialize/parse round trip", func(t *testing.T) {
		tx := testTransaction(payer, []byte{1, 2, 3})
		raw, err := tx.Serialize()
		require.NoError(t, err)

		parsed, err := TransactionFromBytes(raw)
		require.NoError(t, err)
		assert.Equal(t, tx.Message.AccountKeys, parsed.Message.AccountKeys)
		assert.Equal(t, tx.Message.RecentBlockhash, parsed.Message.RecentBlockhash)
		assert.Equal(t, tx.RecentBlockhash(), parsed.RecentBlockhash())
		assert.Equal(t, tx.Message.Instructions, parsed.Message.Instructions)
		assert.Len(t, parsed.Signatures, 1)
	})

	t.Run("Should encode long instruction data with a multi-byte length", func(t *testing.T) {
		data := bytes.Repeat([]byte{0xab}, 300)
		tx := testTransaction(payer, data)
		raw, err := tx.Serialize()
		require.NoError(t, err)

		parsed, err := TransactionFromBytes(raw)
		require.NoError(t, err)
		assert.Equal(t, data, parsed.Message.Instructions[0].Data)
	})

	t.Run("Should verify an attached signature", func(t *testing.T) {
		tx := testTransaction(payer, []byte{9})
		msg, err := tx.Message.Serialize()
		require.NoError(t, err)

		ok, err := tx.VerifySignatures()
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, tx.AddSignature(payer, ed25519.Sign(priv, msg)))
		ok, err = tx.VerifySignatures()
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should reject signatures from non-signers", func(t *testing.T) {
		tx := testTransaction(payer, nil)
		_, stranger := testKey("stranger")
		err := tx.AddSignature(stranger, make([]byte, SignatureLength))
		assert.Error(t, err)
	})

	t.Run("Should reject signatures of the wrong length", func(t *testing.T) {
		tx := testTransaction(payer, nil)
		err := tx.AddSignature(payer, []byte{1, 2, 3})
		assert.Error(t, err)
	})

	t.Run("Should reject truncated data", func(t *testing.T) {
		raw, err := testTransaction(payer, []byte{1}).Serialize()
		require.NoError(t, err)
		_, err = TransactionFromBytes(raw[:len(raw)-2])
		assert.Error(t, err)
	})

	t.Run("Should parse a bare message", func(t *testing.T) {
		tx := testTransaction(payer, []byte{4, 5})
		raw, err := tx.Message.Serialize()
		require.NoError(t, err)

		msg, err := MessageFromBytes(raw)
		require.NoError(t, err)
		assert.Equal(t, tx.Message, *msg)

		_, err = MessageFromBytes(append(raw, 0))
		assert.Error(t, err)
	})
}

func Test_CompactU16(t *testing.T) {
	t.Run("Should decode the largest legal value", func(t *testing.T) {
		d := &decoder{data: []byte{0xff, 0xff, 0x03}}
		n, err := d.shortVecLen()
		require.NoError(t, err)
		assert.Equal(t, 0xffff, n)
	})

	t.Run("Should reject values above 65535", func(t *testing.T) {
		d := &decoder{data: []byte{0xff, 0xff, 0x7f}}
		_, err := d.shortVecLen()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds 65535")

		_, err = TransactionFromBytes([]byte{0xff, 0xff, 0x7f})
		assert.Error(t, err)
	})

	t.Run("Should reject counts the data cannot hold", func(t *testing.T) {
		// 0xffff signatures declared, a single byte follows
		_, err := TransactionFromBytes([]byte{0xff, 0xff, 0x03, 0x00})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds remaining data")

		// header, then 0xffff account keys with nothing behind them
		_, err = MessageFromBytes([]byte{1, 0, 0, 0xff, 0xff, 0x03})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds remaining data")

		// no keys, a blockhash, then 0xffff instructions
		data := append([]byte{0, 0, 0, 0}, make([]byte, HashLength)...)
		data = append(data, 0xff, 0xff, 0x03, 0x00)
		_, err = MessageFromBytes(data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds remaining data")
	})
}

func Test_Encoding(t *testing.T) {
	t.Run("base64 uses the padded standard alphabet", func(t *testing.T) {
		assert.Equal(t, "AQID", EncodeBase64([]byte{1, 2, 3}))
		assert.Equal(t, "/w==", EncodeBase64([]byte{0xff}))
		decoded, err := DecodeBase64("/w==")
		require.NoError(t, err)
		assert.Equal(t, []byte{0xff}, decoded)
	})

	t.Run("base58 rejects characters outside the alphabet", func(t *testing.T) {
		_, err := DecodeBase58("0OIl")
		assert.Error(t, err)
	})
}
