package solana

import (
	"crypto/ed25519"
	"fmt"
)

// MessageHeader describes how many of the account keys sign and which are
// read-only.
type MessageHeader struct {
	NumRequiredSignatures       uint8 `json:"numRequiredSignatures"`
	NumReadonlySignedAccounts   uint8 `json:"numReadonlySignedAccounts"`
	NumReadonlyUnsignedAccounts uint8 `json:"numReadonlyUnsignedAccounts"`
}

type CompiledInstruction struct {
	ProgramIDIndex uint8   `json:"programIdIndex"`
	Accounts       []uint8 `json:"accounts"`
	Data           []byte  `json:"data"`
}

// Message is the signed portion of a legacy transaction.
type Message struct {
	Header          MessageHeader         `json:"header"`
	AccountKeys     []PublicKey           `json:"accountKeys"`
	RecentBlockhash Hash                  `json:"recentBlockhash"`
	Instructions    []CompiledInstruction `json:"instructions"`
}

// Transaction is a legacy transaction: one signature slot per required signer
// followed by the message.
type Transaction struct {
	Signatures []Signature `json:"signatures"`
	Message    Message     `json:"message"`
}

// NewTransaction wraps a message with empty signature slots for each
// required signer.
func NewTransaction(msg Message) *Transaction {
	return &Transaction{
		Signatures: make([]Signature, msg.Header.NumRequiredSignatures),
		Message:    msg,
	}
}

// Serialize encodes the message in wire format.
func (m *Message) Serialize() ([]byte, error) {
	if int(m.Header.NumRequiredSignatures) > len(m.AccountKeys) {
		return nil, fmt.Errorf("message requires %d signatures but has %d account keys",
			m.Header.NumRequiredSignatures, len(m.AccountKeys))
	}

	buf := []byte{
		m.Header.NumRequiredSignatures,
		m.Header.NumReadonlySignedAccounts,
		m.Header.NumReadonlyUnsignedAccounts,
	}

	var err error
	if buf, err = appendShortVecLen(buf, len(m.AccountKeys)); err != nil {
		return nil, err
	}
	for _, key := range m.AccountKeys {
		buf = append(buf, key[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)

	if buf, err = appendShortVecLen(buf, len(m.Instructions)); err != nil {
		return nil, err
	}
	for i, ix := range m.Instructions {
		if int(ix.ProgramIDIndex) >= len(m.AccountKeys) {
			return nil, fmt.Errorf("instruction %d: program id index %d out of range", i, ix.ProgramIDIndex)
		}
		buf = append(buf, ix.ProgramIDIndex)
		if buf, err = appendShortVecLen(buf, len(ix.Accounts)); err != nil {
			return nil, err
		}
		buf = append(buf, ix.Accounts...)
		if buf, err = appendShortVecLen(buf, len(ix.Data)); err != nil {
			return nil, err
		}
		buf = append(buf, ix.Data...)
	}

	return buf, nil
}

// Serialize encodes the full transaction in wire format.
func (tx *Transaction) Serialize() ([]byte, error) {
	msg, err := tx.Message.Serialize()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %w", err)
	}

	buf, err := appendShortVecLen(nil, len(tx.Signatures))
	if err != nil {
		return nil, err
	}
	for _, sig := range tx.Signatures {
		buf = append(buf, sig[:]...)
	}
	return append(buf, msg...), nil
}

// RecentBlockhash returns the base58 blockhash the message commits to.
func (tx *Transaction) RecentBlockhash() string {
	return tx.Message.RecentBlockhash.String()
}

// SignerIndex returns the position of pubkey among the required signers, or -1.
func (tx *Transaction) SignerIndex(pubkey PublicKey) int {
	n := int(tx.Message.Header.NumRequiredSignatures)
	for i := 0; i < n && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i] == pubkey {
			return i
		}
	}
	return -1
}

// AddSignature places sig in the slot belonging to pubkey.
func (tx *Transaction) AddSignature(pubkey PublicKey, sig []byte) error {
	signature, err := SignatureFromBytes(sig)
	if err != nil {
		return err
	}

	idx := tx.SignerIndex(pubkey)
	if idx < 0 {
		return fmt.Errorf("%s is not a required signer of this transaction", pubkey)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < required {
		grown := make([]Signature, required)
		copy(grown, tx.Signatures)
		tx.Signatures = grown
	}
	tx.Signatures[idx] = signature
	return nil
}

// VerifySignatures checks every non-empty signature slot against its signer.
// Returns false when any required signature is missing or invalid.
func (tx *Transaction) VerifySignatures() (bool, error) {
	msg, err := tx.Message.Serialize()
	if err != nil {
		return false, err
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != required {
		return false, nil
	}
	for i := 0; i < required; i++ {
		if tx.Signatures[i].IsZero() {
			return false, nil
		}
		key := tx.Message.AccountKeys[i]
		if !ed25519.Verify(ed25519.PublicKey(key[:]), msg, tx.Signatures[i][:]) {
			return false, nil
		}
	}
	return true, nil
}

// TransactionFromBytes decodes a wire-format legacy transaction.
func TransactionFromBytes(data []byte) (*Transaction, error) {
	d := &decoder{data: data}

	numSigs, err := d.shortVecLen()
	if err != nil {
		return nil, fmt.Errorf("failed to read signature count: %w", err)
	}
	if err := d.ensure(numSigs, SignatureLength); err != nil {
		return nil, fmt.Errorf("failed to read signatures: %w", err)
	}
	tx := &Transaction{Signatures: make([]Signature, numSigs)}
	for i := 0; i < numSigs; i++ {
		raw, err := d.read(SignatureLength)
		if err != nil {
			return nil, fmt.Errorf("failed to read signature %d: %w", i, err)
		}
		copy(tx.Signatures[i][:], raw)
	}

	msg, err := d.message()
	if err != nil {
		return nil, err
	}
	tx.Message = *msg

	if d.remaining() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after transaction", d.remaining())
	}
	if int(tx.Message.Header.NumRequiredSignatures) != numSigs {
		return nil, fmt.Errorf("transaction carries %d signatures but message requires %d",
			numSigs, tx.Message.Header.NumRequiredSignatures)
	}
	return tx, nil
}

// MessageFromBytes decodes a wire-format message.
func MessageFromBytes(data []byte) (*Message, error) {
	d := &decoder{data: data}
	msg, err := d.message()
	if err != nil {
		return nil, err
	}
	if d.remaining() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after message", d.remaining())
	}
	return msg, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) remaining() int {
	return len(d.data) - d.pos
}

func (d *decoder) read(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, fmt.Errorf("unexpected end of data: need %d bytes, have %d", n, d.remaining())
	}
	out := d.data[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

// ensure checks that count items of at least size bytes each can still be
// read, so slices are never sized from a length the data cannot back.
func (d *decoder) ensure(count, size int) error {
	if count < 0 || count > d.remaining()/size {
		return fmt.Errorf("length %d exceeds remaining data (%d bytes)", count, d.remaining())
	}
	return nil
}

func (d *decoder) readByte() (byte, error) {
	b, err := d.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) shortVecLen() (int, error) {
	var value int
	for i := 0; i < 3; i++ {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		value |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if value > 0xffff {
				return 0, fmt.Errorf("compact-u16 value %d exceeds 65535", value)
			}
			return value, nil
		}
	}
	return 0, fmt.Errorf("compact-u16 length exceeds 3 bytes")
}

func (d *decoder) message() (*Message, error) {
	header, err := d.read(3)
	if err != nil {
		return nil, fmt.Errorf("failed to read message header: %w", err)
	}
	msg := &Message{
		Header: MessageHeader{
			NumRequiredSignatures:       header[0],
			NumReadonlySignedAccounts:   header[1],
			NumReadonlyUnsignedAccounts: header[2],
		},
	}

	numKeys, err := d.shortVecLen()
	if err != nil {
		return nil, fmt.Errorf("failed to read account key count: %w", err)
	}
	if err := d.ensure(numKeys, PublicKeyLength); err != nil {
		return nil, fmt.Errorf("failed to read account keys: %w", err)
	}
	msg.AccountKeys = make([]PublicKey, numKeys)
	for i := 0; i < numKeys; i++ {
		raw, err := d.read(PublicKeyLength)
		if err != nil {
			return nil, fmt.Errorf("failed to read account key %d: %w", i, err)
		}
		copy(msg.AccountKeys[i][:], raw)
	}

	raw, err := d.read(HashLength)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent blockhash: %w", err)
	}
	copy(msg.RecentBlockhash[:], raw)

	numIx, err := d.shortVecLen()
	if err != nil {
		return nil, fmt.Errorf("failed to read instruction count: %w", err)
	}
	// program index plus two empty compact-u16 lengths
	if err := d.ensure(numIx, 3); err != nil {
		return nil, fmt.Errorf("failed to read instructions: %w", err)
	}
	msg.Instructions = make([]CompiledInstruction, numIx)
	for i := 0; i < numIx; i++ {
		programIdx, err := d.readByte()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		numAccounts, err := d.shortVecLen()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		accounts, err := d.read(numAccounts)
		if err != nil {
			return nil, fmt.Errorf("instruction %d accounts: %w", i, err)
		}
		dataLen, err := d.shortVecLen()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		data, err := d.read(dataLen)
		if err != nil {
			return nil, fmt.Errorf("instruction %d data: %w", i, err)
		}
		msg.Instructions[i] = CompiledInstruction{
			ProgramIDIndex: programIdx,
			Accounts:       append([]uint8{}, accounts...),
			Data:           append([]byte{}, data...),
		}
	}

	if int(msg.Header.NumRequiredSignatures) > len(msg.AccountKeys) {
		return nil, fmt.Errorf("message requires %d signatures but has %d account keys",
			msg.Header.NumRequiredSignatures, len(msg.AccountKeys))
	}
	return msg, nil
}

func appendShortVecLen(buf []byte, n int) ([]byte, error) {
	if n < 0 || n > 0xffff {
		return nil, fmt.Errorf("length %d does not fit in compact-u16", n)
	}
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b), nil
		}
		buf = append(buf, b|0x80)
	}
}
