package bridge

import (
	"context"
	"encoding/json"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/solana"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

/*
Bridge lets web content ask a host application for wallet operations over a
one-way outbound channel.

Request flow:
  - Each operation is serialized as a JSON descriptor and pushed through the
    outbound channel. Sends never wait for the host.
  - connect and disconnect settle immediately without any host answer.
  - signTransaction and signMessage register a pending request keyed by a
    correlation id, then wait for the host to call HandleResult.
  - signAndSendTransaction, signAllTransactions, signIn, on and off announce
    themselves to the host and fail with ErrNotImplemented.

Result routing:
  - A result carrying an id settles the request with that id.
  - A result without an id settles the most recently registered request of
    its method, or of either signing method when it names none. Earlier
    requests stay pending until their context ends or the bridge closes.

Encodings:
  - signTransaction: transactionBase64 out, signatureBase64 back (both base64).
  - signMessage: messageBase64 out, signature back in base58.
*/
type Bridge struct {
	publicKey solana.PublicKey
	outbound  channel.IOutbound
	logger    *zap.Logger
	pending   *pendingTable

	newID                 func() string
	announceUnimplemented bool
	diagnostics           bool
}

type Option func(*Bridge)

// WithIDGenerator replaces the uuid correlation id generator.
func WithIDGenerator(fn func() string) Option {
	return func(b *Bridge) {
		b.newID = fn
	}
}

// WithAnnounceUnimplemented controls whether unimplemented operations still
// send their descriptor before failing. Enabled by default.
func WithAnnounceUnimplemented(enabled bool) Option {
	return func(b *Bridge) {
		b.announceUnimplemented = enabled
	}
}

// WithDiagnostics controls the "log <method>" and "error" echo messages sent
// to the host while settling signing requests. Enabled by default.
func WithDiagnostics(enabled bool) Option {
	return func(b *Bridge) {
		b.diagnostics = enabled
	}
}

// NewBridge parses address as the wallet identity. It fails with
// ErrInvalidAddress when address is not a base58 ed25519 public key.
func NewBridge(address string, outbound channel.IOutbound, logger *zap.Logger, opts ...Option) (*Bridge, error) {
	publicKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAddress, err.Error())
	}
	if outbound == nil {
		return nil, errors.New("outbound channel cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bridge{
		publicKey:             publicKey,
		outbound:              outbound,
		logger:                logger,
		pending:               newPendingTable(),
		newID:                 func() string { return uuid.New().String() },
		announceUnimplemented: true,
		diagnostics:           true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// ready reports whether the bridge was built by NewBridge. A zero Bridge
// refuses signing and sends nothing.
func (b *Bridge) ready() bool {
	return b.outbound != nil && b.pending != nil && b.logger != nil && b.newID != nil
}

func (b *Bridge) PublicKey() solana.PublicKey {
	return b.publicKey
}

// Pending returns the number of signing requests still waiting for a result.
func (b *Bridge) Pending() int {
	if b.pending == nil {
		return 0
	}
	return b.pending.len()
}

// Connect announces the connection and returns the wallet identity without
// waiting for the host.
func (b *Bridge) Connect(ctx context.Context, options *types.ConnectOptions) (solana.PublicKey, error) {
	if b.publicKey.IsZero() || !b.ready() {
		return solana.PublicKey{}, newRequestError(types.MethodConnect, "", ErrNotImplemented)
	}

	descriptor := &types.Descriptor{
		ID:     b.newID(),
		Method: types.MethodConnect,
		Data:   &types.ConnectData{Options: options},
	}
	if err := b.send(ctx, descriptor); err != nil {
		b.logger.Sugar().Warnw("Failed to announce connect", "id", descriptor.ID, "error", err)
	}
	return b.publicKey, nil
}

// Disconnect announces the disconnection. It never fails.
func (b *Bridge) Disconnect(ctx context.Context) error {
	if !b.ready() {
		return nil
	}
	descriptor := &types.Descriptor{
		ID:     b.newID(),
		Method: types.MethodDisconnect,
	}
	if err := b.send(ctx, descriptor); err != nil {
		b.logger.Sugar().Warnw("Failed to announce disconnect", "id", descriptor.ID, "error", err)
	}
	return nil
}

func (b *Bridge) SignAndSendTransaction(ctx context.Context, tx *solana.Transaction, options *types.SendOptions) (solana.Signature, error) {
	data := &types.SignAndSendTransactionData{
		Transaction: b.describeTransaction(types.MethodSignAndSendTransaction, 0, tx),
		Options:     options,
	}
	return solana.Signature{}, b.unimplemented(ctx, types.MethodSignAndSendTransaction, data)
}

// SignTransaction asks the host to sign tx with the wallet key. On success
// the signature is attached to tx itself, which is returned.
func (b *Bridge) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	method := types.MethodSignTransaction
	if tx == nil {
		return nil, newRequestError(method, "", errors.Wrap(ErrEncodeRequest, "transaction is nil"))
	}

	raw, err := tx.Serialize()
	if err != nil {
		return nil, newRequestError(method, "", errors.Wrap(ErrEncodeRequest, err.Error()))
	}
	if !b.ready() {
		return nil, newRequestError(method, "", ErrNotImplemented)
	}

	id := b.newID()
	request := &types.SignTransactionRequest{
		ID:                id,
		Method:            method,
		RecentBlockhash:   tx.RecentBlockhash(),
		TransactionBase64: solana.EncodeBase64(raw),
	}

	result, err := b.roundTrip(ctx, id, method, request)
	if err != nil {
		return nil, err
	}

	if result.SignatureBase64 == "" {
		b.reportResultError(ctx, id, result)
		return nil, newRequestError(method, id, ErrNoSignature)
	}

	signature, err := solana.DecodeBase64(result.SignatureBase64)
	if err != nil {
		b.reportError(ctx, id, err)
		return nil, newRequestError(method, id, errors.Wrap(ErrDecodeSignature, err.Error()))
	}

	if err := tx.AddSignature(b.publicKey, signature); err != nil {
		b.reportError(ctx, id, err)
		return nil, newRequestError(method, id, errors.Wrap(ErrAttachSignature, err.Error()))
	}

	return tx, nil
}

func (b *Bridge) SignAllTransactions(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error) {
	data := &types.SignAllTransactionsData{Transactions: make([]string, len(txs))}
	for i, tx := range txs {
		data.Transactions[i] = b.describeTransaction(types.MethodSignAllTransactions, i, tx)
	}
	return nil, b.unimplemented(ctx, types.MethodSignAllTransactions, data)
}

// SignMessage asks the host to sign arbitrary bytes and returns the raw
// signature.
func (b *Bridge) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	method := types.MethodSignMessage
	if !b.ready() {
		return nil, newRequestError(method, "", ErrNotImplemented)
	}
	id := b.newID()
	request := &types.SignMessageRequest{
		ID:            id,
		Method:        method,
		MessageBase64: solana.EncodeBase64(message),
	}

	result, err := b.roundTrip(ctx, id, method, request)
	if err != nil {
		return nil, err
	}

	if result.Signature == "" {
		b.reportResultError(ctx, id, result)
		return nil, newRequestError(method, id, ErrNoSignature)
	}

	signature, err := solana.DecodeBase58(result.Signature)
	if err != nil {
		b.reportError(ctx, id, err)
		return nil, newRequestError(method, id, errors.Wrap(ErrDecodeSignature, err.Error()))
	}

	return signature, nil
}

func (b *Bridge) SignIn(ctx context.Context, input *types.SignInInput) (*types.SignInOutput, error) {
	return nil, b.unimplemented(ctx, types.MethodSignIn, input)
}

func (b *Bridge) On(ctx context.Context, event types.Event, listener types.EventListener) error {
	return b.unimplemented(ctx, types.MethodOn, &types.EventData{Event: event})
}

func (b *Bridge) Off(ctx context.Context, event types.Event, listener types.EventListener) error {
	return b.unimplemented(ctx, types.MethodOff, &types.EventData{Event: event})
}

// HandleResult is the inbound callback the host invokes with a result
// payload. It returns ErrUnknownRequest when no pending request accepts it.
func (b *Bridge) HandleResult(ctx context.Context, raw []byte) error {
	var result types.ResultEnvelope
	if err := json.Unmarshal(raw, &result); err != nil {
		return errors.Wrap(ErrMalformedResult, err.Error())
	}
	if !b.ready() {
		return errors.Wrapf(ErrUnknownRequest, "id=%q method=%q", result.ID, result.Method)
	}

	req, ok := b.pending.resolve(&result)
	if !ok {
		b.logger.Sugar().Warnw("Dropping host result with no pending request",
			"id", result.ID, "method", result.Method)
		return errors.Wrapf(ErrUnknownRequest, "id=%q method=%q", result.ID, result.Method)
	}

	b.logger.Sugar().Debugw("Settled pending request", "id", req.id, "method", req.method)
	if b.diagnostics {
		b.sendDiagnostic(ctx, &types.DiagnosticMessage{
			Type:   types.DiagnosticLogType(req.method),
			ID:     req.id,
			Result: &result,
		})
	}
	return nil
}

// Close rejects all pending requests with ErrClosed. Later signing calls fail
// with ErrClosed as well.
func (b *Bridge) Close() error {
	if b.pending == nil {
		return nil
	}
	n := b.pending.closeAll(ErrClosed)
	if n > 0 {
		b.logger.Sugar().Infow("Bridge closed with pending requests", "pending", n)
	}
	return nil
}

// roundTrip registers the pending request before sending so that a fast host
// cannot answer before the bridge is listening.
func (b *Bridge) roundTrip(ctx context.Context, id string, method types.Method, request interface{}) (*types.ResultEnvelope, error) {
	req, err := b.pending.register(id, method)
	if err != nil {
		return nil, newRequestError(method, id, err)
	}

	if err := b.send(ctx, request); err != nil {
		b.pending.remove(id)
		return nil, newRequestError(method, id, err)
	}

	select {
	case s := <-req.settled:
		if s.err != nil {
			return nil, newRequestError(method, id, s.err)
		}
		return s.result, nil
	case <-ctx.Done():
		if !b.pending.remove(id) {
			// settled concurrently; prefer the result over the cancellation
			s := <-req.settled
			if s.err != nil {
				return nil, newRequestError(method, id, s.err)
			}
			return s.result, nil
		}
		return nil, newRequestError(method, id, errors.WithMessage(ctx.Err(), "request abandoned"))
	}
}

func (b *Bridge) unimplemented(ctx context.Context, method types.Method, data interface{}) error {
	if b.announceUnimplemented && b.ready() {
		descriptor := &types.Descriptor{
			ID:     b.newID(),
			Method: method,
			Data:   data,
		}
		if err := b.send(ctx, descriptor); err != nil {
			b.logger.Sugar().Warnw("Failed to announce unimplemented method", "method", method, "error", err)
		}
	}
	return newRequestError(method, "", ErrNotImplemented)
}

// describeTransaction encodes tx for an announcement. A transaction that
// cannot be encoded keeps its position as an empty string so the host can
// still line entries up with the caller's slice.
func (b *Bridge) describeTransaction(method types.Method, index int, tx *solana.Transaction) string {
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if tx == nil {
		logger.Sugar().Warnw("Announcing nil transaction as empty", "method", method, "index", index)
		return ""
	}
	raw, err := tx.Serialize()
	if err != nil {
		logger.Sugar().Warnw("Announcing unserializable transaction as empty", "method", method, "index", index, "error", err)
		return ""
	}
	return solana.EncodeBase64(raw)
}

func (b *Bridge) send(ctx context.Context, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(ErrEncodeRequest, err.Error())
	}
	if err := b.outbound.Send(ctx, payload); err != nil {
		return errors.Wrap(ErrSend, err.Error())
	}
	return nil
}

func (b *Bridge) reportResultError(ctx context.Context, id string, result *types.ResultEnvelope) {
	b.logger.Sugar().Warnw("Host result carried no signature", "id", id, "method", result.Method)
	if b.diagnostics {
		b.sendDiagnostic(ctx, &types.DiagnosticMessage{Type: types.DiagnosticTypeError, ID: id, Result: result})
	}
}

func (b *Bridge) reportError(ctx context.Context, id string, cause error) {
	b.logger.Sugar().Warnw("Failed to apply host result", "id", id, "error", cause)
	if b.diagnostics {
		b.sendDiagnostic(ctx, &types.DiagnosticMessage{Type: types.DiagnosticTypeError, ID: id, Error: cause.Error()})
	}
}

func (b *Bridge) sendDiagnostic(ctx context.Context, msg *types.DiagnosticMessage) {
	if err := b.send(ctx, msg); err != nil {
		b.logger.Sugar().Debugw("Failed to send diagnostic", "type", msg.Type, "error", err)
	}
}
