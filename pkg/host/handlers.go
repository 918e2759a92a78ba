package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/persistence"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/solana"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
)

func (h *Host) handleAnnouncement(env *types.Envelope) error {
	record := h.newRecord(env)
	record.Settle(persistence.StatusAnnounced, string(env.Data))
	h.saveRecord(record)

	h.logger.Sugar().Infow("Bridge announcement", "method", env.Method, "id", record.ID)
	return nil
}

func (h *Host) handleSignTransaction(ctx context.Context, env *types.Envelope, raw []byte) error {
	record := h.newRecord(env)
	h.saveRecord(record)

	reply := &types.SignTransactionResult{ID: env.ID, Method: types.MethodSignTransaction}
	refuse := func(status persistence.RequestStatus, reason string) error {
		h.logger.Sugar().Warnw("Refusing transaction", "id", record.ID, "status", status, "reason", reason)
		record.Settle(status, reason)
		h.saveRecord(record)
		return h.respond(ctx, reply)
	}

	var req types.SignTransactionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return refuse(persistence.StatusFailed, fmt.Sprintf("malformed request: %v", err))
	}

	txBytes, err := solana.DecodeBase64(req.TransactionBase64)
	if err != nil {
		return refuse(persistence.StatusFailed, fmt.Sprintf("invalid transaction encoding: %v", err))
	}
	tx, err := solana.TransactionFromBytes(txBytes)
	if err != nil {
		return refuse(persistence.StatusFailed, fmt.Sprintf("invalid transaction: %v", err))
	}
	if req.RecentBlockhash != "" && req.RecentBlockhash != tx.RecentBlockhash() {
		return refuse(persistence.StatusFailed, fmt.Sprintf("recent blockhash mismatch: request %s, transaction %s",
			req.RecentBlockhash, tx.RecentBlockhash()))
	}
	if tx.SignerIndex(h.signer.PublicKey()) < 0 {
		return refuse(persistence.StatusFailed, "wallet is not a required signer")
	}

	message, err := tx.Message.Serialize()
	if err != nil {
		return refuse(persistence.StatusFailed, fmt.Sprintf("failed to serialize message: %v", err))
	}

	if reason, ok := h.authorize(ctx, &ApprovalRequest{
		ID:              record.ID,
		Method:          types.MethodSignTransaction,
		RecentBlockhash: tx.RecentBlockhash(),
		Payload:         message,
	}); !ok {
		return refuse(persistence.StatusDeclined, reason)
	}

	sig, err := h.signer.Sign(ctx, message)
	if err != nil {
		return refuse(persistence.StatusFailed, fmt.Sprintf("signing failed: %v", err))
	}

	reply.SignatureBase64 = solana.EncodeBase64(sig)
	record.Settle(persistence.StatusSigned, reply.SignatureBase64)
	h.saveRecord(record)

	h.logger.Sugar().Infow("Signed transaction",
		"id", record.ID,
		"recentBlockhash", tx.RecentBlockhash(),
		"keyId", h.signer.KeyID(),
	)
	return h.respond(ctx, reply)
}

func (h *Host) handleSignMessage(ctx context.Context, env *types.Envelope, raw []byte) error {
	record := h.newRecord(env)
	h.saveRecord(record)

	reply := &types.SignMessageResult{ID: env.ID, Method: types.MethodSignMessage}
	refuse := func(status persistence.RequestStatus, reason string) error {
		h.logger.Sugar().Warnw("Refusing message", "id", record.ID, "status", status, "reason", reason)
		record.Settle(status, reason)
		h.saveRecord(record)
		return h.respond(ctx, reply)
	}

	var req types.SignMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return refuse(persistence.StatusFailed, fmt.Sprintf("malformed request: %v", err))
	}

	message, err := solana.DecodeBase64(req.MessageBase64)
	if err != nil {
		return refuse(persistence.StatusFailed, fmt.Sprintf("invalid message encoding: %v", err))
	}

	if reason, ok := h.authorize(ctx, &ApprovalRequest{
		ID:      record.ID,
		Method:  types.MethodSignMessage,
		Payload: message,
	}); !ok {
		return refuse(persistence.StatusDeclined, reason)
	}

	sig, err := h.signer.Sign(ctx, message)
	if err != nil {
		return refuse(persistence.StatusFailed, fmt.Sprintf("signing failed: %v", err))
	}

	// base58 on the way back, matching what wallet apps return for signMessage
	reply.Signature = solana.EncodeBase58(sig)
	record.Settle(persistence.StatusSigned, reply.Signature)
	h.saveRecord(record)

	h.logger.Sugar().Infow("Signed message",
		"id", record.ID,
		"messageLength", len(message),
		"keyId", h.signer.KeyID(),
	)
	return h.respond(ctx, reply)
}

// authorize runs the approver then the rate limiter. The limiter is consulted
// last so declined requests don't consume tokens.
func (h *Host) authorize(ctx context.Context, req *ApprovalRequest) (string, bool) {
	if err := h.approver(ctx, req); err != nil {
		return err.Error(), false
	}
	if h.limiter != nil && !h.limiter.Allow() {
		return "rate limited", false
	}
	return "", true
}

func (h *Host) respond(ctx context.Context, reply interface{}) error {
	payload, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	if err := h.responder.Send(ctx, payload); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}
