package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/persistence"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/signer"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/solana"
	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Approver decides whether a signing request may proceed. A non-nil error
// declines the request; its message is journaled as the reason.
type Approver func(ctx context.Context, request *ApprovalRequest) error

// ApprovalRequest describes what the wallet is about to sign.
type ApprovalRequest struct {
	ID              string
	Method          types.Method
	RecentBlockhash string
	Payload         []byte
}

// AutoApprove accepts every request.
func AutoApprove(ctx context.Context, request *ApprovalRequest) error {
	return nil
}

// DenyAll declines every request.
func DenyAll(ctx context.Context, request *ApprovalRequest) error {
	return fmt.Errorf("declined by user")
}

// LoggingApprover logs what is about to be signed, then defers to next.
// Transaction payloads are decoded so the log names the fee payer and
// instruction count.
func LoggingApprover(logger *zap.Logger, next Approver) Approver {
	return func(ctx context.Context, request *ApprovalRequest) error {
		fields := []interface{}{"id", request.ID, "method", request.Method, "payloadLength", len(request.Payload)}
		if request.Method == types.MethodSignTransaction {
			if msg, err := solana.MessageFromBytes(request.Payload); err == nil && len(msg.AccountKeys) > 0 {
				fields = append(fields,
					"feePayer", msg.AccountKeys[0].String(),
					"instructions", len(msg.Instructions),
					"recentBlockhash", request.RecentBlockhash,
				)
			}
		}
		err := next(ctx, request)
		fields = append(fields, "approved", err == nil)
		logger.Sugar().Infow("Signing request reviewed", fields...)
		return err
	}
}

/*
Host is the application side of the bridge. It receives requests from the
outbound channel, signs with its wallet key and answers through responder.

	connect, disconnect, signAndSendTransaction, signAllTransactions,
	signIn, on, off:
	  - journaled as announced, never answered
	signTransaction:
	  - decode base64 transaction, check blockhash and signer slot
	  - approve, pace, sign the message bytes
	  - answer {id, method, signatureBase64}
	signMessage:
	  - decode base64 message, approve, pace, sign
	  - answer {id, method, signature} with a base58 signature
	diagnostics ({type, ...} without a method):
	  - logged only

Any refused signing request is answered without a signature so the bridge
fails the waiting caller instead of hanging. A signing request whose id was
already settled gets the journaled answer again and is not re-approved; one
still in flight is dropped.
*/
type Host struct {
	signer    signer.ISigner
	responder channel.IOutbound
	journal   persistence.IJournal
	logger    *zap.Logger

	approver Approver
	limiter  *rate.Limiter

	startTime int64

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

type Option func(*Host)

func WithApprover(approver Approver) Option {
	return func(h *Host) {
		h.approver = approver
	}
}

// WithSignRateLimit caps signatures per second. Requests over the limit are
// declined, not queued. Zero disables pacing.
func WithSignRateLimit(perSecond float64, burst int) Option {
	return func(h *Host) {
		if perSecond <= 0 {
			h.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewHost creates a host and records its start in the journal. A journal
// written for a different wallet key is refused.
func NewHost(s signer.ISigner, responder channel.IOutbound, journal persistence.IJournal, logger *zap.Logger, opts ...Option) (*Host, error) {
	if s == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if responder == nil {
		return nil, fmt.Errorf("responder is required")
	}
	if journal == nil {
		return nil, fmt.Errorf("journal is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Host{
		signer:    s,
		responder: responder,
		journal:   journal,
		logger:    logger,
		approver:  AutoApprove,
		startTime: time.Now().Unix(),
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.restoreState(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Host) restoreState() error {
	wallet := h.signer.PublicKey().String()

	state, err := h.journal.LoadHostState()
	if err != nil {
		return fmt.Errorf("failed to load host state: %w", err)
	}
	if state != nil && state.PublicKey != wallet {
		return fmt.Errorf("journal belongs to wallet %s, host key is %s", state.PublicKey, wallet)
	}
	if state != nil {
		h.logger.Sugar().Infow("Resuming journal",
			"wallet", wallet,
			"lastStart", state.HostStartTime,
		)
	}

	return h.journal.SaveHostState(&persistence.HostState{
		PublicKey:     wallet,
		HostStartTime: h.startTime,
	})
}

// PublicKey returns the wallet key the host signs with.
func (h *Host) PublicKey() string {
	return h.signer.PublicKey().String()
}

// Requests returns the journal in arrival order.
func (h *Host) Requests() ([]*persistence.RequestRecord, error) {
	return h.journal.ListRequests()
}

// HandleMessage is the channel.Handler for bridge requests.
func (h *Host) HandleMessage(ctx context.Context, raw []byte) error {
	var env types.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed bridge message: %w", err)
	}

	if env.Method == "" {
		if env.Type == "" {
			return fmt.Errorf("bridge message has neither method nor type")
		}
		h.logger.Sugar().Debugw("Bridge diagnostic", "type", env.Type, "id", env.ID, "message", string(raw))
		return nil
	}

	if env.Method.IsResultBearing() {
		replayed, err := h.claim(ctx, &env)
		if replayed || err != nil {
			return err
		}
		defer h.release(env.ID)
	}

	switch env.Method {
	case types.MethodSignTransaction:
		return h.handleSignTransaction(ctx, &env, raw)
	case types.MethodSignMessage:
		return h.handleSignMessage(ctx, &env, raw)
	case types.MethodConnect, types.MethodDisconnect,
		types.MethodSignAndSendTransaction, types.MethodSignAllTransactions,
		types.MethodSignIn, types.MethodOn, types.MethodOff:
		return h.handleAnnouncement(&env)
	default:
		h.logger.Sugar().Warnw("Unknown bridge method", "method", env.Method, "id", env.ID)
		return fmt.Errorf("unknown method %q", env.Method)
	}
}

func (h *Host) newRecord(env *types.Envelope) *persistence.RequestRecord {
	id := env.ID
	if id == "" {
		id = "local-" + uuid.New().String()
	}
	return &persistence.RequestRecord{
		ID:         id,
		Method:     env.Method,
		PublicKey:  h.PublicKey(),
		Status:     persistence.StatusReceived,
		ReceivedAt: time.Now().UnixMilli(),
	}
}

func (h *Host) saveRecord(record *persistence.RequestRecord) {
	if err := h.journal.SaveRequest(record); err != nil {
		h.logger.Sugar().Errorw("Failed to journal request",
			"id", record.ID,
			"method", record.Method,
			"status", record.Status,
			"error", err,
		)
	}
}

// claim marks a signing request as in flight. It returns true when the id was
// already seen: a settled request is answered again from the journal, an
// in-flight one is dropped. Requests without an id are never deduplicated.
func (h *Host) claim(ctx context.Context, env *types.Envelope) (bool, error) {
	if env.ID == "" {
		return false, nil
	}

	h.inflightMu.Lock()
	if _, ok := h.inflight[env.ID]; ok {
		h.inflightMu.Unlock()
		h.logger.Sugar().Infow("Dropping duplicate request", "id", env.ID, "method", env.Method)
		return true, nil
	}
	record, err := h.journal.LoadRequest(env.ID)
	if err != nil {
		h.logger.Sugar().Warnw("Failed to look up request", "id", env.ID, "error", err)
	}
	if record != nil && record.Method == env.Method && record.Status.IsFinal() {
		h.inflightMu.Unlock()
		h.logger.Sugar().Infow("Replaying settled request", "id", env.ID, "method", env.Method, "status", record.Status)
		return true, h.respond(ctx, replyFromRecord(record))
	}
	h.inflight[env.ID] = struct{}{}
	h.inflightMu.Unlock()
	return false, nil
}

func (h *Host) release(id string) {
	if id == "" {
		return
	}
	h.inflightMu.Lock()
	delete(h.inflight, id)
	h.inflightMu.Unlock()
}

// replyFromRecord rebuilds the answer a settled signing request was given.
func replyFromRecord(record *persistence.RequestRecord) interface{} {
	var signature string
	if record.Status == persistence.StatusSigned {
		signature = record.Detail
	}
	if record.Method == types.MethodSignMessage {
		return &types.SignMessageResult{ID: record.ID, Method: record.Method, Signature: signature}
	}
	return &types.SignTransactionResult{ID: record.ID, Method: record.Method, SignatureBase64: signature}
}
