package types

import "encoding/json"

// Descriptor is the generic outbound message: {method, data?}.
type Descriptor struct {
	ID     string      `json:"id,omitempty"`
	Method Method      `json:"method"`
	Data   interface{} `json:"data,omitempty"`
}

// SignTransactionRequest is the flat outbound shape for signTransaction.
type SignTransactionRequest struct {
	ID                string `json:"id"`
	Method            Method `json:"method"`
	RecentBlockhash   string `json:"recentBlockhash,omitempty"`
	TransactionBase64 string `json:"transactionBase64"`
}

// SignMessageRequest is the flat outbound shape for signMessage.
type SignMessageRequest struct {
	ID            string `json:"id"`
	Method        Method `json:"method"`
	MessageBase64 string `json:"messageBase64"`
}

// SignTransactionResult is delivered by the host for signTransaction.
// SignatureBase64 is standard padded base64.
type SignTransactionResult struct {
	ID              string `json:"id,omitempty"`
	Method          Method `json:"method,omitempty"`
	SignatureBase64 string `json:"signatureBase64,omitempty"`
}

// SignMessageResult is delivered by the host for signMessage.
// Signature is base58, unlike the base64 used for the outbound message.
type SignMessageResult struct {
	ID        string `json:"id,omitempty"`
	Method    Method `json:"method,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// ResultEnvelope is the union of every inbound result shape. ID and Method are
// optional; hosts that predate correlation ids send neither.
type ResultEnvelope struct {
	ID              string `json:"id,omitempty"`
	Method          Method `json:"method,omitempty"`
	SignatureBase64 string `json:"signatureBase64,omitempty"`
	Signature       string `json:"signature,omitempty"`
}

// Envelope peeks at the routing fields of any outbound message.
type Envelope struct {
	ID     string          `json:"id,omitempty"`
	Method Method          `json:"method,omitempty"`
	Type   string          `json:"type,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// DiagnosticMessage is echoed to the host for logging only; it never carries
// a method and the host never answers it.
type DiagnosticMessage struct {
	Type   string      `json:"type"`
	ID     string      `json:"id,omitempty"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

const DiagnosticTypeError = "error"

// DiagnosticLogType is the type tag for the echo of a received result.
func DiagnosticLogType(m Method) string {
	return "log " + string(m)
}

type ConnectData struct {
	Options *ConnectOptions `json:"options,omitempty"`
}

type SignAndSendTransactionData struct {
	Options     *SendOptions `json:"options,omitempty"`
	Transaction string       `json:"transaction"`
}

type SignAllTransactionsData struct {
	Transactions []string `json:"transactions"`
}

type EventData struct {
	Event Event `json:"event"`
}
