package types

// Method names a wallet operation on the wire.
type Method string

const (
	MethodConnect                Method = "connect"
	MethodDisconnect             Method = "disconnect"
	MethodSignAndSendTransaction Method = "signAndSendTransaction"
	MethodSignTransaction        Method = "signTransaction"
	MethodSignAllTransactions    Method = "signAllTransactions"
	MethodSignMessage            Method = "signMessage"
	MethodSignIn                 Method = "signIn"
	MethodOn                     Method = "on"
	MethodOff                    Method = "off"
)

func (m Method) String() string {
	return string(m)
}

// IsResultBearing reports whether the host answers this method through the
// inbound callback.
func (m Method) IsResultBearing() bool {
	return m == MethodSignTransaction || m == MethodSignMessage
}

// ConnectOptions mirrors the wallet-standard connect input.
type ConnectOptions struct {
	OnlyIfTrusted bool `json:"onlyIfTrusted,omitempty"`
}

// SendOptions mirrors the RPC send options forwarded with signAndSendTransaction.
type SendOptions struct {
	SkipPreflight       bool    `json:"skipPreflight,omitempty"`
	PreflightCommitment string  `json:"preflightCommitment,omitempty"`
	MaxRetries          *uint   `json:"maxRetries,omitempty"`
	MinContextSlot      *uint64 `json:"minContextSlot,omitempty"`
}

// SignInInput carries the sign-in-with-solana fields a dapp may request.
type SignInInput struct {
	Domain         string   `json:"domain,omitempty"`
	Address        string   `json:"address,omitempty"`
	Statement      string   `json:"statement,omitempty"`
	URI            string   `json:"uri,omitempty"`
	Version        string   `json:"version,omitempty"`
	ChainID        string   `json:"chainId,omitempty"`
	Nonce          string   `json:"nonce,omitempty"`
	IssuedAt       string   `json:"issuedAt,omitempty"`
	ExpirationTime string   `json:"expirationTime,omitempty"`
	NotBefore      string   `json:"notBefore,omitempty"`
	RequestID      string   `json:"requestId,omitempty"`
	Resources      []string `json:"resources,omitempty"`
}

// Event names a wallet event a dapp may subscribe to.
type Event string

const (
	EventConnect        Event = "connect"
	EventDisconnect     Event = "disconnect"
	EventAccountChanged Event = "accountChanged"
)

// SignInOutput is what a completed sign-in would return.
type SignInOutput struct {
	Account       string `json:"account"`
	SignedMessage []byte `json:"signedMessage"`
	Signature     []byte `json:"signature"`
}

// EventListener receives wallet events.
type EventListener func(event Event, payload interface{})
