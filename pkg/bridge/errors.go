package bridge

import (
	"fmt"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/types"
	"github.com/pkg/errors"
)

var (
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrNotImplemented   = errors.New("method not implemented")
	ErrNoSignature      = errors.New("host result carried no signature")
	ErrDecodeSignature  = errors.New("failed to decode signature")
	ErrAttachSignature  = errors.New("failed to attach signature")
	ErrEncodeRequest    = errors.New("failed to encode request")
	ErrSend             = errors.New("failed to send request")
	ErrMalformedResult  = errors.New("malformed host result")
	ErrUnknownRequest   = errors.New("no pending request matches result")
	ErrDuplicateRequest = errors.New("request id already pending")
	ErrClosed           = errors.New("bridge is closed")
)

// RequestError is returned by every failed operation. Err is one of the
// sentinel errors above, possibly wrapped with more detail.
type RequestError struct {
	Method    types.Method
	RequestID string
	Err       error
}

func (e *RequestError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("%s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("%s (request %s): %v", e.Method, e.RequestID, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func newRequestError(method types.Method, requestID string, err error) *RequestError {
	return &RequestError{Method: method, RequestID: requestID, Err: err}
}
