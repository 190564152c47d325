package lnbridge

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the bridge, store and controller.

var (
	// ErrInvalidMetadata indicates caller-supplied payment metadata that is
	// unparsable or does not conform to the metadata schema.
	ErrInvalidMetadata = errors.New("invalid payment metadata")

	// ErrInvalidRecipient indicates a page-declared recipient missing
	// required fields after parsing.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrUndecodableRequest indicates a payment request the invoice
	// decoder could not decode.
	ErrUndecodableRequest = errors.New("undecodable payment request")

	// ErrBudgetExceeded indicates a debit that would exceed the remaining
	// allowance budget. The record is left unchanged.
	ErrBudgetExceeded = errors.New("allowance budget exceeded")

	// ErrUserRejected indicates the wallet holder explicitly declined an
	// externally-initiated payment request.
	ErrUserRejected = errors.New("user rejected")

	// ErrConnectionClosed indicates the bridge channel closed before a
	// terminal response arrived.
	ErrConnectionClosed = errors.New("bridge connection closed")

	// ErrAlreadyCompleted indicates a second terminal response attempt for
	// a correlation id that already received one.
	ErrAlreadyCompleted = errors.New("correlation id already completed")
)

// Wire error codes carried by BridgeError across the context boundary.
const (
	CodeUserRejected    = "USER_REJECTED"
	CodeBudgetExceeded  = "BUDGET_EXCEEDED"
	CodeInvalidMetadata = "INVALID_METADATA"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeConnection      = "CONNECTION"
	CodeUpstream        = "UPSTREAM"
	CodeInternal        = "INTERNAL"
)

// BridgeError is the wire form of a failure completion. Codes survive the
// context boundary so callers can distinguish an explicit user rejection from
// infrastructure failures.
type BridgeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap maps wire codes back onto the package sentinels so errors.Is works
// on errors that crossed the bridge.
func (e *BridgeError) Unwrap() error {
	switch e.Code {
	case CodeUserRejected:
		return ErrUserRejected
	case CodeBudgetExceeded:
		return ErrBudgetExceeded
	case CodeInvalidMetadata:
		return ErrInvalidMetadata
	case CodeInvalidRequest:
		return ErrUndecodableRequest
	case CodeConnection:
		return ErrConnectionClosed
	default:
		return nil
	}
}

// NewBridgeError builds the wire form of err, classifying known sentinels
// into stable codes.
func NewBridgeError(err error) *BridgeError {
	code := CodeInternal
	switch {
	case errors.Is(err, ErrUserRejected):
		code = CodeUserRejected
	case errors.Is(err, ErrBudgetExceeded):
		code = CodeBudgetExceeded
	case errors.Is(err, ErrInvalidMetadata):
		code = CodeInvalidMetadata
	case errors.Is(err, ErrInvalidRecipient), errors.Is(err, ErrUndecodableRequest):
		code = CodeInvalidRequest
	case errors.Is(err, ErrConnectionClosed):
		code = CodeConnection
	default:
		var up *UpstreamError
		if errors.As(err, &up) {
			code = CodeUpstream
		}
	}
	return &BridgeError{Code: code, Message: err.Error()}
}

// UpstreamError wraps a failure from an external collaborator (invoice
// decoder, LNURL resolver, FX service or payment executor). Upstream failures
// are retryable from the confirmation flow's point of view.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps err with the name of the collaborator it came from.
func NewUpstreamError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Source: source, Err: err}
}
