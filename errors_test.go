package lnbridge

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewBridgeError_CodeClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"user rejected", ErrUserRejected, CodeUserRejected},
		{"budget exceeded", ErrBudgetExceeded, CodeBudgetExceeded},
		{"invalid metadata", ErrInvalidMetadata, CodeInvalidMetadata},
		{"invalid recipient", ErrInvalidRecipient, CodeInvalidRequest},
		{"undecodable", ErrUndecodableRequest, CodeInvalidRequest},
		{"connection", ErrConnectionClosed, CodeConnection},
		{"wrapped sentinel", fmt.Errorf("context: %w", ErrBudgetExceeded), CodeBudgetExceeded},
		{"upstream", NewUpstreamError("executor", errors.New("boom")), CodeUpstream},
		{"unknown", errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := NewBridgeError(tt.err)
			if be.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, be.Code)
			}
		})
	}
}

func TestBridgeError_UnwrapRoundTrip(t *testing.T) {
	be := NewBridgeError(ErrUserRejected)
	if !errors.Is(be, ErrUserRejected) {
		t.Error("expected errors.Is to recover ErrUserRejected from wire form")
	}

	be = NewBridgeError(ErrBudgetExceeded)
	if !errors.Is(be, ErrBudgetExceeded) {
		t.Error("expected errors.Is to recover ErrBudgetExceeded from wire form")
	}
}

func TestUpstreamError_Unwrap(t *testing.T) {
	cause := errors.New("route not found")
	err := NewUpstreamError("executor", cause)

	if !errors.Is(err, cause) {
		t.Error("expected upstream error to unwrap its cause")
	}

	var up *UpstreamError
	if !errors.As(err, &up) || up.Source != "executor" {
		t.Errorf("expected UpstreamError with source executor, got %v", err)
	}
}

func TestNewUpstreamError_NilPassthrough(t *testing.T) {
	if err := NewUpstreamError("fx", nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
