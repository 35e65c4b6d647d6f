package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewError_DerivesKind(t *testing.T) {
	tests := []struct {
		code Code
		want Kind
	}{
		{CodeInvalidQuantity, KindValidation},
		{CodeFinalMismatch, KindMismatch},
		{CodeOrderNotFound, KindNotFound},
		{CodeCancellationWindow, KindConflict},
		{CodeGatewayFailure, KindExternal},
		{Code("something_new"), KindInternal},
	}
	for _, tt := range tests {
		if got := NewError(tt.code, "x").Kind; got != tt.want {
			t.Fatalf("%s: expected kind %s, got %s", tt.code, tt.want, got)
		}
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("place order: %w", NewError(CodeInsufficientStock, "product %s", "p1"))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected wrapped error to match sentinel")
	}
	if errors.Is(err, ErrCouponExpired) {
		t.Fatalf("different codes must not match")
	}
	if KindOf(err) != KindConflict || CodeOf(err) != CodeInsufficientStock {
		t.Fatalf("unexpected kind/code %s/%s", KindOf(err), CodeOf(err))
	}
}

func TestWrapError_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(CodeGatewayFailure, cause, "create gateway order")
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost from chain")
	}
	if err.Error() != "payment_gateway_failure: create gateway order: connection reset" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKindOf_UntypedIsInternal(t *testing.T) {
	err := errors.New("boom")
	if KindOf(err) != KindInternal || CodeOf(err) != CodeInternal {
		t.Fatalf("untyped errors must be internal")
	}
	if ErrOrderNotFound.Error() != "order_not_found" {
		t.Fatalf("sentinel without message should print its code, got %q", ErrOrderNotFound.Error())
	}
}
