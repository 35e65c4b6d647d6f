package domain

import (
	"errors"
	"fmt"
)

// Kind groups error codes into the categories callers react to.
type Kind string

const (
	KindValidation Kind = "validation"
	KindMismatch   Kind = "mismatch"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindExternal   Kind = "external"
	KindInternal   Kind = "internal"
)

// Code identifies a specific failure.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeInvalidQuantity    Code = "invalid_quantity"
	CodeInvalidAmount      Code = "invalid_amount"
	CodeDuplicateCoupon    Code = "duplicate_coupon"
	CodeProductUnavailable Code = "product_unavailable"

	CodeSubtotalMismatch Code = "subtotal_mismatch"
	CodeDiscountMismatch Code = "discount_mismatch"
	CodeTotalMismatch    Code = "total_mismatch"
	CodeFinalMismatch    Code = "final_amount_mismatch"
	CodePriceMismatch    Code = "price_mismatch"

	CodeProductNotFound  Code = "product_not_found"
	CodeCategoryNotFound Code = "category_not_found"
	CodeCouponNotFound   Code = "coupon_not_found"
	CodeOrderNotFound    Code = "order_not_found"
	CodeReturnNotFound   Code = "return_request_not_found"
	CodeCartItemNotFound Code = "cart_item_not_found"

	CodeCouponExpired           Code = "coupon_expired"
	CodeMinPurchaseNotMet       Code = "min_purchase_not_met"
	CodeInvalidCoupon           Code = "invalid_coupon"
	CodeInsufficientStock       Code = "insufficient_stock"
	CodeInvalidStatusTransition Code = "invalid_status_transition"
	CodeNotCancellable          Code = "order_not_cancellable"
	CodeCancellationWindow      Code = "cancellation_window_closed"
	CodeNotReturnable           Code = "order_not_returnable"
	CodeReturnWindowClosed      Code = "return_window_closed"
	CodeProductNotReturnable    Code = "product_not_returnable"
	CodeReturnNotPending        Code = "return_request_not_pending"
	CodeDuplicateName           Code = "duplicate_name"
	CodeDuplicateReferral       Code = "duplicate_referral"
	CodeIdempotencyConflict     Code = "idempotency_key_conflict"
	CodeConcurrentModification  Code = "concurrent_modification"
	CodeOTPInvalid              Code = "otp_invalid"

	CodeGatewayFailure   Code = "payment_gateway_failure"
	CodeInvalidSignature Code = "invalid_signature"

	CodeInternal Code = "internal_error"
)

var codeKinds = map[Code]Kind{
	CodeInvalidInput:       KindValidation,
	CodeInvalidQuantity:    KindValidation,
	CodeInvalidAmount:      KindValidation,
	CodeDuplicateCoupon:    KindValidation,
	CodeProductUnavailable: KindValidation,

	CodeSubtotalMismatch: KindMismatch,
	CodeDiscountMismatch: KindMismatch,
	CodeTotalMismatch:    KindMismatch,
	CodeFinalMismatch:    KindMismatch,
	CodePriceMismatch:    KindMismatch,

	CodeProductNotFound:  KindNotFound,
	CodeCategoryNotFound: KindNotFound,
	CodeCouponNotFound:   KindNotFound,
	CodeOrderNotFound:    KindNotFound,
	CodeReturnNotFound:   KindNotFound,
	CodeCartItemNotFound: KindNotFound,

	CodeCouponExpired:           KindConflict,
	CodeMinPurchaseNotMet:       KindConflict,
	CodeInvalidCoupon:           KindConflict,
	CodeInsufficientStock:       KindConflict,
	CodeInvalidStatusTransition: KindConflict,
	CodeNotCancellable:          KindConflict,
	CodeCancellationWindow:      KindConflict,
	CodeNotReturnable:           KindConflict,
	CodeReturnWindowClosed:      KindConflict,
	CodeProductNotReturnable:    KindConflict,
	CodeReturnNotPending:        KindConflict,
	CodeDuplicateName:           KindConflict,
	CodeDuplicateReferral:       KindConflict,
	CodeIdempotencyConflict:     KindConflict,
	CodeConcurrentModification:  KindConflict,
	CodeOTPInvalid:              KindConflict,

	CodeGatewayFailure:   KindExternal,
	CodeInvalidSignature: KindExternal,

	CodeInternal: KindInternal,
}

// Error is the typed error returned by every workflow.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

// NewError builds an Error for code, deriving its kind.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Kind: kindOf(code), Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error for code that keeps cause in the chain.
func WrapError(code Code, cause error, format string, args ...any) *Error {
	e := NewError(code, format, args...)
	e.Err = cause
	return e
}

func kindOf(code Code) Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindInternal
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidStatusTransition = &Error{Kind: KindConflict, Code: CodeInvalidStatusTransition}
	ErrInsufficientStock       = &Error{Kind: KindConflict, Code: CodeInsufficientStock}
	ErrCouponNotFound          = &Error{Kind: KindNotFound, Code: CodeCouponNotFound}
	ErrCouponExpired           = &Error{Kind: KindConflict, Code: CodeCouponExpired}
	ErrMinPurchaseNotMet       = &Error{Kind: KindConflict, Code: CodeMinPurchaseNotMet}
	ErrInvalidSignature        = &Error{Kind: KindExternal, Code: CodeInvalidSignature}
	ErrOrderNotFound           = &Error{Kind: KindNotFound, Code: CodeOrderNotFound}
	ErrProductNotFound         = &Error{Kind: KindNotFound, Code: CodeProductNotFound}
	ErrConcurrentModification  = &Error{Kind: KindConflict, Code: CodeConcurrentModification}
)

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
