package domain

import "testing"

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range OrderStatuses() {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if OrderStatus("lost").Valid() {
		t.Fatalf("unknown status reported valid")
	}
	if len(OrderStatuses()) != 10 {
		t.Fatalf("expected 10 statuses, got %d", len(OrderStatuses()))
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	for _, s := range OrderStatuses() {
		want := s == StatusCancelled || s == StatusReturned
		if s.Terminal() != want {
			t.Fatalf("%s: terminal=%v", s, s.Terminal())
		}
	}
}

func TestReference_ID(t *testing.T) {
	tests := []struct {
		ref  Reference
		want string
	}{
		{OrderReference("o1"), "o1"},
		{ReturnRequestReference("o1", "r1"), "o1"},
		{ReferralReference("u2"), "u2"},
		{Reference{}, ""},
	}
	for _, tt := range tests {
		if got := tt.ref.ID(); got != tt.want {
			t.Fatalf("%+v: expected %q, got %q", tt.ref, tt.want, got)
		}
	}
	if r := ReturnRequestReference("o1", "r1"); r.RequestID != "r1" || r.Type != RefReturnRequest {
		t.Fatalf("unexpected reference %+v", r)
	}
}

func TestPaymentMethod_Valid(t *testing.T) {
	if !PaymentCOD.Valid() || !PaymentRazorpay.Valid() || PaymentMethod("cash").Valid() {
		t.Fatalf("unexpected payment method validity")
	}
}
