package coupons

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/config"
	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store/dynamotest"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, coupons ...domain.Coupon) *Service {
	t.Helper()
	tables := config.DefaultTables()
	db := dynamotest.New(store.KeySchema(tables))
	for _, c := range coupons {
		if err := db.Put(tables.Coupons, c); err != nil {
			t.Fatalf("seed coupon: %v", err)
		}
	}
	svc := NewService(store.New(db, tables), zap.NewNop())
	svc.nowFunc = func() time.Time { return now }
	return svc
}

func flat(code string, value, minPurchase float64) domain.Coupon {
	return domain.Coupon{
		Code:              code,
		DiscountType:      domain.DiscountFlat,
		DiscountValue:     value,
		MinPurchaseAmount: minPurchase,
		StartDate:         now.Add(-time.Hour),
		EndDate:           now.Add(time.Hour),
		IsActive:          true,
	}
}

func TestApply_MinPurchaseNotMet(t *testing.T) {
	svc := newTestService(t, flat("FLAT100", 100, 500))

	_, err := svc.Apply(context.Background(), "FLAT100", 400)
	if !errors.Is(err, domain.ErrMinPurchaseNotMet) {
		t.Fatalf("expected MinPurchaseNotMet, got %v", err)
	}

	q, err := svc.Apply(context.Background(), "flat100 ", 500)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if q.DiscountAmount != 100 || q.Payable != 400 {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestApply_NotFoundAndExpired(t *testing.T) {
	inactive := flat("OFF", 10, 0)
	inactive.IsActive = false
	expired := flat("OLD", 10, 0)
	expired.EndDate = now.Add(-time.Second)
	svc := newTestService(t, inactive, expired)
	ctx := context.Background()

	if _, err := svc.Apply(ctx, "NOPE", 100); !errors.Is(err, domain.ErrCouponNotFound) {
		t.Fatalf("missing coupon: expected not found, got %v", err)
	}
	if _, err := svc.Apply(ctx, "OFF", 100); !errors.Is(err, domain.ErrCouponNotFound) {
		t.Fatalf("inactive coupon: expected not found, got %v", err)
	}
	if _, err := svc.Apply(ctx, "OLD", 100); !errors.Is(err, domain.ErrCouponExpired) {
		t.Fatalf("expired coupon: expected expired, got %v", err)
	}
}

func TestEligible(t *testing.T) {
	inactive := flat("INACTIVE", 10, 0)
	inactive.IsActive = false
	svc := newTestService(t, flat("B200", 20, 200), flat("A100", 10, 100), flat("C900", 90, 900), inactive)

	got, err := svc.Eligible(context.Background(), 250)
	if err != nil {
		t.Fatalf("Eligible: %v", err)
	}
	if len(got) != 2 || got[0].Code != "A100" || got[1].Code != "B200" {
		t.Fatalf("unexpected eligible coupons %+v", got)
	}
}

func TestValidForOrder(t *testing.T) {
	expired := flat("OLD", 10, 0)
	expired.StartDate = now.Add(-48 * time.Hour)
	expired.EndDate = now.Add(-24 * time.Hour)
	svc := newTestService(t, flat("A", 10, 0), flat("B", 20, 0), expired)
	ctx := context.Background()

	got, err := svc.ValidForOrder(ctx, []string{"A", "b"})
	if err != nil || len(got) != 2 {
		t.Fatalf("expected both coupons valid, got %v %v", got, err)
	}
	if _, err := svc.ValidForOrder(ctx, []string{"A", "OLD"}); domain.CodeOf(err) != domain.CodeInvalidCoupon {
		t.Fatalf("partial validity must be rejected, got %v", err)
	}
	if _, err := svc.ValidForOrder(ctx, []string{"A", "a"}); domain.CodeOf(err) != domain.CodeDuplicateCoupon {
		t.Fatalf("expected duplicate_coupon, got %v", err)
	}
}

func TestDiscount(t *testing.T) {
	pct := domain.Coupon{DiscountType: domain.DiscountPercentage, DiscountValue: 10, MinPurchaseAmount: 100}
	if got := Discount(pct, 99.99); got != 0 {
		t.Fatalf("below minimum: got %v, want 0", got)
	}
	if got := Discount(pct, 1234.5); got != 123.45 {
		t.Fatalf("percentage: got %v, want 123.45", got)
	}
	pct.MaxDiscount = 50
	if got := Discount(pct, 1234.5); got != 50 {
		t.Fatalf("capped percentage: got %v, want 50", got)
	}
	big := domain.Coupon{DiscountType: domain.DiscountFlat, DiscountValue: 300}
	if got := Discount(big, 120); got != 120 {
		t.Fatalf("flat over subtotal: got %v, want 120", got)
	}

	total := TotalDiscount([]domain.Coupon{big, {DiscountType: domain.DiscountFlat, DiscountValue: 50}}, 200)
	if total != 200 {
		t.Fatalf("total discount must clamp to subtotal, got %v", total)
	}
}

func TestCreate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	in := CouponInput{
		Code:          " welcome ",
		DiscountType:  domain.DiscountFlat,
		DiscountValue: 50,
		StartDate:     now,
		EndDate:       now.Add(24 * time.Hour),
		IsActive:      true,
	}
	c, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Code != "WELCOME" {
		t.Fatalf("code not normalized: %q", c.Code)
	}
	if _, err := svc.Create(ctx, in); domain.CodeOf(err) != domain.CodeDuplicateName {
		t.Fatalf("expected duplicate_name, got %v", err)
	}

	bad := in
	bad.Code = "PCT"
	bad.DiscountType = domain.DiscountPercentage
	bad.DiscountValue = 120
	if _, err := svc.Create(ctx, bad); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
