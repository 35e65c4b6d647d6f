// Package coupons validates and prices cart-level coupons.
package coupons

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store"
)

// Service is the coupon engine.
type Service struct {
	store   *store.Store
	log     *zap.Logger
	nowFunc func() time.Time
}

// NewService returns a coupon Service.
func NewService(s *store.Store, log *zap.Logger) *Service {
	return &Service{store: s, log: log, nowFunc: time.Now}
}

// Quote is the outcome of applying a coupon to a subtotal.
type Quote struct {
	Coupon         domain.Coupon `json:"coupon"`
	DiscountAmount float64       `json:"discount_amount"`
	Payable        float64       `json:"payable"`
}

// NormalizeCode canonicalizes a user-typed coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Apply checks code against subtotal. Missing or inactive coupons are not found, coupons outside
// their window are expired, and subtotals below the minimum fail with min_purchase_not_met.
func (s *Service) Apply(ctx context.Context, code string, subtotal float64) (*Quote, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "coupon code is required")
	}
	if subtotal < 0 {
		return nil, domain.NewError(domain.CodeInvalidAmount, "subtotal cannot be negative")
	}

	c, err := s.store.GetCoupon(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil || !c.IsActive {
		return nil, domain.NewError(domain.CodeCouponNotFound, "coupon %s not found", code)
	}
	if !c.InWindow(s.nowFunc()) {
		return nil, domain.NewError(domain.CodeCouponExpired, "coupon %s is not valid at this time", code)
	}
	if subtotal < c.MinPurchaseAmount {
		return nil, domain.NewError(domain.CodeMinPurchaseNotMet,
			"coupon %s needs a minimum purchase of %.2f", code, c.MinPurchaseAmount)
	}

	d := Discount(*c, subtotal)
	return &Quote{Coupon: *c, DiscountAmount: d, Payable: money.Sub(subtotal, d)}, nil
}

// Eligible lists active, in-window coupons whose minimum purchase is met by subtotal, ordered by
// code. Picking one is left to the caller.
func (s *Service) Eligible(ctx context.Context, subtotal float64) ([]domain.Coupon, error) {
	all, err := s.store.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}
	now := s.nowFunc()
	out := make([]domain.Coupon, 0, len(all))
	for _, c := range all {
		if c.IsActive && c.InWindow(now) && c.MinPurchaseAmount <= subtotal {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ValidForOrder loads every code and requires all of them to be active and in window. A single
// invalid code rejects the set.
func (s *Service) ValidForOrder(ctx context.Context, codes []string) ([]domain.Coupon, error) {
	seen := make(map[string]bool, len(codes))
	now := s.nowFunc()
	valid := make([]domain.Coupon, 0, len(codes))
	for _, raw := range codes {
		code := NormalizeCode(raw)
		if seen[code] {
			return nil, domain.NewError(domain.CodeDuplicateCoupon, "coupon %s applied more than once", code)
		}
		seen[code] = true

		c, err := s.store.GetCoupon(ctx, code)
		if err != nil {
			return nil, err
		}
		if c == nil || !c.IsActive || !c.InWindow(now) {
			continue
		}
		valid = append(valid, *c)
	}
	if len(valid) != len(codes) {
		return nil, domain.NewError(domain.CodeInvalidCoupon,
			"%d of %d coupons are no longer valid", len(codes)-len(valid), len(codes))
	}
	return valid, nil
}

// CouponInput carries the fields of a new coupon.
type CouponInput struct {
	Code              string
	Description       string
	DiscountType      domain.DiscountType
	DiscountValue     float64
	MaxDiscount       float64
	MinPurchaseAmount float64
	StartDate         time.Time
	EndDate           time.Time
	IsActive          bool
}

// Create adds a coupon. Codes are stored upper-case and must be unique.
func (s *Service) Create(ctx context.Context, in CouponInput) (*domain.Coupon, error) {
	code := NormalizeCode(in.Code)
	switch {
	case code == "":
		return nil, domain.NewError(domain.CodeInvalidInput, "code is required")
	case in.DiscountType != domain.DiscountFlat && in.DiscountType != domain.DiscountPercentage:
		return nil, domain.NewError(domain.CodeInvalidInput, "unknown discount type %q", in.DiscountType)
	case in.DiscountValue <= 0:
		return nil, domain.NewError(domain.CodeInvalidAmount, "discount value must be positive")
	case in.DiscountType == domain.DiscountPercentage && in.DiscountValue >= 100:
		return nil, domain.NewError(domain.CodeInvalidAmount, "percentage must be below 100")
	case in.MinPurchaseAmount < 0 || in.MaxDiscount < 0:
		return nil, domain.NewError(domain.CodeInvalidAmount, "amounts cannot be negative")
	case !in.EndDate.After(in.StartDate):
		return nil, domain.NewError(domain.CodeInvalidInput, "end date must be after start date")
	}

	c := domain.Coupon{
		Code:              code,
		Description:       in.Description,
		DiscountType:      in.DiscountType,
		DiscountValue:     in.DiscountValue,
		MaxDiscount:       in.MaxDiscount,
		MinPurchaseAmount: in.MinPurchaseAmount,
		StartDate:         in.StartDate.UTC(),
		EndDate:           in.EndDate.UTC(),
		IsActive:          in.IsActive,
		CreatedAt:         s.nowFunc().UTC(),
	}
	if err := s.store.CreateCoupon(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("coupon created", zap.String("code", c.Code), zap.String("type", string(c.DiscountType)))
	return &c, nil
}
