package coupons

import (
	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
)

// Discount is what c takes off subtotal: zero below the minimum purchase, otherwise the flat value
// or the percentage of subtotal, capped by MaxDiscount when set and never more than subtotal.
func Discount(c domain.Coupon, subtotal float64) float64 {
	if subtotal < c.MinPurchaseAmount {
		return 0
	}
	var d float64
	switch c.DiscountType {
	case domain.DiscountPercentage:
		d = money.Percent(subtotal, c.DiscountValue)
		if c.MaxDiscount > 0 && d > c.MaxDiscount {
			d = c.MaxDiscount
		}
	default:
		d = money.Round2(c.DiscountValue)
	}
	if d > subtotal {
		d = subtotal
	}
	return d
}

// TotalDiscount sums the discount of every coupon against the same subtotal, clamped to subtotal.
func TotalDiscount(coupons []domain.Coupon, subtotal float64) float64 {
	amounts := make([]float64, 0, len(coupons))
	for _, c := range coupons {
		amounts = append(amounts, Discount(c, subtotal))
	}
	total := money.Sum(amounts...)
	if total > subtotal {
		return subtotal
	}
	return total
}

// Snapshot freezes c's terms and its discount for an order.
func Snapshot(c domain.Coupon, subtotal float64) domain.AppliedCoupon {
	return domain.AppliedCoupon{
		Code:              c.Code,
		DiscountType:      c.DiscountType,
		DiscountValue:     c.DiscountValue,
		MaxDiscount:       c.MaxDiscount,
		MinPurchaseAmount: c.MinPurchaseAmount,
		DiscountAmount:    Discount(c, subtotal),
	}
}
