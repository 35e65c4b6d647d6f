package validation

import (
	"fmt"
	"math"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a validator with the struct-level rules for the request DTOs registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterStructValidation(placeOrderStructValidation, PlaceOrderRequest{})
	v.RegisterStructValidation(offerStructValidation, OfferRequest{})
	v.RegisterStructValidation(couponStructValidation, CouponRequest{})

	return v
}

// placeOrderStructValidation rejects duplicate products and totals that cannot be consistent
// with each other. Whether they match the server's figures is checked by the order service.
func placeOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(PlaceOrderRequest)

	seen := make(map[string]bool, len(req.Products))
	for _, p := range req.Products {
		if seen[p.ProductID] {
			sl.ReportError(req.Products, "products", "Products", "unique_product", p.ProductID)
			return
		}
		seen[p.ProductID] = true
	}

	if cents(req.DiscountAmount) > cents(req.TotalAmount) {
		sl.ReportError(req.DiscountAmount, "discount_amount", "DiscountAmount", "lte_total",
			fmt.Sprintf("discount %.2f exceeds total %.2f", req.DiscountAmount, req.TotalAmount))
	}
}

func offerStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(OfferRequest)

	if len(req.ProductIDs) == 0 && len(req.CategoryIDs) == 0 {
		sl.ReportError(req.ProductIDs, "product_ids", "ProductIDs", "offer_target", "")
	}
	if !req.EndDate.After(req.StartDate) {
		sl.ReportError(req.EndDate, "end_date", "EndDate", "after_start", "")
	}
}

func couponStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CouponRequest)

	if req.DiscountType == "percentage" && req.DiscountValue > 100 {
		sl.ReportError(req.DiscountValue, "discount_value", "DiscountValue", "max_percentage", "100")
	}
	if !req.EndDate.After(req.StartDate) {
		sl.ReportError(req.EndDate, "end_date", "EndDate", "after_start", "")
	}
}

func cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
