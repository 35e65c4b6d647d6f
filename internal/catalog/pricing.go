package catalog

import (
	"slices"
	"time"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
)

// Pricing is the resolved price of a product at a moment in time.
type Pricing struct {
	OriginalPrice   float64               `json:"original_price"`
	DiscountedPrice float64               `json:"discounted_price"`
	Offer           *domain.OfferSnapshot `json:"offer,omitempty"`
}

// ResolvePricing picks the best offer for p among offers at now. Offers match by product id, or by
// category id when the product has a category reference. The highest discount wins, ties going
// to the lowest offer id; offers never stack.
func ResolvePricing(p domain.Product, offers []domain.Offer, now time.Time) Pricing {
	pricing := Pricing{OriginalPrice: p.Price, DiscountedPrice: p.Price}

	var best *domain.Offer
	for i := range offers {
		o := &offers[i]
		if !o.ActiveAt(now) || !appliesTo(*o, p) {
			continue
		}
		if best == nil ||
			o.DiscountValue > best.DiscountValue ||
			(o.DiscountValue == best.DiscountValue && o.OfferID < best.OfferID) {
			best = o
		}
	}
	if best == nil {
		return pricing
	}

	pricing.DiscountedPrice = money.ApplyPercentOff(p.Price, best.DiscountValue)
	pricing.Offer = &domain.OfferSnapshot{
		OfferID:       best.OfferID,
		Name:          best.Name,
		DiscountValue: best.DiscountValue,
	}
	return pricing
}

func appliesTo(o domain.Offer, p domain.Product) bool {
	if slices.Contains(o.ProductIDs, p.ProductID) {
		return true
	}
	return p.CategoryRef != "" && slices.Contains(o.CategoryIDs, p.CategoryRef)
}
