package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/coupons"
	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
	"github.com/imrishuroy/go-storefront-orderflow/internal/notify"
	"github.com/imrishuroy/go-storefront-orderflow/internal/payment"
)

// LineInput is one ordered product as the client priced it.
type LineInput struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// PlaceInput is a checkout request with the totals the client computed.
type PlaceInput struct {
	UserID         string               `json:"user_id"`
	Products       []LineInput          `json:"products"`
	Address        domain.Address       `json:"address"`
	PaymentMethod  domain.PaymentMethod `json:"payment_method"`
	Coupons        []string             `json:"coupons,omitempty"`
	Subtotal       float64              `json:"subtotal"`
	DiscountAmount float64              `json:"discount_amount"`
	TotalAmount    float64              `json:"total_amount"`
	FinalAmount    float64              `json:"final_amount"`
	IdempotencyKey string               `json:"-"`
}

// PlaceResult is a placed (or replayed) order.
type PlaceResult struct {
	Order        *domain.Order         `json:"order"`
	GatewayOrder *payment.GatewayOrder `json:"gateway_order,omitempty"`
	Replayed     bool                  `json:"replayed"`
}

// Place creates an order from in. Preconditions are checked in a fixed order, each with its own
// error code; the order, stock reservations, coupon usage, idempotency claim and cart removal
// then commit together or not at all.
func (s *Service) Place(ctx context.Context, in PlaceInput) (res *PlaceResult, err error) {
	ctx, span := startSpan(ctx, "orders.Place",
		attribute.String("user_id", in.UserID),
		attribute.String("payment_method", string(in.PaymentMethod)),
	)
	defer func() { endSpan(span, err) }()

	requestHash := ""
	if in.IdempotencyKey != "" {
		requestHash, err = requestFingerprint(in)
		if err != nil {
			return nil, err
		}
		if replay, err := s.replay(ctx, in, requestHash); replay != nil || err != nil {
			return replay, err
		}
	}

	if err := validatePlaceInput(in); err != nil {
		return nil, err
	}

	products := make([]*domain.Product, len(in.Products))
	for i, line := range in.Products {
		p, err := s.Store.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, domain.NewError(domain.CodeProductNotFound, "product %s not found", line.ProductID)
		}
		products[i] = p
	}
	for i, line := range in.Products {
		if products[i].Stock < line.Quantity {
			return nil, domain.NewError(domain.CodeInsufficientStock,
				"only %d of %s left in stock", products[i].Stock, products[i].Name)
		}
	}

	applied, err := s.Coupons.ValidForOrder(ctx, in.Coupons)
	if err != nil {
		return nil, err
	}

	now := s.now()
	pricing, err := s.Catalog.ResolveAt(ctx, products, now)
	if err != nil {
		return nil, err
	}
	lineTotals := make([]float64, len(in.Products))
	for i, line := range in.Products {
		if !money.Equal(line.Price, pricing[i].DiscountedPrice) {
			return nil, domain.NewError(domain.CodePriceMismatch,
				"price %.2f for %s does not match current price %.2f", line.Price, products[i].Name, pricing[i].DiscountedPrice)
		}
		lineTotals[i] = money.Line(line.Price, line.Quantity)
	}
	subtotal := money.Sum(lineTotals...)
	if !money.Equal(subtotal, in.Subtotal) {
		return nil, domain.NewError(domain.CodeSubtotalMismatch,
			"subtotal %.2f does not match items total %.2f", in.Subtotal, subtotal)
	}
	discount := coupons.TotalDiscount(applied, subtotal)
	if !money.Equal(discount, in.DiscountAmount) {
		return nil, domain.NewError(domain.CodeDiscountMismatch,
			"discount %.2f does not match coupon discount %.2f", in.DiscountAmount, discount)
	}
	total := money.Sum(subtotal, domain.ShippingFee)
	if !money.Equal(total, in.TotalAmount) {
		return nil, domain.NewError(domain.CodeTotalMismatch,
			"total %.2f does not match %.2f", in.TotalAmount, total)
	}
	final := money.Sub(total, discount)
	if !money.Equal(final, in.FinalAmount) {
		return nil, domain.NewError(domain.CodeFinalMismatch,
			"final amount %.2f does not match %.2f", in.FinalAmount, final)
	}

	orderID := uuid.NewString()
	orderNumber := newOrderNumber(orderID, now)

	var gatewayOrder *payment.GatewayOrder
	if in.PaymentMethod != domain.PaymentCOD {
		gatewayOrder, err = s.createGatewayOrder(ctx, final, orderNumber)
		if err != nil {
			return nil, err
		}
	}

	order := &domain.Order{
		OrderID:                 orderID,
		OrderNumber:             orderNumber,
		UserID:                  in.UserID,
		Products:                make([]domain.OrderProduct, len(in.Products)),
		ShippingAddress:         in.Address,
		PaymentMethod:           in.PaymentMethod,
		Subtotal:                subtotal,
		DiscountAmount:          discount,
		ShippingFee:             domain.ShippingFee,
		TotalAmount:             total,
		FinalAmount:             final,
		Status:                  domain.StatusPlaced,
		CancellationWindowHours: s.opts.CancellationWindowHours,
		IdempotencyKey:          in.IdempotencyKey,
		CreatedAt:               now,
	}
	if gatewayOrder != nil {
		order.GatewayOrderID = gatewayOrder.ID
	}
	order.AppendTimeline(string(domain.StatusPlaced), "", now)

	txn := s.Store.Begin()
	for i, line := range in.Products {
		p := products[i]
		order.Products[i] = domain.OrderProduct{
			ProductID:       p.ProductID,
			Name:            p.Name,
			Quantity:        line.Quantity,
			Price:           p.Price,
			DiscountedPrice: line.Price,
			Offer:           pricing[i].Offer,
			ReturnStatus:    domain.ReturnNone,
		}
		txn.ReserveStock(p.ProductID, line.Quantity)
	}
	for _, c := range applied {
		order.Coupons = append(order.Coupons, coupons.Snapshot(c, subtotal))
		txn.IncrementCouponUsage(c.Code)
	}
	if in.IdempotencyKey != "" {
		put, err := s.Idempotency.TransactPut(in.IdempotencyKey, in.UserID, orderID, requestHash)
		if err != nil {
			return nil, err
		}
		txn.ClaimUnique(put, "idempotency key "+in.IdempotencyKey)
	}
	txn.SaveOrder(order).DeleteCart(in.UserID)

	if err := s.commit(ctx, "place_order", txn, zap.String("order_id", orderID), zap.String("user_id", in.UserID)); err != nil {
		if domain.CodeOf(err) == domain.CodeIdempotencyConflict {
			// a concurrent request with the same key won the race
			if replay, rerr := s.replay(ctx, in, requestHash); replay != nil || rerr != nil {
				return replay, rerr
			}
		}
		return nil, err
	}

	s.Log.Info("order placed",
		zap.String("order_id", order.OrderID),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID),
		zap.Float64("final_amount", order.FinalAmount),
		zap.String("payment_method", string(order.PaymentMethod)),
	)
	s.Metrics.OrderPlaced(ctx, order.PaymentMethod, order.FinalAmount)
	s.Notifier.Notify(ctx, notify.New(notify.ChannelPush, notify.AdminRecipient, notify.RoleAdmin, notify.TypeOrderPlaced,
		fmt.Sprintf("New order #%s placed for %.2f", order.OrderNumber, order.FinalAmount), order.OrderID))

	return &PlaceResult{Order: order, GatewayOrder: gatewayOrder}, nil
}

// replay returns the order an idempotency key already produced, or nil if the key is unused.
func (s *Service) replay(ctx context.Context, in PlaceInput, requestHash string) (*PlaceResult, error) {
	rec, err := s.Idempotency.Get(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if rec.UserID != in.UserID || rec.RequestHash != requestHash {
		return nil, domain.NewError(domain.CodeIdempotencyConflict,
			"idempotency key %s was used for a different request", in.IdempotencyKey)
	}
	order, err := s.Store.GetOrder(ctx, rec.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.NewError(domain.CodeOrderNotFound, "order %s not found", rec.OrderID)
	}
	s.Log.Info("order placement replayed",
		zap.String("order_id", order.OrderID),
		zap.String("idempotency_key", in.IdempotencyKey),
	)
	res := &PlaceResult{Order: order, Replayed: true}
	if order.GatewayOrderID != "" {
		res.GatewayOrder = &payment.GatewayOrder{
			ID:       order.GatewayOrderID,
			Amount:   money.MinorUnits(order.FinalAmount),
			Currency: s.opts.Currency,
			Receipt:  order.OrderNumber,
		}
	}
	return res, nil
}

func (s *Service) createGatewayOrder(ctx context.Context, final float64, receipt string) (*payment.GatewayOrder, error) {
	amount := money.MinorUnits(final)
	if amount <= 0 {
		return nil, domain.NewError(domain.CodeInvalidAmount, "amount %.2f cannot be paid online", final)
	}
	if s.Gateway == nil {
		return nil, domain.NewError(domain.CodeGatewayFailure, "online payment is not configured")
	}
	gw, err := s.Gateway.CreateOrder(ctx, amount, s.opts.Currency, receipt)
	if err != nil {
		s.Log.Warn("gateway order creation failed", zap.String("receipt", receipt), zap.Error(err))
		return nil, domain.WrapError(domain.CodeGatewayFailure, err, "could not create payment order")
	}
	return gw, nil
}

func validatePlaceInput(in PlaceInput) error {
	if in.UserID == "" {
		return domain.NewError(domain.CodeInvalidInput, "user is required")
	}
	if len(in.Products) == 0 {
		return domain.NewError(domain.CodeInvalidInput, "order has no products")
	}
	if len(in.Products) > domain.MaxOrderLines {
		return domain.NewError(domain.CodeInvalidInput, "order has %d products, at most %d allowed", len(in.Products), domain.MaxOrderLines)
	}
	if len(in.Coupons) > domain.MaxCouponsPerOrder {
		return domain.NewError(domain.CodeInvalidInput, "order has %d coupons, at most %d allowed", len(in.Coupons), domain.MaxCouponsPerOrder)
	}
	seen := make(map[string]bool, len(in.Products))
	for _, line := range in.Products {
		if line.ProductID == "" {
			return domain.NewError(domain.CodeInvalidInput, "product id is required")
		}
		if seen[line.ProductID] {
			return domain.NewError(domain.CodeInvalidInput, "product %s is listed twice", line.ProductID)
		}
		seen[line.ProductID] = true
		if line.Quantity < 1 || line.Quantity > domain.MaxQuantityPerProduct {
			return domain.NewError(domain.CodeInvalidQuantity,
				"quantity for %s must be between 1 and %d", line.ProductID, domain.MaxQuantityPerProduct)
		}
		if line.Price <= 0 {
			return domain.NewError(domain.CodeInvalidAmount, "price for %s must be positive", line.ProductID)
		}
	}
	a := in.Address
	for _, f := range []struct{ name, value string }{
		{"name", a.Name}, {"phone", a.Phone}, {"line1", a.Line1},
		{"city", a.City}, {"state", a.State}, {"postal_code", a.PostalCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			return domain.NewError(domain.CodeInvalidInput, "address %s is required", f.name)
		}
	}
	if !in.PaymentMethod.Valid() {
		return domain.NewError(domain.CodeInvalidInput, "unsupported payment method %q", in.PaymentMethod)
	}
	if in.Subtotal <= 0 || in.TotalAmount <= 0 || in.FinalAmount < 0 || in.DiscountAmount < 0 {
		return domain.NewError(domain.CodeInvalidAmount, "order totals are missing or negative")
	}
	return nil
}

func requestFingerprint(in PlaceInput) (string, error) {
	in.IdempotencyKey = ""
	return idempotency.RequestHash(in)
}

func newOrderNumber(orderID string, at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), strings.ToUpper(orderID[:8]))
}
