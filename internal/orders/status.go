package orders

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/notify"
	"github.com/imrishuroy/go-storefront-orderflow/internal/payment"
)

// VerifyPaymentInput is the gateway's payment confirmation.
type VerifyPaymentInput struct {
	OrderID          string
	UserID           string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// VerifyPayment marks an online order paid once the gateway signature checks out. A bad
// signature leaves the order untouched. Confirming an already paid order is a no-op.
func (s *Service) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (order *domain.Order, err error) {
	ctx, span := startSpan(ctx, "orders.VerifyPayment", attribute.String("order_id", in.OrderID))
	defer func() { endSpan(span, err) }()

	order, err = s.Get(ctx, in.OrderID, in.UserID)
	if err != nil {
		return nil, err
	}
	if order.GatewayOrderID == "" || order.GatewayOrderID != in.GatewayOrderID ||
		!payment.VerifySignature(in.GatewayOrderID, in.GatewayPaymentID, in.Signature, s.opts.GatewaySecret) {
		s.Log.Warn("payment signature rejected",
			zap.String("order_id", in.OrderID),
			zap.String("gateway_order_id", in.GatewayOrderID),
		)
		return nil, domain.NewError(domain.CodeInvalidSignature, "payment signature does not match")
	}
	if order.PaymentStatus {
		return order, nil
	}

	order.PaymentStatus = true
	order.GatewayPaymentID = in.GatewayPaymentID
	order.AppendTimeline(domain.TimelinePaid, in.GatewayPaymentID, s.now())
	if err := s.Store.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	s.Log.Info("order paid", zap.String("order_id", order.OrderID), zap.String("payment_id", in.GatewayPaymentID))
	s.Notifier.Notify(ctx, notify.New(notify.ChannelPush, order.UserID, notify.RoleUser, notify.TypeOrderPaid,
		fmt.Sprintf("Payment received for order #%s", order.OrderNumber), order.OrderID))
	return order, nil
}

// UpdateStatus is the admin status change. Delivering an order marks it paid and opens the
// return window; cancelling runs the full cancellation.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to domain.OrderStatus, note string) (order *domain.Order, err error) {
	ctx, span := startSpan(ctx, "orders.UpdateStatus",
		attribute.String("order_id", orderID),
		attribute.String("status", string(to)),
	)
	defer func() { endSpan(span, err) }()

	order, err = s.Get(ctx, orderID, "")
	if err != nil {
		return nil, err
	}
	from := order.Status
	if err := CheckTransition(from, to); err != nil {
		return nil, err
	}

	if to == domain.StatusCancelled {
		if note == "" {
			note = "cancelled by admin"
		}
		res, err := s.cancel(ctx, order, nil, note, false)
		if err != nil {
			return nil, err
		}
		return res.Order, nil
	}

	now := s.now()
	order.Status = to
	if to == domain.StatusDelivered {
		order.PaymentStatus = true
		order.DeliveredAt = &now
		if s.opts.ReturnWindow > 0 {
			last := now.Add(s.opts.ReturnWindow)
			order.ReturnPolicy.LastReturnDate = &last
		}
	}
	order.AppendTimeline(string(to), note, now)
	if err := s.Store.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	s.Log.Info("order status changed",
		zap.String("order_id", order.OrderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	s.Metrics.StatusChanged(ctx, to)
	s.Notifier.Notify(ctx, notify.New(notify.ChannelPush, order.UserID, notify.RoleUser, notify.TypeOrderStatus,
		fmt.Sprintf("Your order #%s is now %s", order.OrderNumber, to), order.OrderID))
	return order, nil
}
