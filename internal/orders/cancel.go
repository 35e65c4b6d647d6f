package orders

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/metrics"
	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
	"github.com/imrishuroy/go-storefront-orderflow/internal/notify"
	"github.com/imrishuroy/go-storefront-orderflow/internal/wallet"
)

var (
	userCancellable  = []domain.OrderStatus{domain.StatusPlaced, domain.StatusProcessing, domain.StatusPartiallyCancelled}
	adminCancellable = append(slices.Clone(userCancellable), domain.StatusShipped)
)

// CancelInput names the order and, for a partial cancellation, the products to cancel. No
// products means the whole order.
type CancelInput struct {
	OrderID    string
	UserID     string
	ProductIDs []string
	Reason     string
}

// CancelResult is the cancelled order and the amount refunded to the wallet.
type CancelResult struct {
	Order  *domain.Order `json:"order"`
	Refund float64       `json:"refund"`
}

// Cancel cancels a user's order or some of its lines, inside the cancellation window.
func (s *Service) Cancel(ctx context.Context, in CancelInput) (res *CancelResult, err error) {
	ctx, span := startSpan(ctx, "orders.Cancel",
		attribute.String("order_id", in.OrderID),
		attribute.Int("products", len(in.ProductIDs)),
	)
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(in.Reason) == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "a cancellation reason is required")
	}
	order, err := s.Get(ctx, in.OrderID, in.UserID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, order, in.ProductIDs, strings.TrimSpace(in.Reason), true)
}

// cancel flags lines cancelled, restocks them and refunds paid orders, all in one transaction.
func (s *Service) cancel(ctx context.Context, order *domain.Order, productIDs []string, reason string, byUser bool) (*CancelResult, error) {
	now := s.now()
	allowed := adminCancellable
	if byUser {
		allowed = userCancellable
	}
	if !slices.Contains(allowed, order.Status) {
		return nil, domain.NewError(domain.CodeNotCancellable, "order is %s and cannot be cancelled", order.Status)
	}
	if byUser && order.CancellationWindowHours > 0 {
		deadline := order.CreatedAt.Add(time.Duration(order.CancellationWindowHours) * time.Hour)
		if now.After(deadline) {
			return nil, domain.NewError(domain.CodeCancellationWindow,
				"orders can only be cancelled within %d hours", order.CancellationWindowHours)
		}
	}

	targets, err := cancelTargets(order, productIDs)
	if err != nil {
		return nil, err
	}

	txn := s.Store.Begin()
	lineTotals := make([]float64, 0, len(targets))
	for _, line := range targets {
		line.Cancelled = true
		line.CancelReason = reason
		line.CancelledAt = &now
		lineTotals = append(lineTotals, line.LineTotal())
		txn.RestockProduct(line.ProductID, line.Quantity)
	}

	full := true
	for _, p := range order.Products {
		if !p.Cancelled {
			full = false
			break
		}
	}
	refund := money.Sum(lineTotals...)
	if full {
		refund = money.Sum(refund, order.ShippingFee)
		order.Status = domain.StatusCancelled
	} else {
		order.Status = domain.StatusPartiallyCancelled
	}
	order.AppendTimeline(string(order.Status), reason, now)
	txn.SaveOrder(order)

	if order.PaymentStatus && refund > 0 {
		w, err := s.Wallet.Load(ctx, order.UserID)
		if err != nil {
			return nil, err
		}
		wallet.ApplyCredit(w, refund, fmt.Sprintf("Refund for cancelled items of order #%s", order.OrderNumber),
			domain.OrderReference(order.OrderID), now)
		txn.SaveWallet(w)
	} else {
		refund = 0
	}

	if err := s.commit(ctx, "cancel_order", txn, zap.String("order_id", order.OrderID)); err != nil {
		return nil, err
	}

	s.Log.Info("order cancelled",
		zap.String("order_id", order.OrderID),
		zap.String("status", string(order.Status)),
		zap.Int("lines", len(targets)),
		zap.Float64("refund", refund),
		zap.Bool("by_user", byUser),
	)
	s.Metrics.StatusChanged(ctx, order.Status)
	if refund > 0 {
		s.Metrics.Refunded(ctx, metrics.RefundCancellation, refund)
	}
	msg := fmt.Sprintf("Order #%s was %s", order.OrderNumber, strings.ReplaceAll(string(order.Status), "_", " "))
	s.Notifier.Notify(ctx, notify.New(notify.ChannelPush, notify.AdminRecipient, notify.RoleAdmin, notify.TypeOrderCancelled, msg, order.OrderID))
	s.Notifier.Notify(ctx, notify.New(notify.ChannelPush, order.UserID, notify.RoleUser, notify.TypeOrderCancelled, msg, order.OrderID))

	return &CancelResult{Order: order, Refund: refund}, nil
}

// cancelTargets resolves the lines to cancel: every live line when productIDs is empty,
// otherwise exactly the listed ones.
func cancelTargets(order *domain.Order, productIDs []string) ([]*domain.OrderProduct, error) {
	var out []*domain.OrderProduct
	if len(productIDs) == 0 {
		for i := range order.Products {
			if !order.Products[i].Cancelled {
				out = append(out, &order.Products[i])
			}
		}
		if len(out) == 0 {
			return nil, domain.NewError(domain.CodeNotCancellable, "every product is already cancelled")
		}
		return out, nil
	}

	seen := map[string]bool{}
	for _, id := range productIDs {
		if seen[id] {
			return nil, domain.NewError(domain.CodeInvalidInput, "product %s is listed twice", id)
		}
		seen[id] = true
		line := order.Product(id)
		if line == nil {
			return nil, domain.NewError(domain.CodeProductNotFound, "product %s is not part of this order", id)
		}
		if line.Cancelled {
			return nil, domain.NewError(domain.CodeNotCancellable, "product %s is already cancelled", id)
		}
		out = append(out, line)
	}
	return out, nil
}
