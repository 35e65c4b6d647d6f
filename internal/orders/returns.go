package orders

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/metrics"
	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
	"github.com/imrishuroy/go-storefront-orderflow/internal/notify"
	"github.com/imrishuroy/go-storefront-orderflow/internal/wallet"
)

var returnable = []domain.OrderStatus{
	domain.StatusDelivered,
	domain.StatusPartiallyReturnRequested,
	domain.StatusPartiallyReturned,
}

// ReturnInput is a user's return request for whole order lines.
type ReturnInput struct {
	OrderID    string
	UserID     string
	ProductIDs []string
	Reason     string
}

// RequestReturn files a return request. Every listed product must be an uncancelled line with
// no earlier return; one bad product rejects the whole request.
func (s *Service) RequestReturn(ctx context.Context, in ReturnInput) (order *domain.Order, rr *domain.ReturnRequest, err error) {
	ctx, span := startSpan(ctx, "orders.RequestReturn",
		attribute.String("order_id", in.OrderID),
		attribute.Int("products", len(in.ProductIDs)),
	)
	defer func() { endSpan(span, err) }()

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, nil, domain.NewError(domain.CodeInvalidInput, "a return reason is required")
	}
	if len(in.ProductIDs) == 0 {
		return nil, nil, domain.NewError(domain.CodeInvalidInput, "select at least one product to return")
	}

	order, err = s.Get(ctx, in.OrderID, in.UserID)
	if err != nil {
		return nil, nil, err
	}
	if !slices.Contains(returnable, order.Status) {
		return nil, nil, domain.NewError(domain.CodeNotReturnable, "order is %s and cannot be returned", order.Status)
	}
	now := s.now()
	if last := order.ReturnPolicy.LastReturnDate; last != nil && now.After(*last) {
		return nil, nil, domain.NewError(domain.CodeReturnWindowClosed,
			"the return window closed on %s", last.Format("2006-01-02"))
	}

	lines := make([]*domain.OrderProduct, 0, len(in.ProductIDs))
	seen := map[string]bool{}
	for _, id := range in.ProductIDs {
		line := order.Product(id)
		switch {
		case seen[id]:
			return nil, nil, domain.NewError(domain.CodeInvalidInput, "product %s is listed twice", id)
		case line == nil:
			return nil, nil, domain.NewError(domain.CodeProductNotReturnable, "product %s is not part of this order", id)
		case line.Cancelled:
			return nil, nil, domain.NewError(domain.CodeProductNotReturnable, "product %s was cancelled", id)
		case line.ReturnStatus != domain.ReturnNone && line.ReturnStatus != "":
			return nil, nil, domain.NewError(domain.CodeProductNotReturnable,
				"product %s already has a return (%s)", id, line.ReturnStatus)
		}
		seen[id] = true
		lines = append(lines, line)
	}

	req := domain.ReturnRequest{
		RequestID:   uuid.NewString(),
		Reason:      reason,
		Status:      domain.ReturnRequestRequested,
		RequestedAt: now,
	}
	totals := make([]float64, 0, len(lines))
	for _, line := range lines {
		line.ReturnStatus = domain.ReturnRequested
		req.Items = append(req.Items, domain.ReturnItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.DiscountedPrice,
		})
		totals = append(totals, line.LineTotal())
	}
	req.EstimatedRefund = money.Sum(totals...)
	order.ReturnRequests = append(order.ReturnRequests, req)

	order.Status = domain.StatusPartiallyReturnRequested
	if allLines(order, func(p domain.OrderProduct) bool {
		return p.Cancelled || p.ReturnStatus == domain.ReturnRequested || p.ReturnStatus == domain.ReturnApproved
	}) {
		order.Status = domain.StatusReturnRequested
	}
	order.AppendTimeline(string(order.Status), reason, now)

	if err := s.Store.SaveOrder(ctx, order); err != nil {
		s.Metrics.TransactionAborted(ctx, "request_return", domain.CodeOf(err))
		return nil, nil, err
	}

	s.Log.Info("return requested",
		zap.String("order_id", order.OrderID),
		zap.String("request_id", req.RequestID),
		zap.Float64("estimated_refund", req.EstimatedRefund),
		zap.String("status", string(order.Status)),
	)
	s.Metrics.StatusChanged(ctx, order.Status)
	s.Notifier.Notify(ctx, notify.New(notify.ChannelPush, notify.AdminRecipient, notify.RoleAdmin, notify.TypeReturnRequested,
		fmt.Sprintf("Return requested for order #%s (%d item(s), %.2f)", order.OrderNumber, len(req.Items), req.EstimatedRefund),
		order.OrderID))

	return order, order.ReturnRequest(req.RequestID), nil
}

// ProcessReturnInput is an admin decision on return requests. RequestID names the request;
// AllPending applies the decision to every pending request of the order instead.
type ProcessReturnInput struct {
	OrderID    string
	RequestID  string
	Approve    bool
	AdminNote  string
	AllPending bool
}

// ProcessReturnResult is the order after the decision and the amount refunded.
type ProcessReturnResult struct {
	Order     *domain.Order `json:"order"`
	Processed []string      `json:"processed"`
	Refund    float64       `json:"refund"`
}

// ProcessReturn approves or rejects return requests. Approval restocks the returned lines and
// credits the wallet with one ledger entry per request; rejection only records the outcome.
func (s *Service) ProcessReturn(ctx context.Context, in ProcessReturnInput) (res *ProcessReturnResult, err error) {
	ctx, span := startSpan(ctx, "orders.ProcessReturn",
		attribute.String("order_id", in.OrderID),
		attribute.String("request_id", in.RequestID),
		attribute.Bool("approve", in.Approve),
		attribute.Bool("all_pending", in.AllPending),
	)
	defer func() { endSpan(span, err) }()

	order, err := s.Get(ctx, in.OrderID, "")
	if err != nil {
		return nil, err
	}
	targets, err := pendingTargets(order, in.RequestID, in.AllPending)
	if err != nil {
		return nil, err
	}

	now := s.now()
	txn := s.Store.Begin()
	res = &ProcessReturnResult{Order: order}
	var w *domain.Wallet
	if in.Approve {
		if w, err = s.Wallet.Load(ctx, order.UserID); err != nil {
			return nil, err
		}
	}

	refunds := make([]float64, 0, len(targets))
	for _, rr := range targets {
		rr.ProcessedAt = &now
		rr.AdminNote = in.AdminNote
		res.Processed = append(res.Processed, rr.RequestID)

		if !in.Approve {
			rr.Status = domain.ReturnRequestRejected
			for _, it := range rr.Items {
				if line := order.Product(it.ProductID); line != nil {
					line.ReturnStatus = domain.ReturnRejected
				}
			}
			continue
		}

		rr.Status = domain.ReturnRequestApproved
		rr.RefundedAt = &now
		for _, it := range rr.Items {
			if line := order.Product(it.ProductID); line != nil {
				line.ReturnStatus = domain.ReturnApproved
			}
			txn.RestockProduct(it.ProductID, it.Quantity)
		}
		refunds = append(refunds, rr.EstimatedRefund)
		wallet.ApplyCredit(w, rr.EstimatedRefund,
			fmt.Sprintf("Refund for returned items of order #%s", order.OrderNumber),
			domain.ReturnRequestReference(order.OrderID, rr.RequestID), now)
	}

	event := string(domain.ReturnRejected)
	if in.Approve {
		event = string(domain.ReturnApproved)
		res.Refund = money.Sum(refunds...)
		if allLines(order, func(p domain.OrderProduct) bool { return p.Cancelled || p.ReturnStatus == domain.ReturnApproved }) {
			order.Status = domain.StatusReturned
		} else {
			order.Status = domain.StatusPartiallyReturned
		}
		if res.Refund > 0 {
			txn.SaveWallet(w)
		}
	}
	order.AppendTimeline(event, in.AdminNote, now)
	txn.SaveOrder(order)

	if err := s.commit(ctx, "process_return", txn, zap.String("order_id", order.OrderID)); err != nil {
		return nil, err
	}

	s.Log.Info("return processed",
		zap.String("order_id", order.OrderID),
		zap.Strings("request_ids", res.Processed),
		zap.Bool("approved", in.Approve),
		zap.Float64("refund", res.Refund),
		zap.String("status", string(order.Status)),
	)
	if in.Approve {
		s.Metrics.StatusChanged(ctx, order.Status)
		if res.Refund > 0 {
			s.Metrics.Refunded(ctx, metrics.RefundReturn, res.Refund)
		}
	}
	verdict := "rejected"
	if in.Approve {
		verdict = fmt.Sprintf("approved, %.2f refunded to your wallet", res.Refund)
	}
	s.Notifier.Notify(ctx, notify.New(notify.ChannelPush, order.UserID, notify.RoleUser, notify.TypeReturnProcessed,
		fmt.Sprintf("Your return for order #%s was %s", order.OrderNumber, verdict), order.OrderID))

	return res, nil
}

// pendingTargets picks the requests to process: the named one, or every pending one.
func pendingTargets(order *domain.Order, requestID string, allPending bool) ([]*domain.ReturnRequest, error) {
	if allPending {
		var out []*domain.ReturnRequest
		for i := range order.ReturnRequests {
			if order.ReturnRequests[i].Status == domain.ReturnRequestRequested {
				out = append(out, &order.ReturnRequests[i])
			}
		}
		if len(out) == 0 {
			return nil, domain.NewError(domain.CodeReturnNotPending, "order %s has no pending return requests", order.OrderID)
		}
		return out, nil
	}

	rr := order.ReturnRequest(requestID)
	if rr == nil {
		return nil, domain.NewError(domain.CodeReturnNotFound, "return request %s not found", requestID)
	}
	if rr.Status != domain.ReturnRequestRequested {
		return nil, domain.NewError(domain.CodeReturnNotPending, "return request %s is already %s", requestID, rr.Status)
	}
	return []*domain.ReturnRequest{rr}, nil
}

func allLines(order *domain.Order, pred func(domain.OrderProduct) bool) bool {
	for _, p := range order.Products {
		if !pred(p) {
			return false
		}
	}
	return true
}
