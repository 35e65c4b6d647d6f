// Package orders runs the order lifecycle: placement, payment confirmation, status changes,
// cancellation and returns. Every workflow that touches more than one document commits through a
// single store transaction.
package orders

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/catalog"
	"github.com/imrishuroy/go-storefront-orderflow/internal/coupons"
	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-storefront-orderflow/internal/metrics"
	"github.com/imrishuroy/go-storefront-orderflow/internal/notify"
	"github.com/imrishuroy/go-storefront-orderflow/internal/payment"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store"
	"github.com/imrishuroy/go-storefront-orderflow/internal/wallet"
)

var tracer = otel.Tracer("github.com/imrishuroy/go-storefront-orderflow/internal/orders")

// Deps are the collaborators of the order Service.
type Deps struct {
	Store       *store.Store
	Catalog     *catalog.Service
	Coupons     *coupons.Service
	Wallet      *wallet.Service
	Idempotency *idempotency.Store
	Gateway     payment.Gateway // nil disables online payment
	Notifier    notify.Dispatcher
	Metrics     metrics.Recorder
	Log         *zap.Logger
}

// Options are the order policies.
type Options struct {
	Currency                string
	GatewaySecret           string
	CancellationWindowHours int // 0 disables the window
	ReturnWindow            time.Duration
}

// Service is the order lifecycle.
type Service struct {
	Deps
	opts    Options
	nowFunc func() time.Time
}

// NewService returns an order Service. Nil notifier and metrics are replaced by no-ops.
func NewService(d Deps, opts Options) *Service {
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	return &Service{Deps: d, opts: opts, nowFunc: time.Now}
}

func (s *Service) now() time.Time { return s.nowFunc().UTC() }

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domain.CodeOf(err)))
	}
	span.End()
}

// commit runs txn and reports an aborted transaction.
func (s *Service) commit(ctx context.Context, workflow string, txn *store.Txn, fields ...zap.Field) error {
	if err := txn.Commit(ctx); err != nil {
		code := domain.CodeOf(err)
		s.Metrics.TransactionAborted(ctx, workflow, code)
		s.Log.Error("transaction aborted",
			append(fields, zap.String("workflow", workflow), zap.String("code", string(code)), zap.Error(err))...)
		return err
	}
	return nil
}

// Get returns an order. A non-empty userID restricts the lookup to that user's orders.
func (s *Service) Get(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil || (userID != "" && o.UserID != userID) {
		return nil, domain.NewError(domain.CodeOrderNotFound, "order %s not found", orderID)
	}
	return o, nil
}

// List returns a user's orders, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.Store.ListOrdersByUser(ctx, userID)
}
