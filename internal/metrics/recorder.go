// Package metrics records HTTP and business metrics. Business events go to Prometheus when the
// API runs as a server, or to CloudWatch when it runs on Lambda.
package metrics

import (
	"context"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
)

// Refund reasons.
const (
	RefundCancellation = "cancellation"
	RefundReturn       = "return"
)

// Recorder receives order lifecycle events. Implementations must not fail the caller.
type Recorder interface {
	OrderPlaced(ctx context.Context, method domain.PaymentMethod, amount float64)
	StatusChanged(ctx context.Context, to domain.OrderStatus)
	Refunded(ctx context.Context, reason string, amount float64)
	TransactionAborted(ctx context.Context, workflow string, code domain.Code)
}

// Nop discards every event.
type Nop struct{}

func (Nop) OrderPlaced(context.Context, domain.PaymentMethod, float64) {}
func (Nop) StatusChanged(context.Context, domain.OrderStatus)          {}
func (Nop) Refunded(context.Context, string, float64)                  {}
func (Nop) TransactionAborted(context.Context, string, domain.Code)    {}
