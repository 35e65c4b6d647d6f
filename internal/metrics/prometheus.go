package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
)

// Prometheus holds the HTTP and business collectors on one registry.
type Prometheus struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	ordersPlacedTotal  *prometheus.CounterVec
	orderValueTotal    *prometheus.CounterVec
	statusChangesTotal *prometheus.CounterVec
	refundsTotal       *prometheus.CounterVec
	refundAmountTotal  *prometheus.CounterVec
	transactionAborts  *prometheus.CounterVec
}

// NewPrometheus registers every collector on a fresh registry.
func NewPrometheus(namespace string) *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		ordersPlacedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_placed_total",
				Help:      "Orders placed, by payment method",
			},
			[]string{"payment_method"},
		),
		orderValueTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_value_total",
				Help:      "Sum of final amounts of placed orders",
			},
			[]string{"payment_method"},
		),
		statusChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_status_changes_total",
				Help:      "Order status transitions, by target status",
			},
			[]string{"status"},
		),
		refundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wallet_refunds_total",
				Help:      "Wallet refunds, by reason",
			},
			[]string{"reason"},
		),
		refundAmountTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wallet_refund_amount_total",
				Help:      "Amount refunded to wallets, by reason",
			},
			[]string{"reason"},
		),
		transactionAborts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transaction_aborts_total",
				Help:      "Workflow transactions that were cancelled",
			},
			[]string{"workflow", "code"},
		),
	}
	p.registry.MustRegister(
		p.httpRequestsTotal,
		p.httpRequestDuration,
		p.ordersPlacedTotal,
		p.orderValueTotal,
		p.statusChangesTotal,
		p.refundsTotal,
		p.refundAmountTotal,
		p.transactionAborts,
	)
	return p
}

// Registry exposes the registry for tests and extra collectors.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Middleware counts and times every request by route template.
func (p *Prometheus) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		p.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		p.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
}

func (p *Prometheus) OrderPlaced(_ context.Context, method domain.PaymentMethod, amount float64) {
	p.ordersPlacedTotal.WithLabelValues(string(method)).Inc()
	p.orderValueTotal.WithLabelValues(string(method)).Add(amount)
}

func (p *Prometheus) StatusChanged(_ context.Context, to domain.OrderStatus) {
	p.statusChangesTotal.WithLabelValues(string(to)).Inc()
}

func (p *Prometheus) Refunded(_ context.Context, reason string, amount float64) {
	p.refundsTotal.WithLabelValues(reason).Inc()
	p.refundAmountTotal.WithLabelValues(reason).Add(amount)
}

func (p *Prometheus) TransactionAborted(_ context.Context, workflow string, code domain.Code) {
	p.transactionAborts.WithLabelValues(workflow, string(code)).Inc()
}
