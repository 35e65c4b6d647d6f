package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/aws"
	"github.com/imrishuroy/go-storefront-orderflow/internal/cart"
	"github.com/imrishuroy/go-storefront-orderflow/internal/catalog"
	"github.com/imrishuroy/go-storefront-orderflow/internal/config"
	"github.com/imrishuroy/go-storefront-orderflow/internal/coupons"
	"github.com/imrishuroy/go-storefront-orderflow/internal/handlers"
	"github.com/imrishuroy/go-storefront-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-storefront-orderflow/internal/metrics"
	"github.com/imrishuroy/go-storefront-orderflow/internal/notify"
	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
	"github.com/imrishuroy/go-storefront-orderflow/internal/otp"
	"github.com/imrishuroy/go-storefront-orderflow/internal/payment"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store"
	"github.com/imrishuroy/go-storefront-orderflow/internal/telemetry"
	"github.com/imrishuroy/go-storefront-orderflow/internal/wallet"
)

const serviceName = "storefront-api"

func newLogger(local bool) (*zap.Logger, error) {
	if local {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := newLogger(cfg.RunLocal)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	var traceOut io.Writer
	if cfg.TraceStdout {
		traceOut = os.Stdout
	}
	shutdown, err := telemetry.SetupTracer(serviceName, traceOut)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}()

	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.EndpointOverride)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	r := setupRouter(ctx, cfg, clients, logger)

	// if RUN_LOCAL is set, run a local HTTP server for development.
	if cfg.RunLocal {
		logger.Info("running local server", zap.String("addr", cfg.Addr))
		if err := r.Run(cfg.Addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func setupRouter(ctx context.Context, cfg config.Config, clients *aws.AWSClients, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(handlers.RequestLogger(logger))

	var recorder metrics.Recorder = metrics.Nop{}
	switch cfg.MetricsBackend {
	case "prometheus":
		prom := metrics.NewPrometheus("storefront")
		r.Use(prom.Middleware())
		r.GET("/metrics", prom.Handler())
		recorder = prom
	case "cloudwatch":
		recorder = metrics.NewCloudWatch(clients.CloudWatch, cfg.MetricsNamespace, logger)
	}

	var notifier notify.Dispatcher = notify.Nop{}
	if cfg.NotificationsQueueURL != "" {
		notifier = notify.NewQueueDispatcher(aws.NewPublisher(clients.SQS, cfg.NotificationsQueueURL), logger)
	} else {
		logger.Warn("NOTIFICATIONS_QUEUE_URL not set, notifications are dropped")
	}

	var gateway payment.Gateway
	if cfg.RazorpayKeyID != "" {
		gateway = payment.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	} else {
		logger.Warn("RAZORPAY_KEY_ID not set, online payment is disabled")
	}

	st := store.New(clients.DynamoDB, cfg.Tables)
	cat := catalog.NewService(st, logger)
	cpn := coupons.NewService(st, logger)
	wal := wallet.NewService(st, logger, cfg.ReferralBonus)
	ord := orders.NewService(orders.Deps{
		Store:       st,
		Catalog:     cat,
		Coupons:     cpn,
		Wallet:      wal,
		Idempotency: idempotency.NewStore(clients.DynamoDB, cfg.Tables.Idempotency, cfg.IdempotencyTTL),
		Gateway:     gateway,
		Notifier:    notifier,
		Metrics:     recorder,
		Log:         logger,
	}, orders.Options{
		Currency:                cfg.Currency,
		GatewaySecret:           cfg.RazorpayKeySecret,
		CancellationWindowHours: cfg.CancellationWindowHours,
		ReturnWindow:            time.Duration(cfg.ReturnWindowDays) * 24 * time.Hour,
	})

	svc := handlers.Services{
		Catalog: cat,
		Cart:    cart.NewService(st, cat, logger),
		Coupons: cpn,
		Orders:  ord,
		Wallet:  wal,
	}
	if rdb, err := otp.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
		logger.Warn("redis unavailable, otp routes disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		svc.OTP = otp.NewService(otp.NewRedisCache(rdb), notifier, cfg.OTPTTL, logger)
	}

	handlers.New(svc, logger).RegisterRoutes(r)
	return r
}
