package metrics

import (
	"context"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/aws"
	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
)

// CloudWatch publishes business events as custom metrics. Each event is one PutMetricData call;
// failures are logged.
type CloudWatch struct {
	client    aws.CloudWatchAPI
	namespace string
	log       *zap.Logger
	nowFunc   func() time.Time
}

// NewCloudWatch returns a CloudWatch recorder writing under namespace.
func NewCloudWatch(client aws.CloudWatchAPI, namespace string, log *zap.Logger) *CloudWatch {
	return &CloudWatch{client: client, namespace: namespace, log: log, nowFunc: time.Now}
}

func (c *CloudWatch) OrderPlaced(ctx context.Context, method domain.PaymentMethod, amount float64) {
	dims := map[string]string{"PaymentMethod": string(method)}
	c.put(ctx,
		c.datum("OrdersPlaced", 1, cwtypes.StandardUnitCount, dims),
		c.datum("OrderValue", amount, cwtypes.StandardUnitNone, dims),
	)
}

func (c *CloudWatch) StatusChanged(ctx context.Context, to domain.OrderStatus) {
	c.put(ctx, c.datum("OrderStatusChanges", 1, cwtypes.StandardUnitCount, map[string]string{"Status": string(to)}))
}

func (c *CloudWatch) Refunded(ctx context.Context, reason string, amount float64) {
	dims := map[string]string{"Reason": reason}
	c.put(ctx,
		c.datum("WalletRefunds", 1, cwtypes.StandardUnitCount, dims),
		c.datum("WalletRefundAmount", amount, cwtypes.StandardUnitNone, dims),
	)
}

func (c *CloudWatch) TransactionAborted(ctx context.Context, workflow string, code domain.Code) {
	c.put(ctx, c.datum("TransactionAborts", 1, cwtypes.StandardUnitCount,
		map[string]string{"Workflow": workflow, "Code": string(code)}))
}

func (c *CloudWatch) datum(name string, value float64, unit cwtypes.StandardUnit, dims map[string]string) cwtypes.MetricDatum {
	d := cwtypes.MetricDatum{
		MetricName: sdkaws.String(name),
		Value:      sdkaws.Float64(value),
		Unit:       unit,
		Timestamp:  sdkaws.Time(c.nowFunc().UTC()),
	}
	for k, v := range dims {
		d.Dimensions = append(d.Dimensions, cwtypes.Dimension{Name: sdkaws.String(k), Value: sdkaws.String(v)})
	}
	return d
}

func (c *CloudWatch) put(ctx context.Context, data ...cwtypes.MetricDatum) {
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(c.namespace),
		MetricData: data,
	})
	if err != nil {
		c.log.Warn("put metric data failed", zap.String("metric", sdkaws.ToString(data[0].MetricName)), zap.Error(err))
	}
}
