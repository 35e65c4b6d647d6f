// Package store persists the storefront documents in DynamoDB. Multi-document workflows go
// through Txn, which maps one workflow's atomic unit onto a single TransactWriteItems call.
package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-storefront-orderflow/internal/aws"
	"github.com/imrishuroy/go-storefront-orderflow/internal/config"
)

// Hash key attribute of each table.
const (
	keyProduct      = "product_id"
	keyCategory     = "category_id"
	keyOffer        = "offer_id"
	keyCoupon       = "code"
	keyUser         = "user_id"
	keyOrder        = "order_id"
	keyIdempotency  = "idempotency_key"
	keyNotification = "notification_id"

	// OrdersByUserIndex is the orders GSI keyed by user_id.
	OrdersByUserIndex = "user_id-index"
)

// KeySchema returns table name -> hash key attribute for tables.
func KeySchema(tables config.Tables) map[string]string {
	return map[string]string{
		tables.Products:      keyProduct,
		tables.Categories:    keyCategory,
		tables.Offers:        keyOffer,
		tables.Coupons:       keyCoupon,
		tables.Carts:         keyUser,
		tables.Orders:        keyOrder,
		tables.Wallets:       keyUser,
		tables.Idempotency:   keyIdempotency,
		tables.Notifications: keyNotification,
	}
}

// Store encapsulates operations on the storefront tables.
type Store struct {
	client  aws.DynamoDBAPI
	tables  config.Tables
	nowFunc func() time.Time
}

// New creates a Store.
func New(client aws.DynamoDBAPI, tables config.Tables) *Store {
	return &Store{
		client:  client,
		tables:  tables,
		nowFunc: time.Now,
	}
}

// Client exposes the underlying DynamoDB client for packages owning their own tables.
func (s *Store) Client() aws.DynamoDBAPI { return s.client }

// Tables returns the configured table names.
func (s *Store) Tables() config.Tables { return s.tables }

func stringKey(attr, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{attr: &types.AttributeValueMemberS{Value: value}}
}

// getItem fetches one item by hash key. Returns (nil, nil) if not found.
func getItem[T any](ctx context.Context, s *Store, table, attr, value string) (*T, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &table,
		Key:            stringKey(attr, value),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", table, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var v T
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s item: %w", table, err)
	}
	return &v, nil
}

// scanAll reads a whole table, following pagination.
func scanAll[T any](ctx context.Context, s *Store, table string) ([]T, error) {
	var (
		out   []T
		start map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &table,
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		var items []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal %s items: %w", table, err)
		}
		out = append(out, items...)
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = page.LastEvaluatedKey
	}
}

// put writes v to table. create guards with attribute_not_exists; otherwise attribute_exists.
func (s *Store) put(ctx context.Context, table, attr string, v any, create bool) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal %s item: %w", table, err)
	}
	cond := "attribute_exists(#pk)"
	if create {
		cond = "attribute_not_exists(#pk)"
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                &table,
		Item:                     item,
		ConditionExpression:      &cond,
		ExpressionAttributeNames: map[string]string{"#pk": attr},
	})
	if err != nil {
		return fmt.Errorf("put %s item: %w", table, err)
	}
	return nil
}

func numberValue(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
