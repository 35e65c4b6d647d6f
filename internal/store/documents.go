package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
)

// GetCart fetches a user's cart. Returns (nil, nil) if the user has none.
func (s *Store) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return getItem[domain.Cart](ctx, s, s.tables.Carts, keyUser, userID)
}

// SaveCart writes the cart guarded by its version and bumps the version on success.
func (s *Store) SaveCart(ctx context.Context, cart *domain.Cart) error {
	return s.Begin().SaveCart(cart).Commit(ctx)
}

// GetOrder fetches an order by id. Returns (nil, nil) if not found.
func (s *Store) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return getItem[domain.Order](ctx, s, s.tables.Orders, keyOrder, orderID)
}

// SaveOrder writes a single order guarded by its version.
func (s *Store) SaveOrder(ctx context.Context, order *domain.Order) error {
	return s.Begin().SaveOrder(order).Commit(ctx)
}

// ListOrdersByUser returns a user's orders, newest first.
func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var (
		out   []domain.Order
		start map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Query(ctx, &dyn.QueryInput{
			TableName:                 &s.tables.Orders,
			IndexName:                 awsString(OrdersByUserIndex),
			KeyConditionExpression:    awsString("#uid = :uid"),
			ExpressionAttributeNames:  map[string]string{"#uid": keyUser},
			ExpressionAttributeValues: map[string]types.AttributeValue{":uid": &types.AttributeValueMemberS{Value: userID}},
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return nil, fmt.Errorf("query orders by user: %w", err)
		}
		var orders []domain.Order
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &orders); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		out = append(out, orders...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetWallet fetches a user's wallet. Returns (nil, nil) if it was never created.
func (s *Store) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return getItem[domain.Wallet](ctx, s, s.tables.Wallets, keyUser, userID)
}

// SaveWallet writes a single wallet guarded by its version.
func (s *Store) SaveWallet(ctx context.Context, w *domain.Wallet) error {
	return s.Begin().SaveWallet(w).Commit(ctx)
}

// PutNotification stores a delivered notification. Redelivery of the same notification is a no-op.
func (s *Store) PutNotification(ctx context.Context, n domain.Notification) error {
	err := s.put(ctx, s.tables.Notifications, keyNotification, n, true)
	if isConditionFailed(err) {
		return nil
	}
	return err
}
