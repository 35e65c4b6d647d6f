package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
)

type opKind int

const (
	opVersioned opKind = iota
	opReserve
	opRestock
	opCoupon
	opUnique
	opDelete
)

type txnOp struct {
	kind  opKind
	label string
}

// Txn collects the writes of one workflow and commits them with a single TransactWriteItems
// call: either every write lands or none does. Stock and coupon counters are atomic ADDs on
// the item, never read-modify-write.
type Txn struct {
	s       *Store
	items   []types.TransactWriteItem
	ops     []txnOp
	stock   map[string]int
	coupons map[string]int
	after   []func()
	err     error
}

// Begin starts a new transaction builder.
func (s *Store) Begin() *Txn {
	return &Txn{
		s:       s,
		stock:   map[string]int{},
		coupons: map[string]int{},
	}
}

func (t *Txn) add(item types.TransactWriteItem, op txnOp) {
	t.items = append(t.items, item)
	t.ops = append(t.ops, op)
}

// saveVersioned writes v guarded by the version read in this workflow. Version 0 means the
// document is new and must not exist yet.
func (t *Txn) saveVersioned(table, attr, label string, v any, expected int64) {
	if t.err != nil {
		return
	}
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		t.err = fmt.Errorf("marshal %s: %w", label, err)
		return
	}
	put := &types.Put{
		TableName:                sdkaws.String(table),
		Item:                     item,
		ExpressionAttributeNames: map[string]string{"#pk": attr},
	}
	if expected == 0 {
		put.ConditionExpression = awsString("attribute_not_exists(#pk)")
	} else {
		put.ConditionExpression = awsString("attribute_exists(#pk) AND #v = :expected")
		put.ExpressionAttributeNames["#v"] = "version"
		put.ExpressionAttributeValues = map[string]types.AttributeValue{":expected": numberValue(expected)}
	}
	t.add(types.TransactWriteItem{Put: put}, txnOp{kind: opVersioned, label: label})
}

// SaveOrder writes order; on commit order.Version and UpdatedAt advance.
func (t *Txn) SaveOrder(order *domain.Order) *Txn {
	now := t.s.nowFunc().UTC()
	cp := *order
	cp.Version = order.Version + 1
	cp.UpdatedAt = now
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	t.saveVersioned(t.s.tables.Orders, keyOrder, "order "+order.OrderID, cp, order.Version)
	t.after = append(t.after, func() {
		order.Version = cp.Version
		order.UpdatedAt = cp.UpdatedAt
		order.CreatedAt = cp.CreatedAt
	})
	return t
}

// SaveCart writes cart; on commit cart.Version advances.
func (t *Txn) SaveCart(cart *domain.Cart) *Txn {
	cp := *cart
	cp.Version = cart.Version + 1
	cp.UpdatedAt = t.s.nowFunc().UTC()
	t.saveVersioned(t.s.tables.Carts, keyUser, "cart "+cart.UserID, cp, cart.Version)
	t.after = append(t.after, func() {
		cart.Version = cp.Version
		cart.UpdatedAt = cp.UpdatedAt
	})
	return t
}

// SaveWallet writes w; on commit w.Version advances.
func (t *Txn) SaveWallet(w *domain.Wallet) *Txn {
	now := t.s.nowFunc().UTC()
	cp := *w
	cp.Version = w.Version + 1
	cp.UpdatedAt = now
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	t.saveVersioned(t.s.tables.Wallets, keyUser, "wallet "+w.UserID, cp, w.Version)
	t.after = append(t.after, func() {
		w.Version = cp.Version
		w.UpdatedAt = cp.UpdatedAt
		w.CreatedAt = cp.CreatedAt
	})
	return t
}

// ReserveStock decrements a product's stock by quantity, failing the whole transaction if
// stock would go negative.
func (t *Txn) ReserveStock(productID string, quantity int) *Txn {
	t.stock[productID] -= quantity
	return t
}

// RestockProduct increments a product's stock by quantity.
func (t *Txn) RestockProduct(productID string, quantity int) *Txn {
	t.stock[productID] += quantity
	return t
}

// IncrementCouponUsage bumps a coupon's usage counter.
func (t *Txn) IncrementCouponUsage(code string) *Txn {
	t.coupons[code]++
	return t
}

// DeleteCart removes a user's cart.
func (t *Txn) DeleteCart(userID string) *Txn {
	t.add(types.TransactWriteItem{Delete: &types.Delete{
		TableName: sdkaws.String(t.s.tables.Carts),
		Key:       stringKey(keyUser, userID),
	}}, txnOp{kind: opDelete, label: "cart " + userID})
	return t
}

// ClaimUnique adds a put that must not overwrite an existing item, e.g. an idempotency record.
func (t *Txn) ClaimUnique(put types.Put, label string) *Txn {
	t.add(types.TransactWriteItem{Put: &put}, txnOp{kind: opUnique, label: label})
	return t
}

func (t *Txn) flushCounters() {
	productIDs := make([]string, 0, len(t.stock))
	for id := range t.stock {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)
	for _, id := range productIDs {
		delta := t.stock[id]
		if delta == 0 {
			continue
		}
		update := &types.Update{
			TableName:                 sdkaws.String(t.s.tables.Products),
			Key:                       stringKey(keyProduct, id),
			UpdateExpression:          awsString("ADD #stock :delta"),
			ExpressionAttributeNames:  map[string]string{"#pk": keyProduct, "#stock": "stock"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":delta": numberValue(int64(delta))},
			ConditionExpression:       awsString("attribute_exists(#pk)"),
		}
		kind := opRestock
		if delta < 0 {
			kind = opReserve
			update.ConditionExpression = awsString("attribute_exists(#pk) AND #stock >= :need")
			update.ExpressionAttributeValues[":need"] = numberValue(int64(-delta))
		}
		t.add(types.TransactWriteItem{Update: update}, txnOp{kind: kind, label: id})
	}

	codes := make([]string, 0, len(t.coupons))
	for code := range t.coupons {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		t.add(types.TransactWriteItem{Update: &types.Update{
			TableName:                 sdkaws.String(t.s.tables.Coupons),
			Key:                       stringKey(keyCoupon, code),
			UpdateExpression:          awsString("ADD #used :n"),
			ExpressionAttributeNames:  map[string]string{"#pk": keyCoupon, "#used": "used_count"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":n": numberValue(int64(t.coupons[code]))},
			ConditionExpression:       awsString("attribute_exists(#pk)"),
		}}, txnOp{kind: opCoupon, label: code})
	}
	t.stock = map[string]int{}
	t.coupons = map[string]int{}
}

// Commit issues the transaction. Condition failures come back as domain errors naming the
// write that failed; nothing is written in that case.
func (t *Txn) Commit(ctx context.Context) error {
	if t.err != nil {
		return t.err
	}
	t.flushCounters()
	if len(t.items) == 0 {
		return nil
	}

	_, err := t.s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: t.items,
	})
	if err != nil {
		return t.mapError(err)
	}
	for _, fn := range t.after {
		fn()
	}
	return nil
}

func (t *Txn) mapError(err error) error {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return fmt.Errorf("transact write: %w", err)
	}
	for i, reason := range tce.CancellationReasons {
		code := sdkaws.ToString(reason.Code)
		if code == "" || code == "None" || i >= len(t.ops) {
			continue
		}
		op := t.ops[i]
		if code != "ConditionalCheckFailed" {
			return domain.WrapError(domain.CodeConcurrentModification, err, "%s: %s", op.label, code)
		}
		switch op.kind {
		case opReserve:
			return domain.WrapError(domain.CodeInsufficientStock, err, "insufficient stock for product %s", op.label)
		case opRestock:
			return domain.WrapError(domain.CodeProductNotFound, err, "product %s not found", op.label)
		case opCoupon:
			return domain.WrapError(domain.CodeCouponNotFound, err, "coupon %s not found", op.label)
		case opUnique:
			return domain.WrapError(domain.CodeIdempotencyConflict, err, "%s already used", op.label)
		default:
			return domain.WrapError(domain.CodeConcurrentModification, err, "%s was modified concurrently", op.label)
		}
	}
	return domain.WrapError(domain.CodeConcurrentModification, err, "transaction cancelled")
}
