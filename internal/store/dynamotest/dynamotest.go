// Package dynamotest is an in-memory DynamoDB used by tests. It understands the condition,
// key-condition and update expressions the store emits: AND-joined comparisons and
// attribute_(not_)exists checks joined by AND / OR, and SET / ADD / REMOVE update clauses.
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

type item = map[string]types.AttributeValue

// DB is a minimal DynamoDB with one hash key per table.
type DB struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]item

	// FailTransact, when set, is returned by every TransactWriteItems call before any write.
	FailTransact error

	TransactCalls int
	PutCalls      int
	UpdateCalls   int
}

// New returns an empty DB. keys maps table name to its hash key attribute.
func New(keys map[string]string) *DB {
	return &DB{
		keys:   keys,
		tables: map[string]map[string]item{},
	}
}

// Put marshals v and stores it directly, bypassing conditions.
func (d *DB) Put(table string, v any) error {
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	pk, err := d.itemKey(table, av)
	if err != nil {
		return err
	}
	d.table(table)[pk] = av
	return nil
}

// Get unmarshals the stored item into out. It reports whether the item exists.
func (d *DB) Get(table, key string, out any) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	it, ok := d.table(table)[key]
	if !ok {
		return false, nil
	}
	return true, attributevalue.UnmarshalMap(it, out)
}

// Count returns the number of items in table.
func (d *DB) Count(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.table(table))
}

func (d *DB) table(name string) map[string]item {
	t, ok := d.tables[name]
	if !ok {
		t = map[string]item{}
		d.tables[name] = t
	}
	return t
}

func (d *DB) itemKey(table string, it item) (string, error) {
	attr, ok := d.keys[table]
	if !ok {
		return "", fmt.Errorf("dynamotest: unknown table %q", table)
	}
	v, ok := it[attr]
	if !ok {
		return "", fmt.Errorf("dynamotest: item for %q missing key %q", table, attr)
	}
	return scalar(v)
}

func (d *DB) lookupKey(table string, key item) (string, error) {
	attr, ok := d.keys[table]
	if !ok {
		return "", fmt.Errorf("dynamotest: unknown table %q", table)
	}
	v, ok := key[attr]
	if !ok || len(key) != 1 {
		return "", validation("key must contain exactly %q", attr)
	}
	return scalar(v)
}

// GetItem implements the DynamoDB API.
func (d *DB) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pk, err := d.lookupKey(*params.TableName, params.Key)
	if err != nil {
		return nil, err
	}
	it, ok := d.table(*params.TableName)[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(it)}, nil
}

// PutItem implements the DynamoDB API.
func (d *DB) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PutCalls++
	table := *params.TableName
	pk, err := d.itemKey(table, params.Item)
	if err != nil {
		return nil, err
	}
	ok, err := evalCondition(sdkaws.ToString(params.ConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, d.table(table)[pk])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: sdkaws.String("The conditional request failed")}
	}
	d.table(table)[pk] = clone(params.Item)
	return &dyn.PutItemOutput{}, nil
}

// UpdateItem implements the DynamoDB API.
func (d *DB) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.UpdateCalls++
	table := *params.TableName
	pk, err := d.lookupKey(table, params.Key)
	if err != nil {
		return nil, err
	}
	current := d.table(table)[pk]
	ok, err := evalCondition(sdkaws.ToString(params.ConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, current)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: sdkaws.String("The conditional request failed")}
	}
	updated, err := applyUpdate(sdkaws.ToString(params.UpdateExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, current, params.Key)
	if err != nil {
		return nil, err
	}
	d.table(table)[pk] = updated
	return &dyn.UpdateItemOutput{Attributes: clone(updated)}, nil
}

// Query evaluates KeyConditionExpression (and FilterExpression) against every item of the table.
// IndexName is accepted and ignored.
func (d *DB) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []item
	for _, it := range d.table(*params.TableName) {
		ok, err := evalCondition(sdkaws.ToString(params.KeyConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, it)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ok, err = evalCondition(sdkaws.ToString(params.FilterExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, it)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, clone(it))
		}
	}
	return &dyn.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

// Scan returns every item of the table that passes FilterExpression.
func (d *DB) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []item
	for _, it := range d.table(*params.TableName) {
		ok, err := evalCondition(sdkaws.ToString(params.FilterExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, it)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, clone(it))
		}
	}
	return &dyn.ScanOutput{Items: out, Count: int32(len(out))}, nil
}

type pending struct {
	table string
	pk    string
	apply func() (item, bool, error) // returns new item, delete flag
}

// TransactWriteItems checks every condition first and applies all writes only if none failed.
func (d *DB) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.TransactCalls++
	if d.FailTransact != nil {
		return nil, d.FailTransact
	}
	if len(params.TransactItems) == 0 || len(params.TransactItems) > 100 {
		return nil, validation("transaction must contain 1..100 items, got %d", len(params.TransactItems))
	}

	seen := map[string]bool{}
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	ops := make([]pending, 0, len(params.TransactItems))
	failed := false

	for i, ti := range params.TransactItems {
		var (
			table, pk, cond string
			names           map[string]string
			values          map[string]types.AttributeValue
			err             error
			apply           func() (item, bool, error)
		)
		switch {
		case ti.Put != nil:
			p := ti.Put
			table = *p.TableName
			pk, err = d.itemKey(table, p.Item)
			cond, names, values = sdkaws.ToString(p.ConditionExpression), p.ExpressionAttributeNames, p.ExpressionAttributeValues
			newItem := clone(p.Item)
			apply = func() (item, bool, error) { return newItem, false, nil }
		case ti.Update != nil:
			u := ti.Update
			table = *u.TableName
			pk, err = d.lookupKey(table, u.Key)
			cond, names, values = sdkaws.ToString(u.ConditionExpression), u.ExpressionAttributeNames, u.ExpressionAttributeValues
			tbl, key := table, pk
			apply = func() (item, bool, error) {
				it, err := applyUpdate(sdkaws.ToString(u.UpdateExpression), u.ExpressionAttributeNames, u.ExpressionAttributeValues, d.table(tbl)[key], u.Key)
				return it, false, err
			}
		case ti.Delete != nil:
			del := ti.Delete
			table = *del.TableName
			pk, err = d.lookupKey(table, del.Key)
			cond, names, values = sdkaws.ToString(del.ConditionExpression), del.ExpressionAttributeNames, del.ExpressionAttributeValues
			apply = func() (item, bool, error) { return nil, true, nil }
		case ti.ConditionCheck != nil:
			cc := ti.ConditionCheck
			table = *cc.TableName
			pk, err = d.lookupKey(table, cc.Key)
			cond, names, values = sdkaws.ToString(cc.ConditionExpression), cc.ExpressionAttributeNames, cc.ExpressionAttributeValues
		default:
			return nil, validation("transact item %d has no operation", i)
		}
		if err != nil {
			return nil, err
		}
		id := table + "/" + pk
		if seen[id] {
			return nil, validation("transaction cannot include multiple operations on one item (%s)", id)
		}
		seen[id] = true

		ok, err := evalCondition(cond, names, values, d.table(table)[pk])
		if err != nil {
			return nil, err
		}
		if !ok {
			failed = true
			reasons[i] = types.CancellationReason{Code: sdkaws.String("ConditionalCheckFailed"), Message: sdkaws.String("The conditional request failed")}
		} else {
			reasons[i] = types.CancellationReason{Code: sdkaws.String("None")}
		}
		if apply != nil {
			ops = append(ops, pending{table: table, pk: pk, apply: apply})
		}
	}

	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             sdkaws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	// compute every new image before writing any of them
	type write struct {
		table, pk string
		it        item
		del       bool
	}
	writes := make([]write, 0, len(ops))
	for _, op := range ops {
		it, del, err := op.apply()
		if err != nil {
			return nil, err
		}
		writes = append(writes, write{table: op.table, pk: op.pk, it: it, del: del})
	}
	for _, w := range writes {
		if w.del {
			delete(d.table(w.table), w.pk)
			continue
		}
		d.table(w.table)[w.pk] = w.it
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func validation(format string, args ...any) error {
	return &smithy.GenericAPIError{Code: "ValidationException", Message: fmt.Sprintf(format, args...)}
}

func clone(it item) item {
	if it == nil {
		return nil
	}
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func scalar(v types.AttributeValue) (string, error) {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, nil
	case *types.AttributeValueMemberN:
		return tv.Value, nil
	default:
		return "", validation("unsupported key type %T", v)
	}
}

func resolveName(token string, names map[string]string) (string, error) {
	if strings.HasPrefix(token, "#") {
		n, ok := names[token]
		if !ok {
			return "", validation("missing expression attribute name %s", token)
		}
		return n, nil
	}
	return token, nil
}

func resolveValue(token string, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	v, ok := values[token]
	if !ok {
		return nil, validation("missing expression attribute value %s", token)
	}
	return v, nil
}

func evalCondition(expr string, names map[string]string, values map[string]types.AttributeValue, it item) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	// OR binds looser than AND; parentheses are not supported
	for _, alt := range strings.Split(expr, " OR ") {
		ok, err := evalConjunction(alt, names, values, it)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func evalConjunction(expr string, names map[string]string, values map[string]types.AttributeValue, it item) (bool, error) {
	for _, clause := range strings.Split(expr, " AND ") {
		ok, err := evalClause(strings.TrimSpace(clause), names, values, it)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func evalClause(clause string, names map[string]string, values map[string]types.AttributeValue, it item) (bool, error) {
	for _, fn := range []string{"attribute_not_exists", "attribute_exists"} {
		if strings.HasPrefix(clause, fn+"(") && strings.HasSuffix(clause, ")") {
			attr, err := resolveName(strings.TrimSuffix(strings.TrimPrefix(clause, fn+"("), ")"), names)
			if err != nil {
				return false, err
			}
			_, present := it[attr]
			if fn == "attribute_exists" {
				return present, nil
			}
			return !present, nil
		}
	}

	parts := strings.Fields(clause)
	if len(parts) != 3 {
		return false, validation("unsupported condition %q", clause)
	}
	attr, err := resolveName(parts[0], names)
	if err != nil {
		return false, err
	}
	want, err := resolveValue(parts[2], values)
	if err != nil {
		return false, err
	}
	have, ok := it[attr]
	if !ok {
		return parts[1] == "<>", nil
	}
	cmp, err := compare(have, want)
	if err != nil {
		return false, err
	}
	switch parts[1] {
	case "=":
		return cmp == 0, nil
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return false, validation("unsupported operator %q", parts[1])
	}
}

func compare(a, b types.AttributeValue) (int, error) {
	switch av := a.(type) {
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, validation("type mismatch comparing number")
		}
		x, err := strconv.ParseFloat(av.Value, 64)
		if err != nil {
			return 0, err
		}
		y, err := strconv.ParseFloat(bv.Value, 64)
		if err != nil {
			return 0, err
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, validation("type mismatch comparing string")
		}
		return strings.Compare(av.Value, bv.Value), nil
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		if !ok {
			return 0, validation("type mismatch comparing bool")
		}
		if av.Value == bv.Value {
			return 0, nil
		}
		return 1, nil
	}
	return 0, validation("unsupported comparison type %T", a)
}

var updateKeyword = regexp.MustCompile(`\b(SET|ADD|REMOVE)\s`)

func applyUpdate(expr string, names map[string]string, values map[string]types.AttributeValue, current item, key item) (item, error) {
	out := clone(current)
	if out == nil {
		out = clone(key)
	}
	locs := updateKeyword.FindAllStringSubmatchIndex(expr, -1)
	if len(locs) == 0 {
		return nil, validation("unsupported update expression %q", expr)
	}
	for i, loc := range locs {
		end := len(expr)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		keyword := expr[loc[2]:loc[3]]
		body := strings.TrimSpace(expr[loc[1]:end])
		for _, action := range strings.Split(body, ",") {
			action = strings.TrimSpace(action)
			if action == "" {
				continue
			}
			if err := applyAction(keyword, action, names, values, out); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func applyAction(keyword, action string, names map[string]string, values map[string]types.AttributeValue, it item) error {
	switch keyword {
	case "SET":
		parts := strings.SplitN(action, "=", 2)
		if len(parts) != 2 {
			return validation("unsupported SET action %q", action)
		}
		attr, err := resolveName(strings.TrimSpace(parts[0]), names)
		if err != nil {
			return err
		}
		v, err := resolveValue(strings.TrimSpace(parts[1]), values)
		if err != nil {
			return err
		}
		it[attr] = v
	case "ADD":
		parts := strings.Fields(action)
		if len(parts) != 2 {
			return validation("unsupported ADD action %q", action)
		}
		attr, err := resolveName(parts[0], names)
		if err != nil {
			return err
		}
		v, err := resolveValue(parts[1], values)
		if err != nil {
			return err
		}
		delta, ok := v.(*types.AttributeValueMemberN)
		if !ok {
			return validation("ADD supports numbers only")
		}
		base := "0"
		if cur, ok := it[attr].(*types.AttributeValueMemberN); ok {
			base = cur.Value
		}
		sum, err := addNumbers(base, delta.Value)
		if err != nil {
			return err
		}
		it[attr] = &types.AttributeValueMemberN{Value: sum}
	case "REMOVE":
		attr, err := resolveName(action, names)
		if err != nil {
			return err
		}
		delete(it, attr)
	default:
		return errors.New("dynamotest: unreachable update keyword")
	}
	return nil
}

func addNumbers(a, b string) (string, error) {
	x, errX := strconv.ParseInt(a, 10, 64)
	y, errY := strconv.ParseInt(b, 10, 64)
	if errX == nil && errY == nil {
		return strconv.FormatInt(x+y, 10), nil
	}
	fx, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return "", err
	}
	fy, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(fx+fy, 'f', -1, 64), nil
}
