package idempotency

import "time"

// StatusDone marks a record whose order was committed in the same transaction.
const StatusDone = "DONE"

// IdempotencyRecord is the shape persisted in the idempotency DynamoDB table.
type IdempotencyRecord struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK
	Status         string    `dynamodbav:"status"`
	UserID         string    `dynamodbav:"user_id"`
	OrderID        string    `dynamodbav:"order_id"`
	RequestHash    string    `dynamodbav:"request_hash"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
}

// Expired reports whether the record is past its window at now. DynamoDB TTL deletion is
// lazy, so readers must check this themselves.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}
