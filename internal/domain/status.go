package domain

// OrderStatus is the top-level order state.
type OrderStatus string

const (
	StatusPlaced                   OrderStatus = "placed"
	StatusProcessing               OrderStatus = "processing"
	StatusShipped                  OrderStatus = "shipped"
	StatusDelivered                OrderStatus = "delivered"
	StatusCancelled                OrderStatus = "cancelled"
	StatusPartiallyCancelled       OrderStatus = "partially_cancelled"
	StatusReturnRequested          OrderStatus = "return_requested"
	StatusPartiallyReturnRequested OrderStatus = "partially_return_requested"
	StatusReturned                 OrderStatus = "returned"
	StatusPartiallyReturned        OrderStatus = "partially_returned"
)

var allStatuses = []OrderStatus{
	StatusPlaced,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusPartiallyCancelled,
	StatusReturnRequested,
	StatusPartiallyReturnRequested,
	StatusReturned,
	StatusPartiallyReturned,
}

// OrderStatuses lists every order status.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, st := range allStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusReturned
}

// Timeline event names that are not order statuses.
const (
	TimelinePaid = "paid"
)

// ReturnStatus is the per-line return sub-status.
type ReturnStatus string

const (
	ReturnNone      ReturnStatus = "none"
	ReturnRequested ReturnStatus = "return_requested"
	ReturnApproved  ReturnStatus = "return_approved"
	ReturnRejected  ReturnStatus = "return_rejected"
)

// ReturnRequestStatus is the state of one embedded return request.
type ReturnRequestStatus string

const (
	ReturnRequestRequested ReturnRequestStatus = "requested"
	ReturnRequestApproved  ReturnRequestStatus = "approved"
	ReturnRequestRejected  ReturnRequestStatus = "rejected"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCOD      PaymentMethod = "cod"
	PaymentRazorpay PaymentMethod = "razorpay"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentRazorpay
}

// DiscountType is how a coupon or offer reduces a price.
type DiscountType string

const (
	DiscountFlat       DiscountType = "flat"
	DiscountPercentage DiscountType = "percentage"
)

// TransactionType is the direction of a wallet ledger entry.
type TransactionType string

const (
	TxnCredit TransactionType = "credit"
	TxnDebit  TransactionType = "debit"
)

// TransactionStatus is the settlement state of a wallet ledger entry.
type TransactionStatus string

const (
	TxnCompleted TransactionStatus = "completed"
	TxnPending   TransactionStatus = "pending"
	TxnFailed    TransactionStatus = "failed"
)
