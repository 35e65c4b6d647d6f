// Package domain holds the persisted shapes and shared enums of the storefront.
package domain

import (
	"time"

	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
)

// ShippingFee is charged once per order.
const ShippingFee = 50.0

// MaxQuantityPerProduct caps a single product's quantity in a cart or order.
const MaxQuantityPerProduct = 3

// An order commits as one DynamoDB transaction (one item per line and coupon, plus order, cart and
// idempotency record), which holds at most 100 items.
const (
	MaxOrderLines      = 50
	MaxCouponsPerOrder = 5
)

// Product is a catalog item.
type Product struct {
	ProductID   string    `dynamodbav:"product_id" json:"product_id"`
	Name        string    `dynamodbav:"name" json:"name"`
	Description string    `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Price       float64   `dynamodbav:"price" json:"price"`
	Stock       int       `dynamodbav:"stock" json:"stock"`
	Category    string    `dynamodbav:"category,omitempty" json:"category,omitempty"`
	CategoryRef string    `dynamodbav:"category_ref,omitempty" json:"category_ref,omitempty"`
	Images      []string  `dynamodbav:"images,omitempty" json:"images,omitempty"`
	Visible     bool      `dynamodbav:"visible" json:"visible"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// Category groups products; hidden categories hide their products from the storefront.
type Category struct {
	CategoryID string    `dynamodbav:"category_id" json:"category_id"`
	Name       string    `dynamodbav:"name" json:"name"`
	Visible    bool      `dynamodbav:"visible" json:"visible"`
	CreatedAt  time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt  time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// Offer is a time-boxed percentage discount on products or categories.
type Offer struct {
	OfferID       string    `dynamodbav:"offer_id" json:"offer_id"`
	Name          string    `dynamodbav:"name" json:"name"`
	DiscountValue float64   `dynamodbav:"discount_value" json:"discount_value"`
	ProductIDs    []string  `dynamodbav:"product_ids,omitempty" json:"product_ids,omitempty"`
	CategoryIDs   []string  `dynamodbav:"category_ids,omitempty" json:"category_ids,omitempty"`
	StartDate     time.Time `dynamodbav:"start_date" json:"start_date"`
	EndDate       time.Time `dynamodbav:"end_date" json:"end_date"`
	IsActive      bool      `dynamodbav:"is_active" json:"is_active"`
	CreatedAt     time.Time `dynamodbav:"created_at" json:"created_at"`
}

// ActiveAt reports whether the offer applies at now.
func (o Offer) ActiveAt(now time.Time) bool {
	return o.IsActive && !now.Before(o.StartDate) && !now.After(o.EndDate)
}

// OfferSnapshot is the copy of an offer's terms kept on cart and order lines.
type OfferSnapshot struct {
	OfferID       string  `dynamodbav:"offer_id" json:"offer_id"`
	Name          string  `dynamodbav:"name" json:"name"`
	DiscountValue float64 `dynamodbav:"discount_value" json:"discount_value"`
}

// Coupon is a cart-level discount.
type Coupon struct {
	Code              string       `dynamodbav:"code" json:"code"`
	Description       string       `dynamodbav:"description,omitempty" json:"description,omitempty"`
	DiscountType      DiscountType `dynamodbav:"discount_type" json:"discount_type"`
	DiscountValue     float64      `dynamodbav:"discount_value" json:"discount_value"`
	MaxDiscount       float64      `dynamodbav:"max_discount,omitempty" json:"max_discount,omitempty"`
	MinPurchaseAmount float64      `dynamodbav:"min_purchase_amount" json:"min_purchase_amount"`
	StartDate         time.Time    `dynamodbav:"start_date" json:"start_date"`
	EndDate           time.Time    `dynamodbav:"end_date" json:"end_date"`
	IsActive          bool         `dynamodbav:"is_active" json:"is_active"`
	UsedCount         int          `dynamodbav:"used_count" json:"used_count"`
	CreatedAt         time.Time    `dynamodbav:"created_at" json:"created_at"`
}

// InWindow reports whether now falls inside the coupon's date window.
func (c Coupon) InWindow(now time.Time) bool {
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// AppliedCoupon is the snapshot of coupon terms stored on an order.
type AppliedCoupon struct {
	Code              string       `dynamodbav:"code" json:"code"`
	DiscountType      DiscountType `dynamodbav:"discount_type" json:"discount_type"`
	DiscountValue     float64      `dynamodbav:"discount_value" json:"discount_value"`
	MaxDiscount       float64      `dynamodbav:"max_discount,omitempty" json:"max_discount,omitempty"`
	MinPurchaseAmount float64      `dynamodbav:"min_purchase_amount" json:"min_purchase_amount"`
	DiscountAmount    float64      `dynamodbav:"discount_amount" json:"discount_amount"`
}

// CartItem is one product line in a cart.
type CartItem struct {
	ProductID     string         `dynamodbav:"product_id" json:"product_id"`
	Name          string         `dynamodbav:"name" json:"name"`
	Quantity      int            `dynamodbav:"quantity" json:"quantity"`
	Price         float64        `dynamodbav:"price" json:"price"`
	OriginalPrice float64        `dynamodbav:"original_price" json:"original_price"`
	Offer         *OfferSnapshot `dynamodbav:"offer,omitempty" json:"offer,omitempty"`
}

// Cart is a user's mutable line-item collection.
type Cart struct {
	UserID     string     `dynamodbav:"user_id" json:"user_id"`
	Items      []CartItem `dynamodbav:"items" json:"items"`
	TotalItems int        `dynamodbav:"total_items" json:"total_items"`
	TotalPrice float64    `dynamodbav:"total_price" json:"total_price"`
	Version    int64      `dynamodbav:"version" json:"-"`
	UpdatedAt  time.Time  `dynamodbav:"updated_at" json:"updated_at"`
}

// Address is copied onto the order at placement.
type Address struct {
	Name       string `dynamodbav:"name" json:"name" validate:"required"`
	Phone      string `dynamodbav:"phone" json:"phone" validate:"required"`
	Line1      string `dynamodbav:"line1" json:"line1" validate:"required"`
	Line2      string `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City       string `dynamodbav:"city" json:"city" validate:"required"`
	State      string `dynamodbav:"state" json:"state" validate:"required"`
	PostalCode string `dynamodbav:"postal_code" json:"postal_code" validate:"required"`
	Country    string `dynamodbav:"country,omitempty" json:"country,omitempty"`
}

// OrderProduct is one product line of an order, with its own cancellation and return state.
type OrderProduct struct {
	ProductID       string         `dynamodbav:"product_id" json:"product_id"`
	Name            string         `dynamodbav:"name" json:"name"`
	Quantity        int            `dynamodbav:"quantity" json:"quantity"`
	Price           float64        `dynamodbav:"price" json:"price"`
	DiscountedPrice float64        `dynamodbav:"discounted_price" json:"discounted_price"`
	Offer           *OfferSnapshot `dynamodbav:"offer,omitempty" json:"offer,omitempty"`
	Cancelled       bool           `dynamodbav:"cancelled" json:"cancelled"`
	CancelReason    string         `dynamodbav:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	CancelledAt     *time.Time     `dynamodbav:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	ReturnStatus    ReturnStatus   `dynamodbav:"return_status" json:"return_status"`
}

// LineTotal is discountedPrice * quantity.
func (p OrderProduct) LineTotal() float64 {
	return money.Line(p.DiscountedPrice, p.Quantity)
}

// StatusEntry is one entry of the order's status timeline.
type StatusEntry struct {
	Status string    `dynamodbav:"status" json:"status"`
	Note   string    `dynamodbav:"note,omitempty" json:"note,omitempty"`
	At     time.Time `dynamodbav:"at" json:"at"`
}

// ReturnItem is one product covered by a return request.
type ReturnItem struct {
	ProductID string  `dynamodbav:"product_id" json:"product_id"`
	Quantity  int     `dynamodbav:"quantity" json:"quantity"`
	Price     float64 `dynamodbav:"price" json:"price"`
}

// ReturnRequest is embedded in the order.
type ReturnRequest struct {
	RequestID       string              `dynamodbav:"request_id" json:"request_id"`
	Items           []ReturnItem        `dynamodbav:"items" json:"items"`
	Reason          string              `dynamodbav:"reason" json:"reason"`
	Status          ReturnRequestStatus `dynamodbav:"status" json:"status"`
	EstimatedRefund float64             `dynamodbav:"estimated_refund" json:"estimated_refund"`
	RequestedAt     time.Time           `dynamodbav:"requested_at" json:"requested_at"`
	ProcessedAt     *time.Time          `dynamodbav:"processed_at,omitempty" json:"processed_at,omitempty"`
	RefundedAt      *time.Time          `dynamodbav:"refunded_at,omitempty" json:"refunded_at,omitempty"`
	AdminNote       string              `dynamodbav:"admin_note,omitempty" json:"admin_note,omitempty"`
}

// ReturnPolicy bounds when returns may be requested.
type ReturnPolicy struct {
	LastReturnDate *time.Time `dynamodbav:"last_return_date,omitempty" json:"last_return_date,omitempty"`
}

// Order is the immutable purchase snapshot plus its lifecycle state.
type Order struct {
	OrderID                 string          `dynamodbav:"order_id" json:"order_id"`
	OrderNumber             string          `dynamodbav:"order_number" json:"order_number"`
	UserID                  string          `dynamodbav:"user_id" json:"user_id"`
	Products                []OrderProduct  `dynamodbav:"products" json:"products"`
	ShippingAddress         Address         `dynamodbav:"shipping_address" json:"shipping_address"`
	PaymentMethod           PaymentMethod   `dynamodbav:"payment_method" json:"payment_method"`
	PaymentStatus           bool            `dynamodbav:"payment_status" json:"payment_status"`
	GatewayOrderID          string          `dynamodbav:"gateway_order_id,omitempty" json:"gateway_order_id,omitempty"`
	GatewayPaymentID        string          `dynamodbav:"gateway_payment_id,omitempty" json:"gateway_payment_id,omitempty"`
	Subtotal                float64         `dynamodbav:"subtotal" json:"subtotal"`
	DiscountAmount          float64         `dynamodbav:"discount_amount" json:"discount_amount"`
	ShippingFee             float64         `dynamodbav:"shipping_fee" json:"shipping_fee"`
	TotalAmount             float64         `dynamodbav:"total_amount" json:"total_amount"`
	FinalAmount             float64         `dynamodbav:"final_amount" json:"final_amount"`
	Coupons                 []AppliedCoupon `dynamodbav:"coupons,omitempty" json:"coupons,omitempty"`
	Status                  OrderStatus     `dynamodbav:"status" json:"status"`
	StatusTimeline          []StatusEntry   `dynamodbav:"status_timeline" json:"status_timeline"`
	ReturnRequests          []ReturnRequest `dynamodbav:"return_requests,omitempty" json:"return_requests,omitempty"`
	ReturnPolicy            ReturnPolicy    `dynamodbav:"return_policy" json:"return_policy"`
	CancellationWindowHours int             `dynamodbav:"cancellation_window_hours,omitempty" json:"cancellation_window_hours,omitempty"`
	DeliveredAt             *time.Time      `dynamodbav:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	IdempotencyKey          string          `dynamodbav:"idempotency_key,omitempty" json:"-"`
	Version                 int64           `dynamodbav:"version" json:"-"`
	CreatedAt               time.Time       `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt               time.Time       `dynamodbav:"updated_at" json:"updated_at"`
}

// Product returns a pointer to the order line for productID, or nil.
func (o *Order) Product(productID string) *OrderProduct {
	for i := range o.Products {
		if o.Products[i].ProductID == productID {
			return &o.Products[i]
		}
	}
	return nil
}

// ReturnRequest returns a pointer to the embedded return request, or nil.
func (o *Order) ReturnRequest(requestID string) *ReturnRequest {
	for i := range o.ReturnRequests {
		if o.ReturnRequests[i].RequestID == requestID {
			return &o.ReturnRequests[i]
		}
	}
	return nil
}

// AppendTimeline records an event on the status timeline.
func (o *Order) AppendTimeline(status, note string, at time.Time) {
	o.StatusTimeline = append(o.StatusTimeline, StatusEntry{Status: status, Note: note, At: at})
}

// Wallet is a user's balance and append-only ledger.
type Wallet struct {
	UserID       string              `dynamodbav:"user_id" json:"user_id"`
	Balance      float64             `dynamodbav:"balance" json:"balance"`
	Transactions []WalletTransaction `dynamodbav:"transactions" json:"transactions"`
	Version      int64               `dynamodbav:"version" json:"-"`
	CreatedAt    time.Time           `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `dynamodbav:"updated_at" json:"updated_at"`
}

// WalletTransaction is one ledger entry.
type WalletTransaction struct {
	TransactionID string            `dynamodbav:"transaction_id" json:"transaction_id"`
	Type          TransactionType   `dynamodbav:"type" json:"type"`
	Amount        float64           `dynamodbav:"amount" json:"amount"`
	Description   string            `dynamodbav:"description" json:"description"`
	Status        TransactionStatus `dynamodbav:"status" json:"status"`
	Reference     Reference         `dynamodbav:"reference" json:"reference"`
	Date          time.Time         `dynamodbav:"date" json:"date"`
}

// Notification is a lifecycle event delivered to an admin or a user.
type Notification struct {
	NotificationID string    `dynamodbav:"notification_id" json:"notification_id"`
	Channel        string    `dynamodbav:"channel" json:"channel"`
	RecipientID    string    `dynamodbav:"recipient_id" json:"recipient_id"`
	Role           string    `dynamodbav:"role" json:"role"`
	Type           string    `dynamodbav:"type" json:"type"`
	Message        string    `dynamodbav:"message" json:"message"`
	RelatedID      string    `dynamodbav:"related_id,omitempty" json:"related_id,omitempty"`
	Read           bool      `dynamodbav:"read" json:"read"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"created_at"`
}
