package validation

import "time"

// OrderLine is a single ordered product as the client priced it.
type OrderLine struct {
	ProductID string  `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,min=1,max=3"`
	Price     float64 `json:"price" validate:"required,gt=0"` // discounted unit price
}

// Address is a shipping address.
type Address struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone" validate:"required,min=7,max=15"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country,omitempty"`
}

// PlaceOrderRequest is the payload for POST /orders. The totals are the client's own figures;
// the server recomputes and compares them.
type PlaceOrderRequest struct {
	Products       []OrderLine `json:"products" validate:"required,min=1,max=50,dive"`
	Address        Address     `json:"address"`
	PaymentMethod  string      `json:"payment_method" validate:"required,oneof=cod razorpay"`
	Coupons        []string    `json:"coupons,omitempty" validate:"omitempty,max=5,dive,required"`
	Subtotal       float64     `json:"subtotal" validate:"gt=0"`
	DiscountAmount float64     `json:"discount_amount" validate:"gte=0"`
	TotalAmount    float64     `json:"total_amount" validate:"gt=0"`
	FinalAmount    float64     `json:"final_amount" validate:"gte=0"`
}

// AddCartItemRequest is the payload for POST /cart/items.
type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=3"`
}

// UpdateCartItemRequest is the payload for PATCH /cart/items/:productId.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=3"`
}

// ApplyCouponRequest is the payload for POST /coupons/apply.
type ApplyCouponRequest struct {
	Code     string  `json:"code" validate:"required"`
	Subtotal float64 `json:"subtotal" validate:"gt=0"`
}

// VerifyPaymentRequest carries the gateway's payment confirmation.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required,hexadecimal"`
}

// CancelOrderRequest cancels the listed products, or the whole order when none are listed.
type CancelOrderRequest struct {
	ProductIDs []string `json:"product_ids,omitempty" validate:"omitempty,unique,dive,required"`
	Reason     string   `json:"reason" validate:"required"`
}

// ReturnRequest asks to return whole order lines.
type ReturnRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1,unique,dive,required"`
	Reason     string   `json:"reason" validate:"required"`
}

// UpdateStatusRequest is the payload for PATCH /admin/orders/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=placed processing shipped delivered cancelled"`
	Note   string `json:"note,omitempty"`
}

// ProcessReturnRequest approves or rejects a return request.
type ProcessReturnRequest struct {
	Action     string `json:"action" validate:"required,oneof=approve reject"`
	AdminNote  string `json:"admin_note,omitempty"`
	AllPending bool   `json:"all_pending,omitempty"`
}

// ProductRequest creates or replaces a product.
type ProductRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	CategoryRef string   `json:"category_ref,omitempty"`
	Images      []string `json:"images" validate:"required,min=1,max=3,dive,url"`
	Visible     *bool    `json:"visible,omitempty"`
}

// CategoryRequest creates a category.
type CategoryRequest struct {
	Name    string `json:"name" validate:"required"`
	Visible *bool  `json:"visible,omitempty"`
}

// CategoryVisibilityRequest lists or unlists a category.
type CategoryVisibilityRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

// OfferRequest creates a percentage offer.
type OfferRequest struct {
	Name          string    `json:"name" validate:"required"`
	DiscountValue float64   `json:"discount_value" validate:"gt=0,lt=100"`
	ProductIDs    []string  `json:"product_ids,omitempty" validate:"omitempty,dive,required"`
	CategoryIDs   []string  `json:"category_ids,omitempty" validate:"omitempty,dive,required"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
	IsActive      *bool     `json:"is_active,omitempty"`
}

// CouponRequest creates a coupon.
type CouponRequest struct {
	Code              string    `json:"code" validate:"required,alphanum,max=20"`
	Description       string    `json:"description,omitempty"`
	DiscountType      string    `json:"discount_type" validate:"required,oneof=flat percentage"`
	DiscountValue     float64   `json:"discount_value" validate:"gt=0"`
	MaxDiscount       float64   `json:"max_discount,omitempty" validate:"gte=0"`
	MinPurchaseAmount float64   `json:"min_purchase_amount" validate:"gte=0"`
	StartDate         time.Time `json:"start_date" validate:"required"`
	EndDate           time.Time `json:"end_date" validate:"required"`
	IsActive          *bool     `json:"is_active,omitempty"`
}

// IssueOTPRequest asks for a one-time code.
type IssueOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=signup password_reset profile_edit"`
}

// VerifyOTPRequest checks a one-time code.
type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=signup password_reset profile_edit"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}

// ReferralRequest credits a referral bonus to the referrer.
type ReferralRequest struct {
	ReferredUserID string `json:"referred_user_id" validate:"required"`
}
