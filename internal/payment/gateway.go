// Package payment creates gateway orders and checks gateway payment signatures.
package payment

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// GatewayOrder is the gateway's handle for a payable order.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Gateway creates payable orders at the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*GatewayOrder, error)
}

// ErrInvalidAmount is returned for non-positive amounts; the provider is not called.
var ErrInvalidAmount = errors.New("payment: amount must be positive")

// orderCreator is the subset of the razorpay order resource used here.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay is a Gateway backed by the Razorpay orders API.
type Razorpay struct {
	orders orderCreator
}

// NewRazorpay returns a Razorpay gateway for the given API key pair.
func NewRazorpay(keyID, keySecret string) *Razorpay {
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{orders: client.Order}
}

// CreateOrder registers amountMinor (paise, cents) with the provider.
func (r *Razorpay) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*GatewayOrder, error) {
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := r.orders.Create(map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay create order: response without id")
	}
	out := &GatewayOrder{ID: id, Amount: amountMinor, Currency: currency, Receipt: receipt}
	if amt, ok := resp["amount"].(float64); ok {
		out.Amount = int64(amt)
	}
	return out, nil
}
