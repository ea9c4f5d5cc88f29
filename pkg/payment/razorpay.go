package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/razorpay/razorpay-go"
)

type RazorpayGateway struct {
	client    *razorpay.Client
	keySecret string
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client:    razorpay.NewClient(keyID, keySecret),
		keySecret: keySecret,
	}
}

func (r *RazorpayGateway) CreateOrder(ctx context.Context, request *OrderRequest) (*Order, error) {
	orderData := map[string]interface{}{
		"amount":   request.Amount * 100, // paise
		"currency": request.Currency,
		"receipt":  request.Receipt,
	}

	order, err := r.client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return &Order{
		ID:       order["id"].(string),
		Amount:   request.Amount,
		Currency: request.Currency,
		Status:   "created",
	}, nil
}

// Verify checks the payment callback signature: HMAC-SHA256 of
// "<order_id>|<payment_id>" under the key secret.
func (r *RazorpayGateway) Verify(ctx context.Context, verification *Verification) (bool, error) {
	mac := hmac.New(sha256.New, []byte(r.keySecret))
	mac.Write([]byte(verification.OrderID + "|" + verification.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(verification.Signature)), nil
}
