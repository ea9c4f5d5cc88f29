package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

type StripeGateway struct {
	currencyFallback string
}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{
		currencyFallback: "usd",
	}
}

func (s *StripeGateway) CreateOrder(ctx context.Context, request *OrderRequest) (*Order, error) {
	currency := request.Currency
	if currency == "" {
		currency = s.currencyFallback
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(request.Amount) * 100),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("receipt", request.Receipt)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &Order{
		ID:       intent.ID,
		Amount:   request.Amount,
		Currency: currency,
		Status:   string(intent.Status),
	}, nil
}

// Verify confirms the intent reached the succeeded state. Stripe has no
// client-side signature equivalent, so the check is a server-side lookup.
func (s *StripeGateway) Verify(ctx context.Context, verification *Verification) (bool, error) {
	intent, err := paymentintent.Get(verification.OrderID, nil)
	if err != nil {
		return false, fmt.Errorf("failed to fetch payment intent: %w", err)
	}

	return intent.Status == stripe.PaymentIntentStatusSucceeded, nil
}
