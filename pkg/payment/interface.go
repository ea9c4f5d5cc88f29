package payment

import "context"

// Gateway is the settlement collaborator. The lifecycle only consumes a
// verified/failed outcome; order mechanics stay behind this interface.
type Gateway interface {
	CreateOrder(ctx context.Context, request *OrderRequest) (*Order, error)
	Verify(ctx context.Context, verification *Verification) (bool, error)
}

type OrderRequest struct {
	Amount   int    `json:"amount"` // major currency units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type Verification struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}
