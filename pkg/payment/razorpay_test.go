package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayVerifySignature(t *testing.T) {
	gateway := NewRazorpayGateway("key_id", "key_secret")

	ok, err := gateway.Verify(context.Background(), &Verification{
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: signPayload("key_secret", "order_1", "pay_1"),
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRazorpayVerifyRejectsTamperedSignature(t *testing.T) {
	gateway := NewRazorpayGateway("key_id", "key_secret")

	ok, err := gateway.Verify(context.Background(), &Verification{
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: signPayload("wrong_secret", "order_1", "pay_1"),
	})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = gateway.Verify(context.Background(), &Verification{
		OrderID:   "order_2",
		PaymentID: "pay_1",
		Signature: signPayload("key_secret", "order_1", "pay_1"),
	})
	require.NoError(t, err)
	assert.False(t, ok)
}
