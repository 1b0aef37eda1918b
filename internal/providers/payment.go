package providers

import (
	"context"
	"fmt"
	"net/http"

	"voyager/internal/travel/saga"
)

// PaymentClient talks to the payment provider.
type PaymentClient struct {
	client
}

// NewPaymentClient constructs a client against the provider's base URL.
func NewPaymentClient(cfg Config) *PaymentClient {
	return &PaymentClient{client: newClient("payment", cfg)}
}

// Charge submits the payment and returns the provider's confirmation id.
func (c *PaymentClient) Charge(ctx context.Context, traveler saga.TravelerInfo, details saga.PaymentDetails, amount float64) (string, error) {
	payload := struct {
		CustomerID string  `json:"customerId"`
		Email      string  `json:"email"`
		CardNumber string  `json:"cardNumber"`
		CardHolder string  `json:"cardHolder"`
		Expiration string  `json:"expiration"`
		CVV        string  `json:"cvv"`
		Amount     float64 `json:"amount"`
	}{
		CustomerID: traveler.CustomerID,
		Email:      traveler.Email,
		CardNumber: details.CardNumber,
		CardHolder: details.CardHolder,
		Expiration: details.Expiration,
		CVV:        details.CVV,
		Amount:     amount,
	}

	var out struct {
		ConfirmationID string `json:"confirmationId"`
	}
	if err := c.postJSON(ctx, "/api/payments", payload, &out); err != nil {
		return "", err
	}
	if out.ConfirmationID == "" {
		return "", fmt.Errorf("payment service: response did not contain a confirmation id")
	}
	return out.ConfirmationID, nil
}

// Refund reverses the charge. Provider refusals are logged, not returned.
func (c *PaymentClient) Refund(ctx context.Context, confirmationID string) error {
	return c.send(ctx, http.MethodPost, "/api/payments/"+confirmationID+"/refund")
}
