// internal/payments/stripe.go
package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/tunesoko/tunesoko-backend/internal/config"
	"github.com/tunesoko/tunesoko-backend/internal/models"
)

// StripeProvider covers card payments. Unlike the mobile-money rails it is
// not phone-addressed, and the provider reference is the PaymentIntent id
// the frontend confirms with the client secret.
type StripeProvider struct {
	cfg config.StripeConfig
}

func NewStripeProvider(cfg config.StripeConfig) *StripeProvider {
	// Initialize Stripe
	stripe.Key = cfg.SecretKey

	return &StripeProvider{cfg: cfg}
}

func (p *StripeProvider) Name() models.PaymentProvider {
	return models.PaymentProviderStripe
}

func (p *StripeProvider) ValidatePhoneNumber(phone string) bool {
	// Card payments are not phone-addressed.
	return true
}

func (p *StripeProvider) Initiate(ctx context.Context, payment *models.Payment) (*InitiationResult, error) {
	// UGX is a zero-decimal currency in Stripe.
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(payment.Amount)),
		Currency: stripe.String(strings.ToLower(payment.Currency)),
	}
	params.AddMetadata("transaction_id", payment.TransactionID)
	params.AddMetadata("order_id", payment.OrderID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &InitiationResult{
		Success:           true,
		Message:           "Payment intent created",
		TransactionID:     payment.TransactionID,
		ProviderReference: pi.ID,
		Instructions:      "Confirm the payment with client secret " + pi.ClientSecret,
	}, nil
}

func (p *StripeProvider) CheckStatus(ctx context.Context, payment *models.Payment) (*StatusResult, error) {
	if payment.ProviderReference == "" {
		return nil, fmt.Errorf("payment %s has no payment intent reference", payment.TransactionID)
	}

	pi, err := paymentintent.Get(payment.ProviderReference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	result := &StatusResult{
		Success:               true,
		ExternalTransactionID: pi.ID,
		ProviderReference:     pi.ID,
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		result.Status = StatusCompleted
	case stripe.PaymentIntentStatusCanceled:
		result.Status = StatusFailed
		result.FailureReason = string(pi.CancellationReason)
	default:
		result.Status = StatusPending
	}

	return result, nil
}
