// internal/payments/provider.go
package payments

import (
	"context"

	"github.com/tunesoko/tunesoko-backend/internal/models"
)

// Status is the internal status vocabulary every provider response is
// normalized onto before a caller ever sees it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// NormalizeStatus maps provider status vocabularies onto the internal one.
// MTN reports SUCCESSFUL/FAILED/PENDING, Airtel reports
// SUCCESS/REJECTED/ONGOING; both sides of each pair collapse here.
func NormalizeStatus(providerStatus string) Status {
	switch providerStatus {
	case "SUCCESSFUL", "SUCCESS":
		return StatusCompleted
	case "FAILED", "REJECTED":
		return StatusFailed
	case "PENDING", "ONGOING":
		return StatusPending
	default:
		return StatusPending
	}
}

type InitiationResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	TransactionID     string `json:"transaction_id"`
	ProviderReference string `json:"provider_reference,omitempty"`
	Instructions      string `json:"instructions,omitempty"`
}

type StatusResult struct {
	Success               bool   `json:"success"`
	Status                Status `json:"status"`
	ExternalTransactionID string `json:"external_transaction_id,omitempty"`
	ProviderReference     string `json:"provider_reference,omitempty"`
	FailureReason         string `json:"failure_reason,omitempty"`
}

// Provider is implemented once per payment rail. Adding a provider means
// adding a variant, not branching deeper into existing code.
type Provider interface {
	Name() models.PaymentProvider

	// Initiate pushes the payment request to the provider. A returned
	// error means the request never reached the provider (transport
	// fault); a result with Success=false means the provider rejected it.
	Initiate(ctx context.Context, payment *models.Payment) (*InitiationResult, error)

	// CheckStatus polls the provider for the outcome of a previously
	// initiated payment.
	CheckStatus(ctx context.Context, payment *models.Payment) (*StatusResult, error)

	// ValidatePhoneNumber is a pure predicate, usable without initiating
	// anything.
	ValidatePhoneNumber(phone string) bool
}
