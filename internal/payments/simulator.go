// internal/payments/simulator.go
package payments

import (
	"context"
	"strings"
	"time"

	"github.com/tunesoko/tunesoko-backend/internal/models"
)

// Demo-mode fixtures keyed off the trailing digits of the phone number.
// They make the full state machine reachable without live credentials.
const (
	demoSuffixRejected = "1111"
	demoSuffixTimeout  = "2222"

	// A simulated payment stays pending for this long after initiation,
	// then reports completed. Status is a pure function of elapsed time so
	// repeated polls converge.
	demoSettlementDelay = 30 * time.Second
)

// SimulatedProvider wraps a real provider and fabricates deterministic
// responses instead of calling it. Production code paths never see
// simulation logic; the wrapper is only installed when demo mode is
// configured.
type SimulatedProvider struct {
	real Provider
	now  func() time.Time
}

func NewSimulatedProvider(real Provider) *SimulatedProvider {
	return &SimulatedProvider{real: real, now: time.Now}
}

func (p *SimulatedProvider) Name() models.PaymentProvider {
	return p.real.Name()
}

func (p *SimulatedProvider) ValidatePhoneNumber(phone string) bool {
	return p.real.ValidatePhoneNumber(phone)
}

func (p *SimulatedProvider) Initiate(ctx context.Context, payment *models.Payment) (*InitiationResult, error) {
	phone := NormalizePhone(payment.PhoneNumber)

	if p.real.Name() != models.PaymentProviderStripe && !p.real.ValidatePhoneNumber(phone) {
		return &InitiationResult{
			Success:       false,
			Message:       "invalid phone number for " + string(p.real.Name()),
			TransactionID: payment.TransactionID,
		}, nil
	}

	switch {
	case strings.HasSuffix(phone, demoSuffixRejected):
		message := "insufficient funds"
		if p.real.Name() == models.PaymentProviderAirtel {
			message = "invalid phone number"
		}
		return &InitiationResult{
			Success:       false,
			Message:       message,
			TransactionID: payment.TransactionID,
		}, nil

	case strings.HasSuffix(phone, demoSuffixTimeout) && p.real.Name() == models.PaymentProviderMTN:
		return &InitiationResult{
			Success:       false,
			Message:       "transaction timed out",
			TransactionID: payment.TransactionID,
		}, nil
	}

	return &InitiationResult{
		Success:           true,
		Message:           "Payment request sent (demo mode)",
		TransactionID:     payment.TransactionID,
		ProviderReference: "DEMO-" + payment.TransactionID,
		Instructions:      "Demo mode: the payment will auto-complete shortly.",
	}, nil
}

func (p *SimulatedProvider) CheckStatus(ctx context.Context, payment *models.Payment) (*StatusResult, error) {
	result := &StatusResult{
		Success:           true,
		ProviderReference: payment.ProviderReference,
	}

	if payment.InitiatedAt == nil || p.now().Sub(*payment.InitiatedAt) < demoSettlementDelay {
		result.Status = StatusPending
		return result, nil
	}

	result.Status = StatusCompleted
	result.ExternalTransactionID = "DEMO-EXT-" + payment.TransactionID
	return result, nil
}
