// internal/payments/gateway.go
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tunesoko/tunesoko-backend/internal/config"
	"github.com/tunesoko/tunesoko-backend/internal/models"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported payment provider")
	ErrTerminalState       = errors.New("payment is in a terminal state")
)

// Gateway owns the Payment state machine:
//
//	pending --initiate success--> processing --status completed--> completed
//	pending --initiate failure--> failed
//	processing --status failed--> failed
//
// completed and failed are terminal. The gateway resolves the concrete
// provider per payment and fails fast on unknown providers before any
// network call.
type Gateway struct {
	db        *gorm.DB
	providers map[models.PaymentProvider]Provider
	log       *logrus.Entry
}

func NewGateway(db *gorm.DB, cfg config.PaymentConfig) *Gateway {
	variants := []Provider{
		NewMTNProvider(cfg.MTN, cfg.Currency),
		NewAirtelProvider(cfg.Airtel),
		NewStripeProvider(cfg.Stripe),
	}

	providers := make(map[models.PaymentProvider]Provider, len(variants))
	for _, p := range variants {
		if cfg.DemoMode {
			providers[p.Name()] = NewSimulatedProvider(p)
		} else {
			providers[p.Name()] = p
		}
	}

	return &Gateway{
		db:        db,
		providers: providers,
		log:       logrus.WithField("component", "payment_gateway"),
	}
}

func (g *Gateway) provider(name models.PaymentProvider) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// ValidatePhoneNumber is a pure predicate; unknown providers validate
// nothing.
func (g *Gateway) ValidatePhoneNumber(phone string, provider models.PaymentProvider) bool {
	p, err := g.provider(provider)
	if err != nil {
		return false
	}
	return p.ValidatePhoneNumber(phone)
}

// Initiate pushes the payment to its provider. The state moves to
// processing before the external call; any failure, provider-side or
// transport, lands the payment in failed with the reason recorded. The
// payment row is persisted at each transition.
func (g *Gateway) Initiate(ctx context.Context, payment *models.Payment) (*InitiationResult, error) {
	prov, err := g.provider(payment.Provider)
	if err != nil {
		return nil, err
	}

	if payment.State.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrTerminalState, payment.State)
	}

	now := time.Now()
	payment.State = models.PaymentStateProcessing
	payment.InitiatedAt = &now
	if err := g.db.Save(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	log := g.log.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"transaction_id": payment.TransactionID,
		"provider":       payment.Provider,
		"phone":          maskPhone(payment.PhoneNumber),
	})

	result, err := prov.Initiate(ctx, payment)
	if err != nil {
		log.WithError(err).Error("Payment initiation failed")
		if markErr := g.markFailed(payment, err.Error()); markErr != nil {
			return nil, markErr
		}
		return &InitiationResult{
			Success:       false,
			Message:       err.Error(),
			TransactionID: payment.TransactionID,
		}, nil
	}

	if !result.Success {
		log.WithField("reason", result.Message).Warn("Payment initiation rejected")
		if markErr := g.markFailed(payment, result.Message); markErr != nil {
			return nil, markErr
		}
		return result, nil
	}

	payment.ProviderReference = result.ProviderReference
	if err := g.db.Save(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	log.Info("Payment initiated")
	return result, nil
}

// CheckStatus polls the provider and returns the normalized outcome. It
// does not change payment state; that is the reconciler's job, so a single
// poll stays side-effect free and retryable.
func (g *Gateway) CheckStatus(ctx context.Context, payment *models.Payment) (*StatusResult, error) {
	prov, err := g.provider(payment.Provider)
	if err != nil {
		return nil, err
	}

	result, err := prov.CheckStatus(ctx, payment)
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"payment_id":     payment.ID,
			"transaction_id": payment.TransactionID,
			"provider":       payment.Provider,
		}).WithError(err).Warn("Payment status check failed")
		return nil, err
	}

	return result, nil
}

func (g *Gateway) markFailed(payment *models.Payment, reason string) error {
	payment.State = models.PaymentStateFailed
	payment.FailureReason = reason
	if err := g.db.Save(payment).Error; err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

// maskPhone keeps only the trailing digits for log correlation.
func maskPhone(phone string) string {
	if len(phone) <= 3 {
		return phone
	}
	return strings.Repeat("*", len(phone)-3) + phone[len(phone)-3:]
}
