// internal/services/settlement_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tunesoko/tunesoko-backend/internal/models"
	"github.com/tunesoko/tunesoko-backend/internal/payments"
	"github.com/tunesoko/tunesoko-backend/internal/utils"
)

// SettlementService reconciles in-flight payments against their provider.
// It is the only component that moves a payment out of processing: the
// gateway's status checks are read-only, so a reconciliation can be
// retried without double-applying.
type SettlementService struct {
	db      *gorm.DB
	gateway *payments.Gateway
	log     *logrus.Entry
}

func NewSettlementService(db *gorm.DB, gateway *payments.Gateway) *SettlementService {
	return &SettlementService{
		db:      db,
		gateway: gateway,
		log:     logrus.WithField("component", "settlement_service"),
	}
}

// PollAndReconcile fetches the payment's current provider status and
// applies it. Terminal payments are returned as-is; a pending poll is a
// no-op, so callers can poll as often as they like.
func (s *SettlementService) PollAndReconcile(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if payment.State.IsTerminal() {
		return &payment, nil
	}

	result, err := s.gateway.CheckStatus(ctx, &payment)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"transaction_id": payment.TransactionID,
		"provider":       payment.Provider,
		"status":         result.Status,
	})

	switch result.Status {
	case payments.StatusCompleted:
		if err := s.settle(&payment, result); err != nil {
			return nil, err
		}
		log.Info("Payment settled")

	case payments.StatusFailed:
		reason := result.FailureReason
		if reason == "" {
			reason = "payment rejected by provider"
		}
		payment.State = models.PaymentStateFailed
		payment.FailureReason = reason
		if result.ExternalTransactionID != "" {
			payment.ExternalTransactionID = result.ExternalTransactionID
		}
		if err := s.db.Save(&payment).Error; err != nil {
			return nil, fmt.Errorf("failed to update payment: %w", err)
		}
		log.WithField("reason", reason).Warn("Payment failed")

	case payments.StatusPending:
		// Still in flight; nothing to record.
	}

	return &payment, nil
}

// settle marks the payment completed and the order paid in one
// transaction, so an order is never observed paid without a completed
// payment backing it.
func (s *SettlementService) settle(payment *models.Payment, result *payments.StatusResult) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		payment.State = models.PaymentStateCompleted
		payment.CompletedAt = &now
		if result.ExternalTransactionID != "" {
			payment.ExternalTransactionID = result.ExternalTransactionID
		}
		if result.ProviderReference != "" {
			payment.ProviderReference = result.ProviderReference
		}

		if err := tx.Save(payment).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).
			Update("payment_status", models.OrderPaymentStatusPaid).Error; err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		return nil
	})
}

// ConfirmManualPayment settles a bank transfer after an operator verifies
// the deposit out of band. The provider is never consulted.
func (s *SettlementService) ConfirmManualPayment(paymentID uuid.UUID, externalReference string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if payment.Provider != models.PaymentProviderBankTransfer {
		return nil, fmt.Errorf("%w: manual confirmation only applies to bank transfers", payments.ErrUnsupportedProvider)
	}
	if payment.State.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", payments.ErrTerminalState, payment.State)
	}

	if err := s.settle(&payment, &payments.StatusResult{
		Success:               true,
		Status:                payments.StatusCompleted,
		ExternalTransactionID: externalReference,
	}); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"transaction_id": payment.TransactionID,
		"reference":      externalReference,
	}).Info("Manual payment confirmed")

	return &payment, nil
}

// GetPaymentHistory lists the caller's payments, newest first, joined
// through their orders.
func (s *SettlementService) GetPaymentHistory(userID uuid.UUID, params utils.PaginationParams) ([]models.Payment, int64, error) {
	query := s.db.Model(&models.Payment{}).
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("orders.user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	var history []models.Payment
	err := query.Order("payments.created_at DESC").
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&history).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payments: %w", err)
	}

	return history, total, nil
}

// ReconcilePending sweeps every non-terminal payment older than the given
// age. Intended for a periodic background pass so payments abandoned by
// the client still settle or fail.
func (s *SettlementService) ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error) {
	var pending []models.Payment
	cutoff := time.Now().Add(-olderThan)

	err := s.db.
		Where("state IN ? AND created_at < ?",
			[]models.PaymentState{models.PaymentStatePending, models.PaymentStateProcessing}, cutoff).
		Where("provider <> ?", models.PaymentProviderBankTransfer).
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending payments: %w", err)
	}

	reconciled := 0
	for i := range pending {
		if ctx.Err() != nil {
			return reconciled, ctx.Err()
		}

		updated, err := s.PollAndReconcile(ctx, pending[i].ID)
		if err != nil {
			s.log.WithError(err).WithField("payment_id", pending[i].ID).Warn("Reconciliation failed")
			continue
		}
		if updated.State.IsTerminal() {
			reconciled++
		}
	}

	return reconciled, nil
}
