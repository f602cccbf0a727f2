// internal/models/payment.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	BaseModel
	OrderID  uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	Provider PaymentProvider `json:"provider" gorm:"type:varchar(20);not null;index"`
	Amount   float64         `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency string          `json:"currency" gorm:"size:10;not null"`
	// PhoneNumber is set for mobile-money payments only, normalized to
	// 256XXXXXXXXX.
	PhoneNumber string `json:"phone_number" gorm:"size:20"`
	// TransactionID is generated internally and used as the external
	// idempotency/correlation key.
	TransactionID         string       `json:"transaction_id" gorm:"size:64;not null;uniqueIndex"`
	ExternalTransactionID string       `json:"external_transaction_id" gorm:"size:128"`
	ProviderReference     string       `json:"provider_reference" gorm:"size:128"`
	State                 PaymentState `json:"state" gorm:"type:varchar(20);default:'pending';index"`
	FailureReason         string       `json:"failure_reason,omitempty" gorm:"type:text"`
	InitiatedAt           *time.Time   `json:"initiated_at"`
	CompletedAt           *time.Time   `json:"completed_at"`

	// Relationships
	Order Order `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}
