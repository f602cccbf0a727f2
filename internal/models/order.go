// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingAddress is embedded into Order with a column prefix.
type ShippingAddress struct {
	Name       string `json:"name" gorm:"size:255"`
	Phone      string `json:"phone" gorm:"size:20"`
	Address    string `json:"address" gorm:"size:500"`
	City       string `json:"city" gorm:"size:100"`
	Region     string `json:"region" gorm:"size:100"`
	PostalCode string `json:"postal_code" gorm:"size:20"`
}

type Order struct {
	BaseModel
	OrderNumber    string             `json:"order_number" gorm:"size:20;not null;uniqueIndex"`
	UserID         uuid.UUID          `json:"user_id" gorm:"type:uuid;not null;index"`
	StoreID        uuid.UUID          `json:"store_id" gorm:"type:uuid;not null;index"`
	CurrencyDomain CurrencyDomain     `json:"currency_domain" gorm:"type:varchar(10);default:'money'"`
	Subtotal       float64            `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	ShippingCost   float64            `json:"shipping_cost" gorm:"type:decimal(12,2);default:0"`
	PlatformFee    float64            `json:"platform_fee" gorm:"type:decimal(12,2);not null"`
	Total          float64            `json:"total" gorm:"type:decimal(12,2);not null"`
	PaymentMethod  PaymentProvider    `json:"payment_method" gorm:"type:varchar(20);not null"`
	PaymentStatus  OrderPaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'unpaid';index"`
	Status         OrderStatus        `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	TrackingNumber *string            `json:"tracking_number" gorm:"size:100"`
	Shipping       ShippingAddress    `json:"shipping_address" gorm:"embedded;embeddedPrefix:shipping_"`
	ShippedAt      *time.Time         `json:"shipped_at"`
	DeliveredAt    *time.Time         `json:"delivered_at"`
	CancelledAt    *time.Time         `json:"cancelled_at"`
	CancelReason   string             `json:"cancel_reason,omitempty" gorm:"type:text"`

	// Relationships
	User     User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Store    Store       `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	Items    []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments []Payment   `json:"payments,omitempty" gorm:"foreignKey:OrderID"`
}

// Cancellable reports whether the order is still pre-fulfillment.
func (o *Order) Cancellable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// OrderItem freezes the product name and unit price at order time so later
// product edits never alter historical orders.
type OrderItem struct {
	BaseModel
	OrderID          uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	ProductName      string    `json:"product_name" gorm:"size:255;not null"`
	UnitPrice        float64   `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	UnitPriceCredits *int64    `json:"unit_price_credits"`
	Quantity         int       `json:"quantity" gorm:"not null"`
	Options          JSONB     `json:"options" gorm:"type:jsonb"`
}
