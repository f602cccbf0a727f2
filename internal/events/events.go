// internal/events/events.go
package events

import (
	"context"
	"time"
)

const TypeOrderCreated = "order.created"

type OrderCreatedEvent struct {
	OrderID        string           `json:"order_id"`
	OrderNumber    string           `json:"order_number"`
	UserID         string           `json:"user_id"`
	StoreID        string           `json:"store_id"`
	CurrencyDomain string           `json:"currency_domain"`
	Subtotal       float64          `json:"subtotal"`
	PlatformFee    float64          `json:"platform_fee"`
	Total          float64          `json:"total"`
	PaymentMethod  string           `json:"payment_method"`
	Items          []OrderItemEvent `json:"items"`
	Timestamp      time.Time        `json:"timestamp"`
}

type OrderItemEvent struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

// Publisher decouples order assembly from whoever listens. The assembler
// publishes and moves on.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

// NopPublisher drops events; used when Kafka is disabled and in tests that
// do not assert on events.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, key string, event any) error { return nil }
func (NopPublisher) Close() error                                             { return nil }
