// internal/models/cart.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is short-lived and owned by exactly one user session. Expired carts
// are reset lazily on the next access.
type Cart struct {
	BaseModel
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_carts_user_session"`
	SessionID string    `json:"session_id" gorm:"size:64;not null;uniqueIndex:idx_carts_user_session"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`

	// Relationships
	Items []CartItem `json:"items,omitempty" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether the cart TTL has elapsed.
func (c *Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// CartItem identity is the ItemKey, a hash of (product id, selected
// options) with canonicalized option ordering. Prices are never snapshotted
// here; totals always re-read the live product price.
type CartItem struct {
	BaseModel
	CartID    uuid.UUID `json:"cart_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_identity"`
	ItemKey   string    `json:"item_key" gorm:"size:40;not null;uniqueIndex:idx_cart_items_identity"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	Options   JSONB     `json:"options" gorm:"type:jsonb"`

	// Relationships
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
