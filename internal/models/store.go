// internal/models/store.go
package models

import (
	"github.com/google/uuid"
)

type Store struct {
	BaseModel
	OwnerID          uuid.UUID        `json:"owner_id" gorm:"type:uuid;not null;index"`
	Name             string           `json:"name" gorm:"size:255;not null"`
	Description      string           `json:"description" gorm:"type:text"`
	SubscriptionTier SubscriptionTier `json:"subscription_tier" gorm:"type:varchar(20);default:'free'"`
	IsActive         bool             `json:"is_active" gorm:"default:true"`

	// Relationships
	Owner    User      `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Products []Product `json:"products,omitempty" gorm:"foreignKey:StoreID"`
	Orders   []Order   `json:"orders,omitempty" gorm:"foreignKey:StoreID"`
}
