// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	StoreID           uuid.UUID      `json:"store_id" gorm:"type:uuid;not null;index"`
	Name              string         `json:"name" gorm:"size:255;not null"`
	Description       string         `json:"description" gorm:"type:text"`
	Category          string         `json:"category" gorm:"size:100;index"`
	PriceUGX          float64        `json:"price_ugx" gorm:"type:decimal(12,2);not null"`
	PriceCredits      *int64         `json:"price_credits"`
	InventoryQuantity int            `json:"inventory_quantity" gorm:"default:0"`
	TrackInventory    bool           `json:"track_inventory" gorm:"default:true"`
	Status            ProductStatus  `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	Tags              pq.StringArray `json:"tags" gorm:"type:text[]"`
	SalesCount        int64          `json:"sales_count" gorm:"default:0"`

	// Relationships
	Store Store `json:"store,omitempty" gorm:"foreignKey:StoreID"`
}

// Available reports how many units can still be sold. Products that do not
// track inventory are never depleted.
func (p *Product) Available() int {
	if !p.TrackInventory {
		return int(^uint(0) >> 1)
	}
	return p.InventoryQuantity
}
