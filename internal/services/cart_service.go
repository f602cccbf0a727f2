// internal/services/cart_service.go
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tunesoko/tunesoko-backend/internal/config"
	"github.com/tunesoko/tunesoko-backend/internal/models"
	"github.com/tunesoko/tunesoko-backend/internal/utils"
)

// CartService manages the per-user, per-session carts. Every operation is
// scoped to exactly one (user, session) pair; mutations run inside a
// transaction so concurrent tabs cannot interleave partial writes.
type CartService struct {
	db      *gorm.DB
	pricing *PricingService
	ttl     time.Duration
}

func NewCartService(db *gorm.DB, pricing *PricingService, cfg config.CartConfig) *CartService {
	return &CartService{
		db:      db,
		pricing: pricing,
		ttl:     time.Duration(cfg.TTLHours) * time.Hour,
	}
}

// CartItemKey derives the deterministic item identity from the product and
// its selected options. Option keys are sorted before hashing so
// {size:L,color:Blue} and {color:Blue,size:L} collide to the same item.
func CartItemKey(productID uuid.UUID, options map[string]string) string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(productID.String())
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(options[k])
	}

	return utils.HashString(b.String())[:40]
}

type CartItemView struct {
	ItemKey          string            `json:"item_key"`
	ProductID        uuid.UUID         `json:"product_id"`
	ProductName      string            `json:"product_name"`
	UnitPrice        float64           `json:"unit_price"`
	UnitPriceCredits *int64            `json:"unit_price_credits,omitempty"`
	Quantity         int               `json:"quantity"`
	Options          map[string]string `json:"options,omitempty"`
	LineTotal        float64           `json:"line_total"`
}

type CartView struct {
	Items  []CartItemView `json:"items"`
	Totals *Totals        `json:"totals"`
}

func (s *CartService) AddItem(userID uuid.UUID, sessionID string, productID uuid.UUID, quantity int, options map[string]string) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if product.Status == models.ProductStatusOutOfStock {
			return fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
		}
		if product.Status != models.ProductStatusActive {
			return fmt.Errorf("%w: %s", ErrProductNotFound, product.Name)
		}

		cart, err := s.findOrCreateCart(tx, userID, sessionID)
		if err != nil {
			return err
		}

		itemKey := CartItemKey(productID, options)

		var item models.CartItem
		err = tx.Where("cart_id = ? AND item_key = ?", cart.ID, itemKey).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if product.TrackInventory && quantity > product.InventoryQuantity {
				return fmt.Errorf("%w: %s (requested %d, available %d)",
					ErrInsufficientStock, product.Name, quantity, product.InventoryQuantity)
			}

			opts := make(models.JSONB, len(options))
			for k, v := range options {
				opts[k] = v
			}
			item = models.CartItem{
				CartID:    cart.ID,
				ItemKey:   itemKey,
				ProductID: productID,
				Quantity:  quantity,
				Options:   opts,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to add cart item: %w", err)
			}

		case err != nil:
			return fmt.Errorf("database error: %w", err)

		default:
			// Same (product, options) identity: quantities are summed,
			// never duplicated.
			newQuantity := item.Quantity + quantity
			if product.TrackInventory && newQuantity > product.InventoryQuantity {
				return fmt.Errorf("%w: %s (requested %d, available %d)",
					ErrInsufficientStock, product.Name, newQuantity, product.InventoryQuantity)
			}
			if err := tx.Model(&item).Update("quantity", newQuantity).Error; err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
		}

		return nil
	})
}

func (s *CartService) UpdateQuantity(userID uuid.UUID, sessionID, itemKey string, quantity int) error {
	if quantity == 0 {
		return s.RemoveItem(userID, sessionID, itemKey)
	}
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		cart, err := s.findCart(tx, userID, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		var item models.CartItem
		if err := tx.Where("cart_id = ? AND item_key = ?", cart.ID, itemKey).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		var product models.Product
		if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}

		if product.TrackInventory && quantity > product.InventoryQuantity {
			return fmt.Errorf("%w: %s (requested %d, available %d)",
				ErrInsufficientStock, product.Name, quantity, product.InventoryQuantity)
		}

		if err := tx.Model(&item).Update("quantity", quantity).Error; err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}

		return nil
	})
}

// RemoveItem is idempotent: removing an absent item is a no-op, not an
// error.
func (s *CartService) RemoveItem(userID uuid.UUID, sessionID, itemKey string) error {
	cart, err := s.findCart(s.db, userID, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if err := s.db.Where("cart_id = ? AND item_key = ?", cart.ID, itemKey).
		Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	return nil
}

func (s *CartService) Clear(userID uuid.UUID, sessionID string) error {
	cart, err := s.findCart(s.db, userID, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	return clearCart(s.db, cart.ID)
}

// GetCart returns the cart items with totals computed on read; totals are
// never cached.
func (s *CartService) GetCart(userID uuid.UUID, sessionID string, domain models.CurrencyDomain) (*CartView, error) {
	view := &CartView{
		Items:  []CartItemView{},
		Totals: &Totals{Domain: domain},
	}

	var cart models.Cart
	err := s.db.Preload("Items.Product").
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return view, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if cart.Expired(time.Now()) {
		if err := clearCart(s.db, cart.ID); err != nil {
			return nil, err
		}
		return view, nil
	}

	lines := make([]PricedLine, 0, len(cart.Items))
	for i := range cart.Items {
		item := &cart.Items[i]
		lines = append(lines, PricedLine{Product: &item.Product, Quantity: item.Quantity})
	}

	totals, err := s.pricing.ComputeTotals(lines, domain, 0)
	if err != nil {
		return nil, err
	}
	view.Totals = totals

	for i := range cart.Items {
		item := &cart.Items[i]

		options := make(map[string]string, len(item.Options))
		for k, v := range item.Options {
			if str, ok := v.(string); ok {
				options[k] = str
			}
		}

		itemView := CartItemView{
			ItemKey:          item.ItemKey,
			ProductID:        item.ProductID,
			ProductName:      item.Product.Name,
			UnitPrice:        item.Product.PriceUGX,
			UnitPriceCredits: item.Product.PriceCredits,
			Quantity:         item.Quantity,
			Options:          options,
		}
		if domain == models.CurrencyDomainMoney {
			itemView.LineTotal = float64(item.Quantity) * item.Product.PriceUGX
		} else if lineTotals, err := s.pricing.ComputeTotals(
			[]PricedLine{{Product: &item.Product, Quantity: item.Quantity}}, domain, 0); err == nil {
			itemView.LineTotal = lineTotals.Total
		}
		view.Items = append(view.Items, itemView)
	}

	return view, nil
}

// lockForUpdate takes a row lock on dialects that support it. The sqlite
// dialect used in tests has no FOR UPDATE; its single-writer model covers
// the same ground there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *CartService) findCart(tx *gorm.DB, userID uuid.UUID, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	err := lockForUpdate(tx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *CartService) findOrCreateCart(tx *gorm.DB, userID uuid.UUID, sessionID string) (*models.Cart, error) {
	now := time.Now()

	cart, err := s.findCart(tx, userID, sessionID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		cart = &models.Cart{
			UserID:    userID,
			SessionID: sessionID,
			ExpiresAt: now.Add(s.ttl),
		}
		if err := tx.Create(cart).Error; err != nil {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}
		return cart, nil

	case err != nil:
		return nil, fmt.Errorf("database error: %w", err)
	}

	if cart.Expired(now) {
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return nil, fmt.Errorf("failed to expire cart: %w", err)
		}
	}

	// Every write extends the TTL.
	if err := tx.Model(cart).Update("expires_at", now.Add(s.ttl)).Error; err != nil {
		return nil, fmt.Errorf("failed to refresh cart TTL: %w", err)
	}

	return cart, nil
}

func clearCart(db *gorm.DB, cartID uuid.UUID) error {
	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
