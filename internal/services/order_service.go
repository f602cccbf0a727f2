// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tunesoko/tunesoko-backend/internal/config"
	"github.com/tunesoko/tunesoko-backend/internal/events"
	"github.com/tunesoko/tunesoko-backend/internal/models"
	"github.com/tunesoko/tunesoko-backend/internal/payments"
	"github.com/tunesoko/tunesoko-backend/internal/utils"
)

const orderNumberAttempts = 5

type OrderService struct {
	db         *gorm.DB
	pricing    *PricingService
	gateway    *payments.Gateway
	publisher  events.Publisher
	commission config.CommissionConfig
	currency   string
	log        *logrus.Entry

	// orderSuffix produces the random part of an order number; swappable
	// in tests to force collisions.
	orderSuffix func(length int) (string, error)
}

func NewOrderService(db *gorm.DB, pricing *PricingService, gateway *payments.Gateway,
	publisher events.Publisher, cfg *config.Config) *OrderService {
	return &OrderService{
		db:          db,
		pricing:     pricing,
		gateway:     gateway,
		publisher:   publisher,
		commission:  cfg.Commission,
		currency:    cfg.Payment.Currency,
		log:         logrus.WithField("component", "order_service"),
		orderSuffix: utils.GenerateReference,
	}
}

type ShippingAddressRequest struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type CreateOrderRequest struct {
	SessionID     string                 `json:"session_id,omitempty"`
	StoreID       uuid.UUID              `json:"store_id" validate:"required"`
	PaymentMethod models.PaymentProvider `json:"payment_method" validate:"required,oneof=mtn airtel stripe bank_transfer credit"`
	PhoneNumber   string                 `json:"phone_number,omitempty"`
	ShippingCost  float64                `json:"shipping_cost" validate:"min=0"`
	Shipping      ShippingAddressRequest `json:"shipping_address" validate:"required"`
}

// CheckoutResult carries the persisted order plus the gateway response for
// non-credit payment methods.
type CheckoutResult struct {
	Order      *models.Order              `json:"order"`
	Initiation *payments.InitiationResult `json:"initiation,omitempty"`
}

// CreateOrder converts the caller's cart into a persisted order. Stock
// re-validation, order and item persistence, inventory decrement, credit
// debit and cart clearing all commit in one transaction; the payment
// initiation and the OrderCreated event happen only after that commit.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req *CreateOrderRequest) (*CheckoutResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	mobileMoney := req.PaymentMethod == models.PaymentProviderMTN ||
		req.PaymentMethod == models.PaymentProviderAirtel
	if mobileMoney && !s.gateway.ValidatePhoneNumber(req.PhoneNumber, req.PaymentMethod) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPhoneNumber, req.PaymentMethod)
	}

	domain := models.CurrencyDomainMoney
	if req.PaymentMethod == models.PaymentProviderCredits {
		domain = models.CurrencyDomainCredits
	}

	var order *models.Order
	var payment *models.Payment

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var store models.Store
		if err := tx.First(&store, "id = ?", req.StoreID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("store not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var cart models.Cart
		err := lockForUpdate(tx).
			Preload("Items.Product").
			Where("user_id = ? AND session_id = ?", userID, s.sessionID(userID, req.SessionID)).
			First(&cart).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return fmt.Errorf("database error: %w", err)
		}
		if len(cart.Items) == 0 || cart.Expired(time.Now()) {
			return ErrEmptyCart
		}

		// Re-check stock at the moment of order creation; the cart-time
		// check may be stale.
		lines := make([]PricedLine, 0, len(cart.Items))
		for i := range cart.Items {
			item := &cart.Items[i]
			product := &item.Product

			if product.StoreID != store.ID {
				return fmt.Errorf("product %q does not belong to store %q", product.Name, store.Name)
			}
			if product.Status == models.ProductStatusOutOfStock {
				return fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
			}
			if product.TrackInventory && item.Quantity > product.InventoryQuantity {
				return fmt.Errorf("%w: %s (requested %d, available %d)",
					ErrInsufficientStock, product.Name, item.Quantity, product.InventoryQuantity)
			}

			lines = append(lines, PricedLine{Product: product, Quantity: item.Quantity})
		}

		totals, err := s.pricing.ComputeTotals(lines, domain, req.ShippingCost)
		if err != nil {
			return err
		}

		orderItems := make([]models.OrderItem, 0, len(cart.Items))
		for i := range cart.Items {
			item := &cart.Items[i]
			orderItems = append(orderItems, models.OrderItem{
				ProductID:        item.ProductID,
				ProductName:      item.Product.Name,
				UnitPrice:        item.Product.PriceUGX,
				UnitPriceCredits: item.Product.PriceCredits,
				Quantity:         item.Quantity,
				Options:          item.Options,
			})
		}

		order = &models.Order{
			UserID:         userID,
			StoreID:        store.ID,
			CurrencyDomain: domain,
			Subtotal:       totals.Subtotal,
			ShippingCost:   totals.Shipping,
			PlatformFee:    s.platformFee(store.SubscriptionTier, totals.Subtotal),
			Total:          totals.Total,
			PaymentMethod:  req.PaymentMethod,
			PaymentStatus:  models.OrderPaymentStatusUnpaid,
			Status:         models.OrderStatusPending,
			Shipping: models.ShippingAddress{
				Name:       req.Shipping.Name,
				Phone:      req.Shipping.Phone,
				Address:    req.Shipping.Address,
				City:       req.Shipping.City,
				Region:     req.Shipping.Region,
				PostalCode: req.Shipping.PostalCode,
			},
			Items: orderItems,
		}

		// The unique index is the source of truth for order-number
		// uniqueness: a concurrent insert of the same candidate surfaces as
		// a duplicate-key error here and earns a fresh number. The savepoint
		// keeps failed attempts out of the enclosing transaction.
		created := false
		for attempt := 0; attempt < orderNumberAttempts && !created; attempt++ {
			number, err := s.generateOrderNumber()
			if err != nil {
				return err
			}
			order.OrderNumber = number

			err = tx.Transaction(func(tx *gorm.DB) error {
				return tx.Create(order).Error
			})
			switch {
			case err == nil:
				created = true
			case isDuplicateKey(err):
				continue
			default:
				return fmt.Errorf("failed to create order: %w", err)
			}
		}
		if !created {
			return errors.New("failed to generate a unique order number")
		}

		for i := range cart.Items {
			if err := s.decrementStock(tx, &cart.Items[i].Product, cart.Items[i].Quantity); err != nil {
				return err
			}
		}

		if req.PaymentMethod == models.PaymentProviderCredits {
			// Credits settle synchronously: debit now, all-or-nothing
			// with the rest of the transaction.
			creditTotal := int64(math.Round(totals.Total))
			res := tx.Model(&models.User{}).
				Where("id = ? AND credits >= ?", userID, creditTotal).
				UpdateColumn("credits", gorm.Expr("credits - ?", creditTotal))
			if res.Error != nil {
				return fmt.Errorf("failed to debit credits: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: order requires %d credits", ErrInsufficientCredits, creditTotal)
			}

			order.PaymentStatus = models.OrderPaymentStatusPaid
			if err := tx.Model(order).Update("payment_status", order.PaymentStatus).Error; err != nil {
				return fmt.Errorf("failed to update order: %w", err)
			}
		} else {
			reference, err := utils.GenerateReference(12)
			if err != nil {
				return fmt.Errorf("failed to generate transaction id: %w", err)
			}

			payment = &models.Payment{
				OrderID:       order.ID,
				Provider:      req.PaymentMethod,
				Amount:        totals.Total,
				Currency:      s.currency,
				PhoneNumber:   payments.NormalizePhone(req.PhoneNumber),
				TransactionID: "TXN-" + reference,
				State:         models.PaymentStatePending,
			}
			if !mobileMoney {
				payment.PhoneNumber = ""
			}
			if err := tx.Create(payment).Error; err != nil {
				return fmt.Errorf("failed to create payment: %w", err)
			}
		}

		// The cart clears in the same transaction, so a failed order
		// never loses it.
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishOrderCreated(order)

	result := &CheckoutResult{Order: order}

	// Kick off the external payment right after persistence. Bank
	// transfers settle manually and credits already settled in the
	// transaction.
	if payment != nil && req.PaymentMethod != models.PaymentProviderBankTransfer {
		initiation, err := s.gateway.Initiate(ctx, payment)
		if err != nil {
			return nil, err
		}
		result.Initiation = initiation
	}

	s.db.Preload("Items").Preload("Payments").First(order, order.ID)
	return result, nil
}

// decrementStock performs an atomic compare-and-decrement so concurrent
// orders cannot oversell, and flips the product to out_of_stock in the
// same unit of work when the count reaches zero.
func (s *OrderService) decrementStock(tx *gorm.DB, product *models.Product, quantity int) error {
	if product.TrackInventory {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND inventory_quantity >= ?", product.ID, quantity).
			UpdateColumn("inventory_quantity", gorm.Expr("inventory_quantity - ?", quantity))
		if res.Error != nil {
			return fmt.Errorf("failed to update inventory: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
		}

		if err := tx.Model(&models.Product{}).
			Where("id = ? AND inventory_quantity <= 0", product.ID).
			UpdateColumn("status", models.ProductStatusOutOfStock).Error; err != nil {
			return fmt.Errorf("failed to update product status: %w", err)
		}
	}

	if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
		UpdateColumn("sales_count", gorm.Expr("sales_count + ?", quantity)).Error; err != nil {
		return fmt.Errorf("failed to update sales count: %w", err)
	}

	return nil
}

func (s *OrderService) platformFee(tier models.SubscriptionTier, subtotal float64) float64 {
	rate, ok := s.commission.Tiers[string(tier)]
	if !ok {
		rate = s.commission.Tiers[string(models.SubscriptionTierFree)]
	}

	fee := subtotal * rate.Percent / 100
	if fee < rate.MinimumFee {
		fee = rate.MinimumFee
	}
	return fee
}

// generateOrderNumber produces an ORD-YYYYMMDD-XXXXXX candidate; the
// insert against the unique index decides whether it sticks.
func (s *OrderService) generateOrderNumber() (string, error) {
	suffix, err := s.orderSuffix(6)
	if err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix), nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

func (s *OrderService) publishOrderCreated(order *models.Order) {
	items := make([]events.OrderItemEvent, 0, len(order.Items))
	for i := range order.Items {
		items = append(items, events.OrderItemEvent{
			ProductID:   order.Items[i].ProductID.String(),
			ProductName: order.Items[i].ProductName,
			UnitPrice:   order.Items[i].UnitPrice,
			Quantity:    order.Items[i].Quantity,
		})
	}

	event := events.OrderCreatedEvent{
		OrderID:        order.ID.String(),
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID.String(),
		StoreID:        order.StoreID.String(),
		CurrencyDomain: string(order.CurrencyDomain),
		Subtotal:       order.Subtotal,
		PlatformFee:    order.PlatformFee,
		Total:          order.Total,
		PaymentMethod:  string(order.PaymentMethod),
		Items:          items,
		Timestamp:      time.Now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.publisher.Publish(ctx, order.ID.String(), event); err != nil {
			s.log.WithError(err).WithField("order_id", order.ID).Error("Failed to publish order event")
		}
	}()
}

// CancelOrder reverses the assembler: stock restored, credits refunded,
// status flipped, all in one transaction so partial cancellation is never
// observable. Mobile-money pushes cannot be recalled, so this is a
// compensating action on the order only.
func (s *OrderService) CancelOrder(userID uuid.UUID, orderID uuid.UUID, reason string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := lockForUpdate(tx).
			Preload("Items").
			Where("id = ? AND user_id = ?", orderID, userID).
			First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !order.Cancellable() {
			return fmt.Errorf("%w: status is %s", ErrOrderNotCancellable, order.Status)
		}

		for i := range order.Items {
			if err := s.restoreStock(tx, &order.Items[i]); err != nil {
				return err
			}
		}

		if order.PaymentMethod == models.PaymentProviderCredits &&
			order.PaymentStatus == models.OrderPaymentStatusPaid {
			creditTotal := int64(math.Round(order.Total))
			if err := tx.Model(&models.User{}).Where("id = ?", order.UserID).
				UpdateColumn("credits", gorm.Expr("credits + ?", creditTotal)).Error; err != nil {
				return fmt.Errorf("failed to refund credits: %w", err)
			}
			order.PaymentStatus = models.OrderPaymentStatusRefunded
		}

		now := time.Now()
		order.Status = models.OrderStatusCancelled
		order.CancelledAt = &now
		order.CancelReason = reason

		if err := tx.Save(&order).Error; err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		return nil
	})
}

func (s *OrderService) restoreStock(tx *gorm.DB, item *models.OrderItem) error {
	var product models.Product
	if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Product deleted since ordering; nothing to restore.
			return nil
		}
		return fmt.Errorf("database error: %w", err)
	}

	if !product.TrackInventory {
		return nil
	}

	if err := tx.Model(&product).
		UpdateColumn("inventory_quantity", gorm.Expr("inventory_quantity + ?", item.Quantity)).Error; err != nil {
		return fmt.Errorf("failed to restore inventory: %w", err)
	}

	if product.Status == models.ProductStatusOutOfStock {
		if err := tx.Model(&product).Update("status", models.ProductStatusActive).Error; err != nil {
			return fmt.Errorf("failed to update product status: %w", err)
		}
	}

	return nil
}

// storeOwnedOrder loads an order for a fulfillment action and verifies the
// actor owns the selling store.
func (s *OrderService) storeOwnedOrder(actorID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var store models.Store
	if err := s.db.First(&store, "id = ?", order.StoreID).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if store.OwnerID != actorID {
		return nil, ErrNotStoreOwner
	}

	return &order, nil
}

// MarkAsShipped requires a paid order; MarkAsDelivered requires a shipped
// one. Both are store-owner actions on the selling side.
func (s *OrderService) MarkAsShipped(actorID, orderID uuid.UUID, trackingNumber string) error {
	order, err := s.storeOwnedOrder(actorID, orderID)
	if err != nil {
		return err
	}

	if order.PaymentStatus != models.OrderPaymentStatusPaid {
		return ErrOrderNotPaid
	}
	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusProcessing {
		return fmt.Errorf("cannot ship order in status %s", order.Status)
	}

	now := time.Now()
	order.Status = models.OrderStatusShipped
	order.TrackingNumber = &trackingNumber
	order.ShippedAt = &now

	if err := s.db.Save(order).Error; err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (s *OrderService) MarkAsDelivered(actorID, orderID uuid.UUID) error {
	order, err := s.storeOwnedOrder(actorID, orderID)
	if err != nil {
		return err
	}

	if order.Status != models.OrderStatusShipped {
		return ErrOrderNotShipped
	}

	now := time.Now()
	order.Status = models.OrderStatusDelivered
	order.DeliveredAt = &now

	if err := s.db.Save(order).Error; err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (s *OrderService) GetOrder(userID uuid.UUID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").Preload("Payments").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}

func (s *OrderService) GetUserOrders(userID uuid.UUID, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{}).Where("user_id = ?", userID).Preload("Items")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	allowedSortFields := []string{"created_at", "total", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}

	return orders, total, nil
}

func (s *OrderService) sessionID(userID uuid.UUID, sessionID string) string {
	if sessionID != "" {
		return sessionID
	}
	return userID.String()
}
