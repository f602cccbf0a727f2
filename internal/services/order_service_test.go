// internal/services/order_service_test.go
package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tunesoko/tunesoko-backend/internal/events"
	"github.com/tunesoko/tunesoko-backend/internal/models"
)

func (e *testEnv) checkout(t *testing.T, userID uuid.UUID, storeID uuid.UUID, method models.PaymentProvider, phone string) (*CheckoutResult, error) {
	t.Helper()

	return e.orders.CreateOrder(context.Background(), userID, &CreateOrderRequest{
		SessionID:     "sess-1",
		StoreID:       storeID,
		PaymentMethod: method,
		PhoneNumber:   phone,
		Shipping:      shippingFixture(),
	})
}

func TestCreateOrderMobileMoney(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	single := env.createProduct(t, store.ID, 1000, 10)
	album := env.createProduct(t, store.ID, 2500, 10)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", single.ID, 2, nil))
	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", album.ID, 1, nil))

	result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderMTN, "0771234567")
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, 4500.0, order.Subtotal)
	assert.Equal(t, 4500.0, order.Total)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.OrderPaymentStatusUnpaid, order.PaymentStatus)
	assert.Len(t, order.Items, 2)

	// Free tier: 10% of 4500 = 450, below the 500 floor.
	assert.Equal(t, 500.0, order.PlatformFee)

	require.NotNil(t, result.Initiation)
	assert.True(t, result.Initiation.Success)

	require.Len(t, order.Payments, 1)
	payment := order.Payments[0]
	assert.Equal(t, models.PaymentProviderMTN, payment.Provider)
	assert.Equal(t, models.PaymentStateProcessing, payment.State)
	assert.Equal(t, "256771234567", payment.PhoneNumber)
	assert.Equal(t, 4500.0, payment.Amount)

	// Inventory decremented.
	var stored models.Product
	require.NoError(t, env.db.First(&stored, "id = ?", single.ID).Error)
	assert.Equal(t, 8, stored.InventoryQuantity)
	assert.Equal(t, int64(2), stored.SalesCount)

	// Cart cleared in the same transaction.
	view, err := env.cart.GetCart(user.ID, "sess-1", models.CurrencyDomainMoney)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	// OrderCreated event published after commit.
	require.Eventually(t, func() bool { return env.publisher.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	event, ok := env.publisher.get(0).(events.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, order.OrderNumber, event.OrderNumber)
	assert.Len(t, event.Items, 2)
}

func TestCreateOrderNumberFormat(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 10)

	pattern := regexp.MustCompile(`^ORD-\d{8}-[A-Z0-9]{6}$`)
	seen := map[string]bool{}

	for i := 0; i < 3; i++ {
		require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
		result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
		require.NoError(t, err)

		assert.Regexp(t, pattern, result.Order.OrderNumber)
		assert.False(t, seen[result.Order.OrderNumber])
		seen[result.Order.OrderNumber] = true
	}
}

func TestCreateOrderSnapshotsFrozen(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 10)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
	result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
	require.NoError(t, err)

	originalName := product.Name
	require.NoError(t, env.db.Model(product).Updates(map[string]any{
		"price_ugx": 9999.0,
		"name":      "renamed",
	}).Error)

	order, err := env.orders.GetOrder(user.ID, result.Order.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, originalName, order.Items[0].ProductName)
	assert.Equal(t, 1000.0, order.Items[0].UnitPrice)
}

func TestCreateOrderCommissionTiers(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		tier        models.SubscriptionTier
		subtotal    float64
		expectedFee float64
	}{
		{models.SubscriptionTierFree, 20000, 2000},     // 10%, above the floor
		{models.SubscriptionTierFree, 3000, 500},       // floor applies
		{models.SubscriptionTierStandard, 20000, 1400}, // 7%
		{models.SubscriptionTierPremium, 20000, 1000},  // 5%
		{models.SubscriptionTierPremium, 2000, 200},    // floor applies
	}

	for _, tt := range tests {
		user := env.createUser(t, 0)
		store := env.createStore(t, tt.tier)
		product := env.createProduct(t, store.ID, tt.subtotal, 10)

		require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
		result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
		require.NoError(t, err)

		assert.Equal(t, tt.expectedFee, result.Order.PlatformFee,
			"tier %s subtotal %.0f", tt.tier, tt.subtotal)
		// The fee is retained from the seller, never added on top.
		assert.Equal(t, tt.subtotal, result.Order.Total)
	}
}

func TestCreateOrderOversellPrevented(t *testing.T) {
	env := newTestEnv(t)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 3)

	alice := env.createUser(t, 0)
	bob := env.createUser(t, 0)
	require.NoError(t, env.cart.AddItem(alice.ID, "sess-1", product.ID, 2, nil))
	require.NoError(t, env.cart.AddItem(bob.ID, "sess-1", product.ID, 2, nil))

	_, err := env.checkout(t, alice.ID, store.ID, models.PaymentProviderBankTransfer, "")
	require.NoError(t, err)

	_, err = env.checkout(t, bob.ID, store.ID, models.PaymentProviderBankTransfer, "")
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// The failed order must not have touched stock.
	var stored models.Product
	require.NoError(t, env.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 1, stored.InventoryQuantity)
}

func TestCreateOrderDepletionFlipsStatus(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 2)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 2, nil))
	_, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
	require.NoError(t, err)

	var stored models.Product
	require.NoError(t, env.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 0, stored.InventoryQuantity)
	assert.Equal(t, models.ProductStatusOutOfStock, stored.Status)
}

func TestCreateOrderWithCredits(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1000)
	store := env.createStore(t, models.SubscriptionTierFree)
	a := env.createCreditProduct(t, store.ID, 100, 10)
	b := env.createCreditProduct(t, store.ID, 250, 10)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", a.ID, 2, nil))
	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", b.ID, 1, nil))

	result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderCredits, "")
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, models.CurrencyDomainCredits, order.CurrencyDomain)
	assert.Equal(t, 450.0, order.Total)
	// Credits settle synchronously.
	assert.Equal(t, models.OrderPaymentStatusPaid, order.PaymentStatus)
	assert.Nil(t, result.Initiation)
	assert.Empty(t, order.Payments)

	var stored models.User
	require.NoError(t, env.db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(550), stored.Credits)
}

func TestCreateOrderInsufficientCreditsRollsBack(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 100)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createCreditProduct(t, store.ID, 250, 5)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))

	_, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderCredits, "")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	// Everything rolled back: balance, stock and cart untouched.
	var storedUser models.User
	require.NoError(t, env.db.First(&storedUser, "id = ?", user.ID).Error)
	assert.Equal(t, int64(100), storedUser.Credits)

	var storedProduct models.Product
	require.NoError(t, env.db.First(&storedProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 5, storedProduct.InventoryQuantity)

	view, err := env.cart.GetCart(user.ID, "sess-1", models.CurrencyDomainCredits)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestCreateOrderInvalidPhone(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 10)
	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))

	// Airtel prefix on an MTN payment.
	_, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderMTN, "0751234567")
	assert.ErrorIs(t, err, ErrInvalidPhoneNumber)

	// Nothing was created.
	var count int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)

	_, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrderDemoRejectionFailsPayment(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 10)
	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))

	result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderMTN, "0770001111")
	require.NoError(t, err)

	// The order exists; the payment attempt landed in failed.
	require.NotNil(t, result.Initiation)
	assert.False(t, result.Initiation.Success)

	var payment models.Payment
	require.NoError(t, env.db.First(&payment, "order_id = ?", result.Order.ID).Error)
	assert.Equal(t, models.PaymentStateFailed, payment.State)
	assert.Equal(t, "insufficient funds", payment.FailureReason)
	assert.Equal(t, models.OrderPaymentStatusUnpaid, result.Order.PaymentStatus)
}

func TestCancelOrderRestoresStockAndCredits(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1000)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createCreditProduct(t, store.ID, 250, 2)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 2, nil))
	result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderCredits, "")
	require.NoError(t, err)

	// Depleted and debited.
	var stored models.Product
	require.NoError(t, env.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, models.ProductStatusOutOfStock, stored.Status)

	require.NoError(t, env.orders.CancelOrder(user.ID, result.Order.ID, "changed my mind"))

	order, err := env.orders.GetOrder(user.ID, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, models.OrderPaymentStatusRefunded, order.PaymentStatus)
	assert.NotNil(t, order.CancelledAt)
	assert.Equal(t, "changed my mind", order.CancelReason)

	require.NoError(t, env.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 2, stored.InventoryQuantity)
	assert.Equal(t, models.ProductStatusActive, stored.Status)

	var storedUser models.User
	require.NoError(t, env.db.First(&storedUser, "id = ?", user.ID).Error)
	assert.Equal(t, int64(1000), storedUser.Credits)

	// Terminal: cannot cancel twice.
	err = env.orders.CancelOrder(user.ID, result.Order.ID, "again")
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
}

func TestCancelOrderOwnershipAndFulfillmentGuards(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	stranger := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 10)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
	result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
	require.NoError(t, err)

	err = env.orders.CancelOrder(stranger.ID, result.Order.ID, "not mine")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// Shipped orders are past the point of no return.
	require.NoError(t, env.db.Model(&models.Order{}).Where("id = ?", result.Order.ID).
		Updates(map[string]any{"status": models.OrderStatusShipped, "payment_status": models.OrderPaymentStatusPaid}).Error)

	err = env.orders.CancelOrder(user.ID, result.Order.ID, "too late")
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
}

func TestFulfillmentTransitions(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 10)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
	result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
	require.NoError(t, err)
	orderID := result.Order.ID
	owner := store.OwnerID

	// Unpaid orders cannot ship.
	err = env.orders.MarkAsShipped(owner, orderID, "TRACK-001")
	assert.ErrorIs(t, err, ErrOrderNotPaid)

	// Unshipped orders cannot be delivered.
	err = env.orders.MarkAsDelivered(owner, orderID)
	assert.ErrorIs(t, err, ErrOrderNotShipped)

	require.NoError(t, env.db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("payment_status", models.OrderPaymentStatusPaid).Error)

	require.NoError(t, env.orders.MarkAsShipped(owner, orderID, "TRACK-001"))

	order, err := env.orders.GetOrder(user.ID, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, order.Status)
	require.NotNil(t, order.TrackingNumber)
	assert.Equal(t, "TRACK-001", *order.TrackingNumber)
	assert.NotNil(t, order.ShippedAt)

	require.NoError(t, env.orders.MarkAsDelivered(owner, orderID))

	order, err = env.orders.GetOrder(user.ID, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)
	assert.NotNil(t, order.DeliveredAt)
}

func TestFulfillmentRequiresStoreOwner(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	stranger := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 10)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
	result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
	require.NoError(t, err)
	orderID := result.Order.ID

	require.NoError(t, env.db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("payment_status", models.OrderPaymentStatusPaid).Error)

	// Neither the buyer nor a third party may fulfill another store's
	// order.
	err = env.orders.MarkAsShipped(user.ID, orderID, "TRACK-001")
	assert.ErrorIs(t, err, ErrNotStoreOwner)
	err = env.orders.MarkAsShipped(stranger.ID, orderID, "TRACK-001")
	assert.ErrorIs(t, err, ErrNotStoreOwner)

	require.NoError(t, env.orders.MarkAsShipped(store.OwnerID, orderID, "TRACK-001"))

	err = env.orders.MarkAsDelivered(stranger.ID, orderID)
	assert.ErrorIs(t, err, ErrNotStoreOwner)
	require.NoError(t, env.orders.MarkAsDelivered(store.OwnerID, orderID))
}

func TestCancelOrderAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1000)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createCreditProduct(t, store.ID, 250, 2)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 2, nil))
	result, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderCredits, "")
	require.NoError(t, err)

	// Fail the final order update so the transaction aborts after stock
	// and credits were already compensated inside it.
	forced := errors.New("forced write failure")
	require.NoError(t, env.db.Callback().Update().Before("gorm:update").
		Register("orders_update_failure", func(tx *gorm.DB) {
			if tx.Statement.Table == "orders" {
				_ = tx.AddError(forced)
			}
		}))

	err = env.orders.CancelOrder(user.ID, result.Order.ID, "changed my mind")
	require.ErrorIs(t, err, forced)

	// Neither the stock restore nor the refund leaked out of the aborted
	// transaction.
	var storedUser models.User
	require.NoError(t, env.db.First(&storedUser, "id = ?", user.ID).Error)
	assert.Equal(t, int64(500), storedUser.Credits)

	var storedProduct models.Product
	require.NoError(t, env.db.First(&storedProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 0, storedProduct.InventoryQuantity)
	assert.Equal(t, models.ProductStatusOutOfStock, storedProduct.Status)

	order, err := env.orders.GetOrder(user.ID, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.OrderPaymentStatusPaid, order.PaymentStatus)

	// With the fault removed the same cancellation restores everything.
	require.NoError(t, env.db.Callback().Update().Remove("orders_update_failure"))
	require.NoError(t, env.orders.CancelOrder(user.ID, result.Order.ID, "changed my mind"))

	require.NoError(t, env.db.First(&storedUser, "id = ?", user.ID).Error)
	assert.Equal(t, int64(1000), storedUser.Credits)
	require.NoError(t, env.db.First(&storedProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 2, storedProduct.InventoryQuantity)
}

func TestCreateOrderNumberCollisionRetries(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 10)

	env.orders.orderSuffix = func(int) (string, error) { return "AAAAAA", nil }
	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
	first, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
	require.NoError(t, err)

	// The first candidate now collides with the existing order; the
	// duplicate-key error must earn a retry with a fresh suffix.
	calls := 0
	env.orders.orderSuffix = func(int) (string, error) {
		calls++
		if calls == 1 {
			return "AAAAAA", nil
		}
		return "BBBBBB", nil
	}

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
	second, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NotEqual(t, first.Order.OrderNumber, second.Order.OrderNumber)
}

func TestCreateOrderNumberExhaustionRollsBack(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 10)

	env.orders.orderSuffix = func(int) (string, error) { return "AAAAAA", nil }
	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
	_, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
	require.NoError(t, err)

	require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
	_, err = env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unique order number")

	// The whole checkout rolled back: one order, stock and cart intact.
	var count int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var stored models.Product
	require.NoError(t, env.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 9, stored.InventoryQuantity)

	view, err := env.cart.GetCart(user.ID, "sess-1", models.CurrencyDomainMoney)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestCreateOrderConcurrentNumbersUnique(t *testing.T) {
	env := newTestEnv(t)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 100)

	const buyers = 8
	users := make([]*models.User, buyers)
	for i := range users {
		users[i] = env.createUser(t, 0)
		require.NoError(t, env.cart.AddItem(users[i].ID, "sess-1", product.ID, 1, nil))
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.checkout(t, users[i].ID, store.ID, models.PaymentProviderBankTransfer, "")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	var numbers []string
	require.NoError(t, env.db.Model(&models.Order{}).Pluck("order_number", &numbers).Error)
	require.Len(t, numbers, buyers)

	seen := map[string]bool{}
	for _, n := range numbers {
		assert.False(t, seen[n], n)
		seen[n] = true
	}
}

func TestGetUserOrdersPagination(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)
	store := env.createStore(t, models.SubscriptionTierFree)
	product := env.createProduct(t, store.ID, 1000, 50)

	for i := 0; i < 3; i++ {
		require.NoError(t, env.cart.AddItem(user.ID, "sess-1", product.ID, 1, nil))
		_, err := env.checkout(t, user.ID, store.ID, models.PaymentProviderBankTransfer, "")
		require.NoError(t, err)
	}

	orders, total, err := env.orders.GetUserOrders(user.ID, testPagination(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 2)

	orders, _, err = env.orders.GetUserOrders(user.ID, testPagination(2, 2))
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
