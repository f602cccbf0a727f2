// internal/services/setup_test.go
package services

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tunesoko/tunesoko-backend/internal/config"
	"github.com/tunesoko/tunesoko-backend/internal/models"
	"github.com/tunesoko/tunesoko-backend/internal/payments"
	"github.com/tunesoko/tunesoko-backend/internal/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Store{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Payment: config.PaymentConfig{
			DemoMode:       true,
			Currency:       "UGX",
			CreditsRateUGX: 100,
			MTN:            config.MTNConfig{BaseURL: "http://127.0.0.1:1"},
			Airtel:         config.AirtelConfig{BaseURL: "http://127.0.0.1:1"},
		},
		Commission: config.CommissionConfig{
			Tiers: map[string]config.CommissionTier{
				"free":     {Percent: 10.0, MinimumFee: 500},
				"standard": {Percent: 7.0, MinimumFee: 300},
				"premium":  {Percent: 5.0, MinimumFee: 200},
			},
		},
		Cart: config.CartConfig{TTLHours: 72},
	}
}

// recordingPublisher captures domain events for assertions.
type recordingPublisher struct {
	mtx    sync.Mutex
	events []any
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.events)
}

func (p *recordingPublisher) get(i int) any {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.events[i]
}

type testEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	pricing    *PricingService
	cart       *CartService
	orders     *OrderService
	settlement *SettlementService
	publisher  *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	cfg := testConfig()

	gateway := payments.NewGateway(db, cfg.Payment)
	pricing := NewPricingService(cfg.Payment)
	publisher := &recordingPublisher{}

	return &testEnv{
		db:         db,
		cfg:        cfg,
		pricing:    pricing,
		cart:       NewCartService(db, pricing, cfg.Cart),
		orders:     NewOrderService(db, pricing, gateway, publisher, cfg),
		settlement: NewSettlementService(db, gateway),
		publisher:  publisher,
	}
}

func (e *testEnv) createUser(t *testing.T, credits int64) *models.User {
	t.Helper()

	user := &models.User{
		Username: "user-" + uuid.NewString()[:8],
		Email:    uuid.NewString()[:8] + "@example.com",
		Credits:  credits,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("TestPass123!"))
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createStore(t *testing.T, tier models.SubscriptionTier) *models.Store {
	t.Helper()

	owner := e.createUser(t, 0)
	store := &models.Store{
		OwnerID:          owner.ID,
		Name:             "store-" + uuid.NewString()[:8],
		SubscriptionTier: tier,
		IsActive:         true,
	}
	require.NoError(t, e.db.Create(store).Error)
	return store
}

func (e *testEnv) createProduct(t *testing.T, storeID uuid.UUID, priceUGX float64, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		StoreID:           storeID,
		Name:              "product-" + uuid.NewString()[:8],
		PriceUGX:          priceUGX,
		InventoryQuantity: stock,
		TrackInventory:    true,
		Status:            models.ProductStatusActive,
	}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

func (e *testEnv) createCreditProduct(t *testing.T, storeID uuid.UUID, priceCredits int64, stock int) *models.Product {
	t.Helper()

	product := e.createProduct(t, storeID, float64(priceCredits)*100, stock)
	require.NoError(t, e.db.Model(product).Update("price_credits", priceCredits).Error)
	product.PriceCredits = &priceCredits
	return product
}

func testPagination(page, limit int) utils.PaginationParams {
	return utils.PaginationParams{Page: page, Limit: limit, Sort: "created_at", Order: "desc"}
}

func shippingFixture() ShippingAddressRequest {
	return ShippingAddressRequest{
		Name:    "Test Buyer",
		Phone:   "0771234567",
		Address: "Plot 12, Test Road",
		City:    "Kampala",
	}
}
