// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tunesoko/tunesoko-backend/internal/config"
	"github.com/tunesoko/tunesoko-backend/internal/events"
	"github.com/tunesoko/tunesoko-backend/internal/handlers"
	"github.com/tunesoko/tunesoko-backend/internal/middleware"
	"github.com/tunesoko/tunesoko-backend/internal/payments"
	"github.com/tunesoko/tunesoko-backend/internal/services"
	"github.com/tunesoko/tunesoko-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
	}

	gateway := payments.NewGateway(db, cfg.Payment)
	pricingService := services.NewPricingService(cfg.Payment)
	cartService := services.NewCartService(db, pricingService, cfg.Cart)
	orderService := services.NewOrderService(db, pricingService, gateway, publisher, cfg)
	settlementService := services.NewSettlementService(db, gateway)

	// Initialize handlers
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(settlementService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Cart routes
		cart := v1.Group("/cart")
		cart.Use(middleware.AuthRequired())
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.Clear)
			cart.POST("/items", cartHandler.AddItem)
			cart.PUT("/items/:key", cartHandler.UpdateItem)
			cart.DELETE("/items/:key", cartHandler.RemoveItem)
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", middleware.CheckoutRateLimit(), orderHandler.CreateOrder)
			orders.GET("", orderHandler.GetOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/cancel", orderHandler.CancelOrder)
			orders.POST("/:id/ship", orderHandler.ShipOrder)
			orders.POST("/:id/deliver", orderHandler.DeliverOrder)
		}

		// Payment routes
		paymentRoutes := v1.Group("/payments")
		paymentRoutes.Use(middleware.AuthRequired())
		{
			paymentRoutes.GET("/history", paymentHandler.GetPaymentHistory)
			paymentRoutes.GET("/:id/status", middleware.PaymentPollRateLimit(), paymentHandler.GetPaymentStatus)
			// Manual settlement is an operator action.
			paymentRoutes.POST("/:id/confirm", middleware.AdminRequired(), paymentHandler.ConfirmManualPayment)
		}
	}

	return r
}
