// internal/handlers/order.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tunesoko/tunesoko-backend/internal/services"
	"github.com/tunesoko/tunesoko-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type ShipOrderRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required,max=100"`
}

// POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}
	if req.SessionID == "" {
		req.SessionID = utils.GetSessionIDFromContext(c)
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.orderService.CreateOrder(c.Request.Context(), userID, &req)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

// GET /orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	orders, total, err := h.orderService.GetUserOrders(userID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(orders, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	order, err := h.orderService.GetOrder(userID, orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.NotFoundResponse(c, "Order")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, order)
}

// POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.orderService.CancelOrder(userID, orderID, req.Reason); err != nil {
		respondOrderError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Order cancelled",
	})
}

// POST /orders/:id/ship
func (h *OrderHandler) ShipOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	var req ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.orderService.MarkAsShipped(userID, orderID, req.TrackingNumber); err != nil {
		respondOrderError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Order marked as shipped",
	})
}

// POST /orders/:id/deliver
func (h *OrderHandler) DeliverOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	if err := h.orderService.MarkAsDelivered(userID, orderID); err != nil {
		respondOrderError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Order marked as delivered",
	})
}

func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		utils.NotFoundResponse(c, "Order")
	case errors.Is(err, services.ErrNotStoreOwner):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrEmptyCart):
		utils.UnprocessableResponse(c, "EMPTY_CART", err.Error())
	case errors.Is(err, services.ErrInvalidPhoneNumber):
		utils.UnprocessableResponse(c, "INVALID_PHONE_NUMBER", err.Error())
	case errors.Is(err, services.ErrInvalidCurrencyDomain):
		utils.UnprocessableResponse(c, "INVALID_CURRENCY_DOMAIN", err.Error())
	case errors.Is(err, services.ErrInsufficientCredits):
		utils.UnprocessableResponse(c, "INSUFFICIENT_CREDITS", err.Error())
	case errors.Is(err, services.ErrOutOfStock),
		errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrOrderNotCancellable),
		errors.Is(err, services.ErrOrderNotPaid),
		errors.Is(err, services.ErrOrderNotShipped):
		utils.ConflictResponse(c, err.Error())
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
