// internal/handlers/cart.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tunesoko/tunesoko-backend/internal/models"
	"github.com/tunesoko/tunesoko-backend/internal/services"
	"github.com/tunesoko/tunesoko-backend/internal/utils"
)

type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID uuid.UUID         `json:"product_id" validate:"required"`
	Quantity  int               `json:"quantity" validate:"required,min=1"`
	Options   map[string]string `json:"options,omitempty"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	sessionID := utils.GetSessionIDFromContext(c)

	domain := models.CurrencyDomainMoney
	if c.Query("domain") == string(models.CurrencyDomainCredits) {
		domain = models.CurrencyDomainCredits
	}

	view, err := h.cartService.GetCart(userID, sessionID, domain)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCurrencyDomain) {
			utils.UnprocessableResponse(c, "INVALID_CURRENCY_DOMAIN", err.Error())
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, view)
}

// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	sessionID := utils.GetSessionIDFromContext(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.cartService.AddItem(userID, sessionID, req.ProductID, req.Quantity, req.Options); err != nil {
		respondCartError(c, err)
		return
	}

	view, err := h.cartService.GetCart(userID, sessionID, models.CurrencyDomainMoney)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, view)
}

// PUT /cart/items/:key
func (h *CartHandler) UpdateItem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	sessionID := utils.GetSessionIDFromContext(c)
	itemKey := c.Param("key")

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if err := h.cartService.UpdateQuantity(userID, sessionID, itemKey, req.Quantity); err != nil {
		respondCartError(c, err)
		return
	}

	view, err := h.cartService.GetCart(userID, sessionID, models.CurrencyDomainMoney)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, view)
}

// DELETE /cart/items/:key
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	sessionID := utils.GetSessionIDFromContext(c)

	if err := h.cartService.RemoveItem(userID, sessionID, c.Param("key")); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Item removed",
	})
}

// DELETE /cart
func (h *CartHandler) Clear(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	sessionID := utils.GetSessionIDFromContext(c)

	if err := h.cartService.Clear(userID, sessionID); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Cart cleared",
	})
}

func respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		utils.NotFoundResponse(c, "Product")
	case errors.Is(err, services.ErrItemNotFound):
		utils.NotFoundResponse(c, "Cart item")
	case errors.Is(err, services.ErrOutOfStock), errors.Is(err, services.ErrInsufficientStock):
		utils.ConflictResponse(c, err.Error())
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}

func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}

	return userID, true
}
