// internal/handlers/payment.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tunesoko/tunesoko-backend/internal/payments"
	"github.com/tunesoko/tunesoko-backend/internal/services"
	"github.com/tunesoko/tunesoko-backend/internal/utils"
)

type PaymentHandler struct {
	settlementService *services.SettlementService
}

func NewPaymentHandler(settlementService *services.SettlementService) *PaymentHandler {
	return &PaymentHandler{
		settlementService: settlementService,
	}
}

type ConfirmManualPaymentRequest struct {
	Reference string `json:"reference" validate:"required,max=100"`
}

// GET /payments/:id/status
//
// Polling this endpoint drives reconciliation: each call fetches the
// provider's current view and applies any terminal transition.
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid payment ID", nil)
		return
	}

	payment, err := h.settlementService.PollAndReconcile(c.Request.Context(), paymentID)
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			utils.NotFoundResponse(c, "Payment")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"payment_id":     payment.ID,
		"transaction_id": payment.TransactionID,
		"state":          payment.State,
		"failure_reason": payment.FailureReason,
		"completed_at":   payment.CompletedAt,
	})
}

// GET /payments/history
func (h *PaymentHandler) GetPaymentHistory(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	history, total, err := h.settlementService.GetPaymentHistory(userID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(history, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /payments/:id/confirm
func (h *PaymentHandler) ConfirmManualPayment(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid payment ID", nil)
		return
	}

	var req ConfirmManualPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	payment, err := h.settlementService.ConfirmManualPayment(paymentID, req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			utils.NotFoundResponse(c, "Payment")
		case errors.Is(err, payments.ErrTerminalState), errors.Is(err, payments.ErrUnsupportedProvider):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, payment)
}
