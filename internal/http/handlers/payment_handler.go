package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/m-orlov/freelance-market/internal/dto"
	"github.com/m-orlov/freelance-market/internal/http/handlers/common"
	"github.com/m-orlov/freelance-market/internal/service"
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreateEscrow POST /projects/:id/escrow
func (h *PaymentHandler) CreateEscrow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.CreateEscrow(c.Request.Context(), projectID, userID, common.IdempotencyKey(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// GetEscrow GET /projects/:id/escrow
func (h *PaymentHandler) GetEscrow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	role, _ := common.CurrentUserRole(c)

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.GetEscrowByProject(c.Request.Context(), projectID, userID, role)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Release POST /payments/:id/release
func (h *PaymentHandler) Release(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.Release(c.Request.Context(), paymentID, userID, common.IdempotencyKey(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// RequestRefund POST /payments/:id/refund-request
func (h *PaymentHandler) RequestRefund(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "reason обязателен")
		return
	}

	payment, err := h.payments.RequestRefund(c.Request.Context(), paymentID, userID, req.Reason)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ProcessRefund POST /payments/:id/refund (только администратор)
func (h *PaymentHandler) ProcessRefund(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.ProcessRefund(c.Request.Context(), paymentID, adminID, common.IdempotencyKey(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Get GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	role, _ := common.CurrentUserRole(c)

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.Get(c.Request.Context(), paymentID, userID, role)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// List GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	limit, offset := common.GetPagination(c)
	payments, err := h.payments.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}
