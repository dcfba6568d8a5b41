package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/m-orlov/freelance-market/internal/dto"
	"github.com/m-orlov/freelance-market/internal/http/handlers/common"
	"github.com/m-orlov/freelance-market/internal/service"
)

type WalletHandler struct {
	wallets *service.WalletService
}

func NewWalletHandler(wallets *service.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// Get GET /wallet
// Вместе с кошельком возвращает последние движения по леджеру.
func (h *WalletHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	wallet, err := h.wallets.Get(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	entries, err := h.wallets.ListEntries(c.Request.Context(), userID, 10, 0)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WalletResponse{
		Wallet:  wallet,
		Entries: entries,
	})
}

// Deposit POST /wallet/deposit
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "amount обязателен")
		return
	}

	payment, err := h.wallets.Deposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Withdraw POST /wallet/withdraw
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "amount обязателен")
		return
	}

	payment, err := h.wallets.Withdraw(c.Request.Context(), userID, req.Amount)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListEntries GET /wallet/entries
func (h *WalletHandler) ListEntries(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	limit, offset := common.GetPagination(c)
	entries, err := h.wallets.ListEntries(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
