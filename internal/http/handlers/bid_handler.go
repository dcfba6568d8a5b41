package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/m-orlov/freelance-market/internal/dto"
	"github.com/m-orlov/freelance-market/internal/http/handlers/common"
	"github.com/m-orlov/freelance-market/internal/service"
)

type BidHandler struct {
	bids *service.BidService
}

func NewBidHandler(bids *service.BidService) *BidHandler {
	return &BidHandler{bids: bids}
}

// Submit POST /projects/:id/bids
func (h *BidHandler) Submit(c *gin.Context) {
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

	var req dto.SubmitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "amount, proposal и delivery_days обязательны")
		return
	}

	bid, err := h.bids.Submit(c.Request.Context(), projectID, userID, service.SubmitBidInput{
		Amount:       req.Amount,
		Proposal:     req.Proposal,
		DeliveryDays: req.DeliveryDays,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

// ListByProject GET /projects/:id/bids
func (h *BidHandler) ListByProject(c *gin.Context) {
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

	bids, err := h.bids.ListByProject(c.Request.Context(), projectID, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, bids)
}

// Accept POST /projects/:id/bids/:bidId/accept
func (h *BidHandler) Accept(c *gin.Context) {
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
	bidID, err := common.ParseUUIDParam(c, "bidId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bid, err := h.bids.Accept(c.Request.Context(), projectID, bidID, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

// ListMine GET /bids/my
func (h *BidHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	bids, err := h.bids.ListMine(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, bids)
}

// Update PUT /bids/:id
func (h *BidHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SubmitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "amount, proposal и delivery_days обязательны")
		return
	}

	bid, err := h.bids.Update(c.Request.Context(), bidID, userID, service.SubmitBidInput{
		Amount:       req.Amount,
		Proposal:     req.Proposal,
		DeliveryDays: req.DeliveryDays,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

// Withdraw DELETE /bids/:id
func (h *BidHandler) Withdraw(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.bids.Withdraw(c.Request.Context(), bidID, userID); err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ставка отозвана"})
}
