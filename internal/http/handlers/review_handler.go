package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/m-orlov/freelance-market/internal/dto"
	"github.com/m-orlov/freelance-market/internal/http/handlers/common"
	"github.com/m-orlov/freelance-market/internal/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create POST /projects/:id/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
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

	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "rating обязателен")
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), projectID, userID, req.Rating, req.Comment)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// ListByUser GET /users/:id/reviews
func (h *ReviewHandler) ListByUser(c *gin.Context) {
	targetID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	reviews, err := h.reviews.ListByUser(c.Request.Context(), targetID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	rating, err := h.reviews.Rating(c.Request.Context(), targetID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserRatingResponse{
		Average: rating.Average,
		Count:   rating.Count,
		Reviews: reviews,
	})
}
