package dto

import "github.com/shopspring/decimal"

// RegisterRequest represents the request to register a user
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh tokens
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateProjectRequest represents the request to create a project
type CreateProjectRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Budget      decimal.Decimal `json:"budget" binding:"required"`
}

// SubmitBidRequest represents the request to submit a bid
type SubmitBidRequest struct {
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Proposal     string          `json:"proposal" binding:"required"`
	DeliveryDays int             `json:"delivery_days" binding:"required"`
}

// AmountRequest represents a deposit or withdrawal request
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// RefundRequest represents the request to refund an escrow payment
type RefundRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// OpenDisputeRequest represents the request to open a dispute
type OpenDisputeRequest struct {
	Type        string `json:"type" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// ResolveDisputeRequest represents the request to resolve a dispute
type ResolveDisputeRequest struct {
	Winner       string           `json:"winner" binding:"required"`
	Resolution   string           `json:"resolution" binding:"required"`
	RefundAmount *decimal.Decimal `json:"refund_amount"`
}

// DisputeMessageRequest represents the request to post a dispute message
type DisputeMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateReviewRequest represents the request to leave a review
type CreateReviewRequest struct {
	Rating  int     `json:"rating" binding:"required"`
	Comment *string `json:"comment"`
}
