package dto

import (
	"github.com/m-orlov/freelance-market/internal/models"
)

// ErrorResponse represents a standardized error body
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// AuthResponse represents the result of registration or login
type AuthResponse struct {
	User         *models.User   `json:"user"`
	Wallet       *models.Wallet `json:"wallet,omitempty"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}

// WalletResponse represents a wallet with its entry history
type WalletResponse struct {
	*models.Wallet
	Entries []models.WalletEntry `json:"entries,omitempty"`
}

// DisputeResponse represents a dispute with its messages and evidence
type DisputeResponse struct {
	*models.Dispute
	Messages []models.DisputeMessage  `json:"messages,omitempty"`
	Evidence []models.DisputeEvidence `json:"evidence,omitempty"`
}

// UserRatingResponse represents aggregated reviews of a user
type UserRatingResponse struct {
	Average float64         `json:"average"`
	Count   int             `json:"count"`
	Reviews []models.Review `json:"reviews"`
}
