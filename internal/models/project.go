package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project описывает проект, размещённый клиентом.
// assigned_to заполняется только после принятия ставки.
type Project struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	ClientID    uuid.UUID       `db:"client_id" json:"client_id"`
	AssignedTo  *uuid.UUID      `db:"assigned_to" json:"assigned_to,omitempty"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Budget      decimal.Decimal `db:"budget" json:"budget"`
	Status      string          `db:"status" json:"status"`
	DeadlineAt  *time.Time      `db:"deadline_at" json:"deadline_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	BidsCount   *int            `db:"bids_count" json:"bids_count,omitempty"`
}

// Bid представляет ставку фрилансера на проект.
type Bid struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	ProjectID    uuid.UUID       `db:"project_id" json:"project_id"`
	BidderID     uuid.UUID       `db:"bidder_id" json:"bidder_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Proposal     string          `db:"proposal" json:"proposal"`
	DeliveryDays int             `db:"delivery_days" json:"delivery_days"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
