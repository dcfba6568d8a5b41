package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// События, рассылаемые через WebSocket и сохраняемые как уведомления
const (
	EventBidAccepted     = "bid_accepted"
	EventBidRejected     = "bid_rejected"
	EventEscrowCreated   = "escrow_created"
	EventEscrowReleased  = "escrow_released"
	EventEscrowRefunded  = "escrow_refunded"
	EventRefundRequested = "refund_requested"
	EventDisputeOpened   = "dispute_opened"
	EventDisputeResolved = "dispute_resolved"
)

// Notification — сохранённое уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Event     string          `db:"event" json:"event"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
