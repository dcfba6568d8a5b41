package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Типы платежей
const (
	PaymentTypeEscrow     = "escrow"
	PaymentTypeDirect     = "direct"
	PaymentTypeRefund     = "refund"
	PaymentTypeDeposit    = "deposit"
	PaymentTypeWithdrawal = "withdrawal"
)

// Статусы платежей
const (
	PaymentStatusPending         = "pending"
	PaymentStatusHeld            = "held"
	PaymentStatusCompleted       = "completed"
	PaymentStatusFailed          = "failed"
	PaymentStatusRefunded        = "refunded"
	PaymentStatusRefundRequested = "refund_requested"
)

// Направления движения средств в леджере
const (
	EntryDirectionCredit = "credit"
	EntryDirectionDebit  = "debit"
)

// Виды балансов кошелька, которых касается запись леджера
const (
	EntryBalanceAvailable = "available"
	EntryBalanceEscrow    = "escrow"
)

// Wallet представляет кошелёк пользователя в USDT.
// Средства, удержанные в escrow, переносятся из balance_usdt в escrow_balance
// и возвращаются обратно при release или refund. Поле version растёт при
// каждой мутации и служит оптимистической защитой от гонок.
type Wallet struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	BalanceUSDT   decimal.Decimal `db:"balance_usdt" json:"balance_usdt"`
	EscrowBalance decimal.Decimal `db:"escrow_balance" json:"escrow_balance"`
	Address       string          `db:"address" json:"address"`
	PrivateKey    string          `db:"private_key" json:"-"`
	Version       int64           `db:"version" json:"-"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Payment представляет платёж: escrow по проекту, возврат, пополнение или вывод.
type Payment struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	ProjectID       *uuid.UUID      `db:"project_id" json:"project_id,omitempty"`
	PayerID         uuid.UUID       `db:"payer_id" json:"payer_id"`
	PayeeID         uuid.UUID       `db:"payee_id" json:"payee_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Type            string          `db:"type" json:"type"`
	Status          string          `db:"status" json:"status"`
	TransactionHash string          `db:"transaction_hash" json:"transaction_hash"`
	RefundReason    *string         `db:"refund_reason" json:"refund_reason,omitempty"`
	IdempotencyKey  *string         `db:"idempotency_key" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	ReleasedAt      *time.Time      `db:"released_at" json:"released_at,omitempty"`
	RefundedAt      *time.Time      `db:"refunded_at" json:"refunded_at,omitempty"`
}

// WalletEntry — запись леджера. Любое движение средств по кошельку
// (доступный баланс или escrow) создаётся строго вместе с такой записью
// в одной транзакции, поэтому сумма кредитов и дебетов всегда сходится.
type WalletEntry struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	WalletID    uuid.UUID       `db:"wallet_id" json:"wallet_id"`
	PaymentID   *uuid.UUID      `db:"payment_id" json:"payment_id,omitempty"`
	Direction   string          `db:"direction" json:"direction"`
	Balance     string          `db:"balance" json:"balance"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
