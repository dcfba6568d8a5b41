package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/m-orlov/freelance-market/internal/models"
)

var (
	// ErrInsufficientFunds возвращается при нехватке средств на кошельке.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrWalletNotFound возвращается, когда кошелёк не найден.
	ErrWalletNotFound = errors.New("wallet not found")
)

// ledgerEntryInput описывает одно движение средств по кошельку.
type ledgerEntryInput struct {
	WalletID    uuid.UUID
	PaymentID   *uuid.UUID
	Direction   string
	Balance     string
	Amount      decimal.Decimal
	Description string
}

// lockWallet блокирует строку кошелька до конца транзакции.
// Все пары "проверка баланса + списание" обязаны проходить через эту
// блокировку, иначе возможна гонка read-balance-then-write.
func lockWallet(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `
		SELECT id, user_id, balance_usdt, escrow_balance, address, private_key, version, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`
	if err := tx.GetContext(ctx, &wallet, query, userID); err != nil {
		return nil, ErrWalletNotFound
	}
	return &wallet, nil
}

// applyEntry — единственная точка изменения балансов кошелька.
// Обновляет колонку баланса, поднимает version и записывает строку леджера
// в той же транзакции. Любой кредит или дебет без записи в леджере
// невозможен по построению.
func applyEntry(ctx context.Context, tx *sqlx.Tx, in ledgerEntryInput) error {
	if !in.Amount.IsPositive() {
		return fmt.Errorf("ledger: сумма движения должна быть положительной")
	}

	column := "balance_usdt"
	if in.Balance == models.EntryBalanceEscrow {
		column = "escrow_balance"
	}

	delta := in.Amount
	if in.Direction == models.EntryDirectionDebit {
		delta = in.Amount.Neg()
	}

	// Констрейнт CHECK (>= 0) в схеме — вторая линия защиты, первая —
	// проверка баланса под блокировкой FOR UPDATE до вызова applyEntry.
	query := fmt.Sprintf(`
		UPDATE wallets
		SET %s = %s + $2, version = version + 1, updated_at = NOW()
		WHERE id = $1
	`, column, column)
	if _, err := tx.ExecContext(ctx, query, in.WalletID, delta); err != nil {
		return fmt.Errorf("ledger: обновление баланса %w", err)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_entries (wallet_id, payment_id, direction, balance, amount, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, in.WalletID, in.PaymentID, in.Direction, in.Balance, in.Amount, in.Description)
	if err != nil {
		return fmt.Errorf("ledger: запись леджера %w", err)
	}

	return nil
}

// randomHex возвращает случайную hex-строку заданной байтовой длины.
// Используется для симулированных blockchain-идентификаторов и хэшей транзакций.
func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand на поддерживаемых платформах не возвращает ошибок
		panic(fmt.Sprintf("ledger: rand.Read: %v", err))
	}
	return hex.EncodeToString(buf)
}
