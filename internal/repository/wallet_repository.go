package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/m-orlov/freelance-market/internal/models"
)

// WalletRepository отвечает за кошельки, пополнения и выводы средств.
type WalletRepository struct {
	db *sqlx.DB
}

// NewWalletRepository создаёт экземпляр репозитория.
func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// createWalletTx создаёт кошелёк с приветственным бонусом внутри открытой
// транзакции. Бонус проводится через леджер, как и любое другое движение
// средств. Вызывается при регистрации пользователя.
func createWalletTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, welcomeBonus decimal.Decimal) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.GetContext(ctx, &wallet, `
		INSERT INTO wallets (user_id, balance_usdt, escrow_balance, address, private_key)
		VALUES ($1, 0, 0, $2, $3)
		RETURNING id, user_id, balance_usdt, escrow_balance, address, private_key, version, created_at, updated_at
	`, userID, "0x"+randomHex(20), randomHex(32))
	if err != nil {
		return nil, fmt.Errorf("wallet repository: create %w", err)
	}

	if welcomeBonus.IsPositive() {
		if err := applyEntry(ctx, tx, ledgerEntryInput{
			WalletID:    wallet.ID,
			Direction:   models.EntryDirectionCredit,
			Balance:     models.EntryBalanceAvailable,
			Amount:      welcomeBonus,
			Description: "Приветственный бонус",
		}); err != nil {
			return nil, err
		}
		wallet.BalanceUSDT = welcomeBonus
	}

	return &wallet, nil
}

// GetByUserID возвращает кошелёк пользователя.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `
		SELECT id, user_id, balance_usdt, escrow_balance, address, private_key, version, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`
	if err := r.db.GetContext(ctx, &wallet, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet repository: get by user %w", err)
	}
	return &wallet, nil
}

// Deposit пополняет доступный баланс и создаёт платёж типа deposit.
func (r *WalletRepository) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	wallet, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var payment models.Payment
	err = tx.GetContext(ctx, &payment, `
		INSERT INTO payments (payer_id, payee_id, amount, type, status, transaction_hash)
		VALUES ($1, $1, $2, 'deposit', 'completed', $3)
		RETURNING id, project_id, payer_id, payee_id, amount, type, status, transaction_hash,
		          refund_reason, idempotency_key, created_at, released_at, refunded_at
	`, userID, amount, "0x"+randomHex(32))
	if err != nil {
		return nil, fmt.Errorf("wallet repository: deposit payment %w", err)
	}

	if err := applyEntry(ctx, tx, ledgerEntryInput{
		WalletID:    wallet.ID,
		PaymentID:   &payment.ID,
		Direction:   models.EntryDirectionCredit,
		Balance:     models.EntryBalanceAvailable,
		Amount:      amount,
		Description: "Пополнение баланса",
	}); err != nil {
		return nil, err
	}

	return &payment, tx.Commit()
}

// Withdraw списывает средства с доступного баланса и создаёт платёж типа withdrawal.
func (r *WalletRepository) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	wallet, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.BalanceUSDT.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	var payment models.Payment
	err = tx.GetContext(ctx, &payment, `
		INSERT INTO payments (payer_id, payee_id, amount, type, status, transaction_hash)
		VALUES ($1, $1, $2, 'withdrawal', 'completed', $3)
		RETURNING id, project_id, payer_id, payee_id, amount, type, status, transaction_hash,
		          refund_reason, idempotency_key, created_at, released_at, refunded_at
	`, userID, amount, "0x"+randomHex(32))
	if err != nil {
		return nil, fmt.Errorf("wallet repository: withdrawal payment %w", err)
	}

	if err := applyEntry(ctx, tx, ledgerEntryInput{
		WalletID:    wallet.ID,
		PaymentID:   &payment.ID,
		Direction:   models.EntryDirectionDebit,
		Balance:     models.EntryBalanceAvailable,
		Amount:      amount,
		Description: "Вывод средств",
	}); err != nil {
		return nil, err
	}

	return &payment, tx.Commit()
}

// ListEntries возвращает историю движений по кошельку пользователя.
func (r *WalletRepository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletEntry, error) {
	var entries []models.WalletEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT e.id, e.wallet_id, e.payment_id, e.direction, e.balance, e.amount, e.description, e.created_at
		FROM wallet_entries e
		JOIN wallets w ON w.id = e.wallet_id
		WHERE w.user_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: list entries %w", err)
	}
	return entries, nil
}
