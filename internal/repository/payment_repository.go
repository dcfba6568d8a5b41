package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m-orlov/freelance-market/internal/models"
)

var (
	// ErrPaymentNotFound возвращается, когда платёж не найден.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrEscrowExists возвращается при попытке создать второй escrow по проекту.
	ErrEscrowExists = errors.New("escrow payment already exists for this project")
	// ErrEscrowNotHeld возвращается, когда платёж не в статусе held.
	ErrEscrowNotHeld = errors.New("escrow payment is not held")
	// ErrRefundNotRequested возвращается при обработке возврата без запроса.
	ErrRefundNotRequested = errors.New("refund was not requested for this payment")
	// ErrNotEscrowPayment возвращается для операций escrow над платежом другого типа.
	ErrNotEscrowPayment = errors.New("payment is not an escrow payment")
	// ErrProjectNotCompleted возвращается при release до завершения проекта.
	ErrProjectNotCompleted = errors.New("project is not completed")
	// ErrDisputeActive возвращается при release, пока по проекту открыт спор.
	ErrDisputeActive = errors.New("active dispute blocks this payment")
)

const paymentColumns = `id, project_id, payer_id, payee_id, amount, type, status, transaction_hash,
	refund_reason, idempotency_key, created_at, released_at, refunded_at`

// PaymentRepository реализует машину состояний escrow платежа.
// Каждая денежная операция выполняется в одной транзакции: блокировка
// кошелька, проверка предусловий, движение средств через леджер и
// изменение статуса платежа либо проходят целиком, либо откатываются.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository создаёт экземпляр репозитория.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// GetByID возвращает платёж по идентификатору.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get by id %w", err)
	}
	return &payment, nil
}

// GetEscrowByProjectID возвращает escrow платёж проекта.
func (r *PaymentRepository) GetEscrowByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE project_id = $1 AND type = 'escrow'`
	if err := r.db.GetContext(ctx, &payment, query, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get escrow by project %w", err)
	}
	return &payment, nil
}

// CreateEscrow создаёт escrow платёж по принятой ставке проекта.
// Атомарно: блокирует проект и кошелёк клиента, проверяет статус проекта,
// наличие принятой ставки, отсутствие второго escrow и достаточность
// баланса, затем переносит сумму из доступного баланса в escrow_balance
// и создаёт платёж в статусе held.
func (r *PaymentRepository) CreateEscrow(ctx context.Context, projectID, clientID uuid.UUID, idempotencyKey *string) (*models.Payment, error) {
	if payment, ok, err := r.replayIdempotent(ctx, idempotencyKey, "create_escrow", clientID); err != nil || ok {
		return payment, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var project models.Project
	err = tx.GetContext(ctx, &project, `
		SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE
	`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payment repository: lock project %w", err)
	}
	if project.Status != models.ProjectStatusInProgress || project.AssignedTo == nil {
		return nil, ErrProjectNotInProgress
	}

	var bid models.Bid
	err = tx.GetContext(ctx, &bid, `
		SELECT `+bidColumns+` FROM bids WHERE project_id = $1 AND status = 'accepted'
	`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBidNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payment repository: get accepted bid %w", err)
	}

	var escrowCount int
	if err := tx.GetContext(ctx, &escrowCount, `
		SELECT COUNT(*) FROM payments WHERE project_id = $1 AND type = 'escrow'
	`, projectID); err != nil {
		return nil, fmt.Errorf("payment repository: check existing escrow %w", err)
	}
	if escrowCount > 0 {
		return nil, ErrEscrowExists
	}

	wallet, err := lockWallet(ctx, tx, clientID)
	if err != nil {
		return nil, err
	}
	if wallet.BalanceUSDT.LessThan(bid.Amount) {
		return nil, ErrInsufficientFunds
	}

	var payment models.Payment
	err = tx.GetContext(ctx, &payment, `
		INSERT INTO payments (project_id, payer_id, payee_id, amount, type, status, transaction_hash, idempotency_key)
		VALUES ($1, $2, $3, $4, 'escrow', 'held', $5, $6)
		RETURNING `+paymentColumns+`
	`, projectID, clientID, *project.AssignedTo, bid.Amount, "0x"+randomHex(32), idempotencyKey)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEscrowExists
		}
		return nil, fmt.Errorf("payment repository: insert escrow %w", err)
	}

	// Перенос суммы из доступного баланса в удержанный
	if err := applyEntry(ctx, tx, ledgerEntryInput{
		WalletID: wallet.ID, PaymentID: &payment.ID,
		Direction: models.EntryDirectionDebit, Balance: models.EntryBalanceAvailable,
		Amount: bid.Amount, Description: "Удержание средств в escrow",
	}); err != nil {
		return nil, err
	}
	if err := applyEntry(ctx, tx, ledgerEntryInput{
		WalletID: wallet.ID, PaymentID: &payment.ID,
		Direction: models.EntryDirectionCredit, Balance: models.EntryBalanceEscrow,
		Amount: bid.Amount, Description: "Удержание средств в escrow",
	}); err != nil {
		return nil, err
	}

	if err := r.rememberIdempotent(ctx, tx, idempotencyKey, "create_escrow", clientID, payment.ID); err != nil {
		return nil, err
	}

	return &payment, tx.Commit()
}

// ReleaseEscrow выплачивает удержанные средства фрилансеру.
// Требует: тип escrow, статус held, проект completed, вызов от плательщика,
// отсутствие активного спора по проекту.
// Повторный вызов по уже выплаченному платежу вернёт ErrEscrowNotHeld —
// двойное зачисление невозможно.
func (r *PaymentRepository) ReleaseEscrow(ctx context.Context, paymentID, payerID uuid.UUID, idempotencyKey *string) (*models.Payment, error) {
	if payment, ok, err := r.replayIdempotent(ctx, idempotencyKey, "release_escrow", payerID); err != nil || ok {
		return payment, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	payment, err := r.lockPayment(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Type != models.PaymentTypeEscrow {
		return nil, ErrNotEscrowPayment
	}
	if payment.PayerID != payerID {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != models.PaymentStatusHeld {
		return nil, ErrEscrowNotHeld
	}

	var projectStatus string
	if err := tx.GetContext(ctx, &projectStatus, `
		SELECT status FROM projects WHERE id = $1 FOR UPDATE
	`, payment.ProjectID); err != nil {
		return nil, fmt.Errorf("payment repository: lock project %w", err)
	}
	if projectStatus != models.ProjectStatusCompleted {
		return nil, ErrProjectNotCompleted
	}

	// Пока спор активен, судьбу удержанных средств решает администратор
	var disputeActive bool
	if err := tx.GetContext(ctx, &disputeActive, `
		SELECT EXISTS (
			SELECT 1 FROM disputes WHERE project_id = $1 AND status IN ('open', 'in_review')
		)
	`, payment.ProjectID); err != nil {
		return nil, fmt.Errorf("payment repository: check active dispute %w", err)
	}
	if disputeActive {
		return nil, ErrDisputeActive
	}

	payerWallet, err := lockWallet(ctx, tx, payment.PayerID)
	if err != nil {
		return nil, err
	}
	payeeWallet, err := lockWallet(ctx, tx, payment.PayeeID)
	if err != nil {
		return nil, err
	}

	// Списание удержанной суммы у клиента и зачисление фрилансеру
	if err := applyEntry(ctx, tx, ledgerEntryInput{
		WalletID: payerWallet.ID, PaymentID: &payment.ID,
		Direction: models.EntryDirectionDebit, Balance: models.EntryBalanceEscrow,
		Amount: payment.Amount, Description: "Выплата по завершённому проекту",
	}); err != nil {
		return nil, err
	}
	if err := applyEntry(ctx, tx, ledgerEntryInput{
		WalletID: payeeWallet.ID, PaymentID: &payment.ID,
		Direction: models.EntryDirectionCredit, Balance: models.EntryBalanceAvailable,
		Amount: payment.Amount, Description: "Оплата за завершённый проект",
	}); err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = 'completed', released_at = $2 WHERE id = $1
	`, payment.ID, now); err != nil {
		return nil, fmt.Errorf("payment repository: mark released %w", err)
	}
	payment.Status = models.PaymentStatusCompleted
	payment.ReleasedAt = &now

	if err := r.rememberIdempotent(ctx, tx, idempotencyKey, "release_escrow", payerID, payment.ID); err != nil {
		return nil, err
	}

	return payment, tx.Commit()
}

// RequestRefund переводит held платёж в refund_requested.
// Средства не двигаются: это запрос, а не возврат.
func (r *PaymentRepository) RequestRefund(ctx context.Context, paymentID, payerID uuid.UUID, reason string) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	payment, err := r.lockPayment(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Type != models.PaymentTypeEscrow {
		return nil, ErrNotEscrowPayment
	}
	if payment.PayerID != payerID {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != models.PaymentStatusHeld {
		return nil, ErrEscrowNotHeld
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = 'refund_requested', refund_reason = $2 WHERE id = $1
	`, payment.ID, reason); err != nil {
		return nil, fmt.Errorf("payment repository: request refund %w", err)
	}
	payment.Status = models.PaymentStatusRefundRequested
	payment.RefundReason = &reason

	return payment, tx.Commit()
}

// ProcessRefund возвращает удержанные средства клиенту и отменяет проект.
// Вызывается только администратором по платежу в статусе refund_requested.
func (r *PaymentRepository) ProcessRefund(ctx context.Context, paymentID, adminID uuid.UUID, idempotencyKey *string) (*models.Payment, error) {
	if payment, ok, err := r.replayIdempotent(ctx, idempotencyKey, "process_refund", adminID); err != nil || ok {
		return payment, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	payment, err := r.lockPayment(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Type != models.PaymentTypeEscrow {
		return nil, ErrNotEscrowPayment
	}
	if payment.Status != models.PaymentStatusRefundRequested {
		return nil, ErrRefundNotRequested
	}

	if err := r.refundHeldFunds(ctx, tx, payment, "Возврат средств по запросу"); err != nil {
		return nil, err
	}

	if err := r.rememberIdempotent(ctx, tx, idempotencyKey, "process_refund", adminID, payment.ID); err != nil {
		return nil, err
	}

	return payment, tx.Commit()
}

// ResolveEscrowForDispute закрывает held escrow по решению администратора.
// Победа клиента — возврат по пути refund; победа фрилансера — выплата,
// проект при этом считается завершённым. Оба пути проходят через леджер,
// прямых правок балансов мимо платёжной машины нет.
func (r *PaymentRepository) ResolveEscrowForDispute(ctx context.Context, paymentID uuid.UUID, winner string) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	payment, err := r.lockPayment(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Type != models.PaymentTypeEscrow {
		return nil, ErrNotEscrowPayment
	}
	if payment.Status != models.PaymentStatusHeld && payment.Status != models.PaymentStatusRefundRequested {
		return nil, ErrEscrowNotHeld
	}

	switch winner {
	case models.DisputeWinnerClient:
		if err := r.refundHeldFunds(ctx, tx, payment, "Возврат средств по решению спора"); err != nil {
			return nil, err
		}
	case models.DisputeWinnerFreelancer:
		payerWallet, err := lockWallet(ctx, tx, payment.PayerID)
		if err != nil {
			return nil, err
		}
		payeeWallet, err := lockWallet(ctx, tx, payment.PayeeID)
		if err != nil {
			return nil, err
		}
		if err := applyEntry(ctx, tx, ledgerEntryInput{
			WalletID: payerWallet.ID, PaymentID: &payment.ID,
			Direction: models.EntryDirectionDebit, Balance: models.EntryBalanceEscrow,
			Amount: payment.Amount, Description: "Выплата по решению спора",
		}); err != nil {
			return nil, err
		}
		if err := applyEntry(ctx, tx, ledgerEntryInput{
			WalletID: payeeWallet.ID, PaymentID: &payment.ID,
			Direction: models.EntryDirectionCredit, Balance: models.EntryBalanceAvailable,
			Amount: payment.Amount, Description: "Выплата по решению спора",
		}); err != nil {
			return nil, err
		}

		now := time.Now()
		if _, err := tx.ExecContext(ctx, `
			UPDATE payments SET status = 'completed', released_at = $2 WHERE id = $1
		`, payment.ID, now); err != nil {
			return nil, fmt.Errorf("payment repository: mark released %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE projects SET status = 'completed', updated_at = NOW() WHERE id = $1 AND status <> 'completed'
		`, payment.ProjectID); err != nil {
			return nil, fmt.Errorf("payment repository: complete project %w", err)
		}
		payment.Status = models.PaymentStatusCompleted
		payment.ReleasedAt = &now
	default:
		return nil, fmt.Errorf("payment repository: неизвестный победитель спора %q", winner)
	}

	return payment, tx.Commit()
}

// ListByUser возвращает платежи, где пользователь является стороной.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.SelectContext(ctx, &payments, `
		SELECT `+paymentColumns+` FROM payments
		WHERE payer_id = $1 OR payee_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("payment repository: list by user %w", err)
	}
	return payments, nil
}

// lockPayment блокирует строку платежа до конца транзакции.
func (r *PaymentRepository) lockPayment(ctx context.Context, tx *sqlx.Tx, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := tx.GetContext(ctx, &payment, `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE
	`, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payment repository: lock payment %w", err)
	}
	return &payment, nil
}

// refundHeldFunds возвращает удержанную сумму клиенту, помечает платёж
// refunded и отменяет проект. Вызывается внутри открытой транзакции.
func (r *PaymentRepository) refundHeldFunds(ctx context.Context, tx *sqlx.Tx, payment *models.Payment, description string) error {
	wallet, err := lockWallet(ctx, tx, payment.PayerID)
	if err != nil {
		return err
	}

	if err := applyEntry(ctx, tx, ledgerEntryInput{
		WalletID: wallet.ID, PaymentID: &payment.ID,
		Direction: models.EntryDirectionDebit, Balance: models.EntryBalanceEscrow,
		Amount: payment.Amount, Description: description,
	}); err != nil {
		return err
	}
	if err := applyEntry(ctx, tx, ledgerEntryInput{
		WalletID: wallet.ID, PaymentID: &payment.ID,
		Direction: models.EntryDirectionCredit, Balance: models.EntryBalanceAvailable,
		Amount: payment.Amount, Description: description,
	}); err != nil {
		return err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = 'refunded', refunded_at = $2 WHERE id = $1
	`, payment.ID, now); err != nil {
		return fmt.Errorf("payment repository: mark refunded %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE projects SET status = 'cancelled', updated_at = NOW() WHERE id = $1
	`, payment.ProjectID); err != nil {
		return fmt.Errorf("payment repository: cancel project %w", err)
	}

	payment.Status = models.PaymentStatusRefunded
	payment.RefundedAt = &now
	return nil
}

// replayIdempotent возвращает уже созданный платёж, если пользователь
// повторил запрос с тем же идемпотентным ключом. Ключ действует только для
// своего пользователя: чужой ключ не даёт доступа к чужому платежу.
func (r *PaymentRepository) replayIdempotent(ctx context.Context, key *string, operation string, actorID uuid.UUID) (*models.Payment, bool, error) {
	if key == nil || *key == "" {
		return nil, false, nil
	}

	var paymentID uuid.UUID
	err := r.db.GetContext(ctx, &paymentID, `
		SELECT payment_id FROM idempotency_keys WHERE key = $1 AND operation = $2 AND actor_id = $3
	`, *key, operation, actorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("payment repository: check idempotency key %w", err)
	}

	payment, err := r.GetByID(ctx, paymentID)
	if err != nil {
		return nil, false, err
	}
	return payment, true, nil
}

// rememberIdempotent сохраняет ключ внутри транзакции операции:
// ключ фиксируется тогда и только тогда, когда эффект зафиксирован.
func (r *PaymentRepository) rememberIdempotent(ctx context.Context, tx *sqlx.Tx, key *string, operation string, actorID, paymentID uuid.UUID) error {
	if key == nil || *key == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, operation, actor_id, payment_id) VALUES ($1, $2, $3, $4)
	`, *key, operation, actorID, paymentID); err != nil {
		return fmt.Errorf("payment repository: save idempotency key %w", err)
	}
	return nil
}
