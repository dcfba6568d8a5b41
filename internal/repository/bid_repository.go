package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m-orlov/freelance-market/internal/models"
)

var (
	// ErrBidNotFound возвращается, когда ставка не найдена.
	ErrBidNotFound = errors.New("bid not found")
	// ErrBidNotPending возвращается при операции над ставкой не в статусе pending.
	ErrBidNotPending = errors.New("bid is not pending")
	// ErrDuplicateBid возвращается при повторной ставке одного пользователя на проект.
	ErrDuplicateBid = errors.New("bid already exists for this project and bidder")
)

const bidColumns = `id, project_id, bidder_id, amount, proposal, delivery_days, status, created_at, updated_at`

// BidRepository отвечает за таблицу bids и атомарный переход принятия ставки.
type BidRepository struct {
	db *sqlx.DB
}

// NewBidRepository создаёт экземпляр репозитория.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create создаёт ставку в статусе pending.
func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	query := `
		INSERT INTO bids (project_id, bidder_id, amount, proposal, delivery_days, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, status, created_at, updated_at
	`
	err := r.db.QueryRowxContext(
		ctx, query,
		bid.ProjectID, bid.BidderID, bid.Amount, bid.Proposal, bid.DeliveryDays,
	).Scan(&bid.ID, &bid.Status, &bid.CreatedAt, &bid.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBid
		}
		return fmt.Errorf("bid repository: create %w", err)
	}
	return nil
}

// GetByID возвращает ставку по идентификатору.
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`
	if err := r.db.GetContext(ctx, &bid, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("bid repository: get by id %w", err)
	}
	return &bid, nil
}

// GetByProjectAndBidder возвращает ставку пользователя на проект.
func (r *BidRepository) GetByProjectAndBidder(ctx context.Context, projectID, bidderID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE project_id = $1 AND bidder_id = $2`
	if err := r.db.GetContext(ctx, &bid, query, projectID, bidderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("bid repository: get by project and bidder %w", err)
	}
	return &bid, nil
}

// GetAcceptedByProjectID возвращает принятую ставку проекта.
func (r *BidRepository) GetAcceptedByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE project_id = $1 AND status = 'accepted'`
	if err := r.db.GetContext(ctx, &bid, query, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("bid repository: get accepted %w", err)
	}
	return &bid, nil
}

// ListByProject возвращает ставки по проекту.
func (r *BidRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE project_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &bids, query, projectID); err != nil {
		return nil, fmt.Errorf("bid repository: list by project %w", err)
	}
	return bids, nil
}

// ListByBidder возвращает ставки пользователя.
func (r *BidRepository) ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE bidder_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bids, query, bidderID); err != nil {
		return nil, fmt.Errorf("bid repository: list by bidder %w", err)
	}
	return bids, nil
}

// Update меняет условия ставки, пока она pending, а проект открыт.
func (r *BidRepository) Update(ctx context.Context, bid *models.Bid) error {
	query := `
		UPDATE bids
		SET amount = $3, proposal = $4, delivery_days = $5, updated_at = NOW()
		WHERE id = $1 AND bidder_id = $2 AND status = 'pending'
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(
		ctx, query,
		bid.ID, bid.BidderID, bid.Amount, bid.Proposal, bid.DeliveryDays,
	).Scan(&bid.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBidNotPending
	}
	if err != nil {
		return fmt.Errorf("bid repository: update %w", err)
	}
	return nil
}

// Delete удаляет ставку владельца в статусе pending.
func (r *BidRepository) Delete(ctx context.Context, bidID, bidderID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM bids WHERE id = $1 AND bidder_id = $2 AND status = 'pending'
	`, bidID, bidderID)
	if err != nil {
		return fmt.Errorf("bid repository: delete %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrBidNotPending
	}
	return nil
}

// Accept атомарно принимает ставку: победитель — accepted, остальные ставки
// проекта — rejected, проект — in_progress с назначенным исполнителем.
// Проект блокируется FOR UPDATE, чтобы два конкурирующих принятия
// не прошли одновременно.
func (r *BidRepository) Accept(ctx context.Context, projectID, bidID uuid.UUID) (*models.Bid, *models.Project, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var project models.Project
	err = tx.GetContext(ctx, &project, `
		SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE
	`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("bid repository: lock project %w", err)
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, nil, ErrProjectNotOpen
	}

	var bid models.Bid
	err = tx.GetContext(ctx, &bid, `
		SELECT `+bidColumns+` FROM bids WHERE id = $1 AND project_id = $2 FOR UPDATE
	`, bidID, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrBidNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("bid repository: lock bid %w", err)
	}
	if bid.Status != models.BidStatusPending {
		return nil, nil, ErrBidNotPending
	}

	if err := tx.QueryRowxContext(ctx, `
		UPDATE bids SET status = 'accepted', updated_at = NOW() WHERE id = $1
		RETURNING status, updated_at
	`, bid.ID).Scan(&bid.Status, &bid.UpdatedAt); err != nil {
		return nil, nil, fmt.Errorf("bid repository: accept winner %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE bids SET status = 'rejected', updated_at = NOW()
		WHERE project_id = $1 AND id <> $2 AND status = 'pending'
	`, projectID, bid.ID); err != nil {
		return nil, nil, fmt.Errorf("bid repository: reject siblings %w", err)
	}

	if err := tx.QueryRowxContext(ctx, `
		UPDATE projects SET status = 'in_progress', assigned_to = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING status, assigned_to, updated_at
	`, projectID, bid.BidderID).Scan(&project.Status, &project.AssignedTo, &project.UpdatedAt); err != nil {
		return nil, nil, fmt.Errorf("bid repository: assign project %w", err)
	}

	return &bid, &project, tx.Commit()
}

// isUniqueViolation распознаёт нарушение уникального констрейнта PostgreSQL.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
