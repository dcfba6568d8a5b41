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
	// ErrDisputeNotFound возвращается, когда спор не найден.
	ErrDisputeNotFound = errors.New("dispute not found")
	// ErrActiveDisputeExists возвращается при попытке открыть второй активный спор по проекту.
	ErrActiveDisputeExists = errors.New("active dispute already exists for this project")
	// ErrDisputeResolved возвращается для операций над уже разрешённым спором.
	ErrDisputeResolved = errors.New("dispute is already resolved")
	// ErrDisputeNotResolved возвращается при закрытии спора без решения.
	ErrDisputeNotResolved = errors.New("dispute is not resolved")
)

const disputeColumns = `id, project_id, complainant_id, respondent_id, type, description,
	status, winner, resolution, resolved_by, created_at, resolved_at`

// DisputeRepository управляет спорами по escrow платежам.
type DisputeRepository struct {
	db *sqlx.DB
}

// NewDisputeRepository создаёт экземпляр репозитория.
func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create открывает спор по проекту. Частичный уникальный индекс по
// активным статусам гарантирует не более одного активного спора на проект.
func (r *DisputeRepository) Create(ctx context.Context, dispute *models.Dispute) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO disputes (project_id, complainant_id, respondent_id, type, description, status)
		VALUES ($1, $2, $3, $4, $5, 'open')
		RETURNING id, status, created_at
	`, dispute.ProjectID, dispute.ComplainantID, dispute.RespondentID, dispute.Type, dispute.Description,
	).Scan(&dispute.ID, &dispute.Status, &dispute.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveDisputeExists
		}
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

// GetByID возвращает спор по идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	if err := r.db.GetContext(ctx, &dispute, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get by id %w", err)
	}
	return &dispute, nil
}

// GetActiveByProjectID возвращает открытый или рассматриваемый спор проекта.
func (r *DisputeRepository) GetActiveByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	query := `
		SELECT ` + disputeColumns + ` FROM disputes
		WHERE project_id = $1 AND status IN ('open', 'in_review')
	`
	if err := r.db.GetContext(ctx, &dispute, query, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get active by project %w", err)
	}
	return &dispute, nil
}

// ListByUser возвращает споры, в которых пользователь является стороной.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+` FROM disputes
		WHERE complainant_id = $1 OR respondent_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list by user %w", err)
	}
	return disputes, nil
}

// ListOpen возвращает споры, ожидающие решения администратора.
func (r *DisputeRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+` FROM disputes
		WHERE status IN ('open', 'in_review')
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list open %w", err)
	}
	return disputes, nil
}

// SetInReview помечает спор принятым в рассмотрение администратором.
func (r *DisputeRepository) SetInReview(ctx context.Context, disputeID, adminID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = 'in_review', resolved_by = $2
		WHERE id = $1 AND status = 'open'
	`, disputeID, adminID)
	if err != nil {
		return fmt.Errorf("dispute repository: set in review %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("dispute repository: set in review %w", err)
	}
	if rows == 0 {
		return ErrDisputeResolved
	}
	return nil
}

// Resolve фиксирует решение администратора по спору.
// Денежные эффекты решения выполняет платёжный репозиторий; здесь только
// переход статуса, защищённый блокировкой строки.
func (r *DisputeRepository) Resolve(ctx context.Context, disputeID, adminID uuid.UUID, winner, resolution string) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var dispute models.Dispute
	err = tx.GetContext(ctx, &dispute, `
		SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE
	`, disputeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dispute repository: lock dispute %w", err)
	}
	if dispute.Status != models.DisputeStatusOpen && dispute.Status != models.DisputeStatusInReview {
		return nil, ErrDisputeResolved
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE disputes
		SET status = 'resolved', winner = $2, resolution = $3, resolved_by = $4, resolved_at = $5
		WHERE id = $1
	`, disputeID, winner, resolution, adminID, now); err != nil {
		return nil, fmt.Errorf("dispute repository: resolve %w", err)
	}

	dispute.Status = models.DisputeStatusResolved
	dispute.Winner = &winner
	dispute.Resolution = &resolution
	dispute.ResolvedBy = &adminID
	dispute.ResolvedAt = &now

	return &dispute, tx.Commit()
}

// SetClosed закрывает разрешённый спор. Новое сообщение сторон
// переоткрывает его.
func (r *DisputeRepository) SetClosed(ctx context.Context, disputeID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	err = tx.GetContext(ctx, &status, `
		SELECT status FROM disputes WHERE id = $1 FOR UPDATE
	`, disputeID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDisputeNotFound
	}
	if err != nil {
		return fmt.Errorf("dispute repository: lock dispute %w", err)
	}
	if status != models.DisputeStatusResolved {
		return ErrDisputeNotResolved
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE disputes SET status = 'closed' WHERE id = $1
	`, disputeID); err != nil {
		return fmt.Errorf("dispute repository: close %w", err)
	}

	return tx.Commit()
}

// AddMessage добавляет сообщение в спор. Сообщение в закрытый спор
// переоткрывает его: стороны продолжают обсуждение, решения ещё нет.
func (r *DisputeRepository) AddMessage(ctx context.Context, message *models.DisputeMessage) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	err = tx.GetContext(ctx, &status, `
		SELECT status FROM disputes WHERE id = $1 FOR UPDATE
	`, message.DisputeID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDisputeNotFound
	}
	if err != nil {
		return fmt.Errorf("dispute repository: lock dispute %w", err)
	}
	if status == models.DisputeStatusResolved {
		return ErrDisputeResolved
	}
	if status == models.DisputeStatusClosed {
		if _, err := tx.ExecContext(ctx, `
			UPDATE disputes SET status = 'open' WHERE id = $1
		`, message.DisputeID); err != nil {
			return fmt.Errorf("dispute repository: reopen %w", err)
		}
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO dispute_messages (dispute_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, message.DisputeID, message.AuthorID, message.Content).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: add message %w", err)
	}

	return tx.Commit()
}

// ListMessages возвращает сообщения спора в хронологическом порядке.
func (r *DisputeRepository) ListMessages(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeMessage, error) {
	var messages []models.DisputeMessage
	err := r.db.SelectContext(ctx, &messages, `
		SELECT id, dispute_id, author_id, content, created_at
		FROM dispute_messages
		WHERE dispute_id = $1
		ORDER BY created_at ASC
	`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list messages %w", err)
	}
	return messages, nil
}

// AddEvidence прикрепляет файл доказательства к спору.
func (r *DisputeRepository) AddEvidence(ctx context.Context, evidence *models.DisputeEvidence) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO dispute_evidence (dispute_id, uploader_id, file_path, file_name, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, evidence.DisputeID, evidence.UploaderID, evidence.FilePath, evidence.FileName,
		evidence.MimeType, evidence.SizeBytes,
	).Scan(&evidence.ID, &evidence.CreatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: add evidence %w", err)
	}
	return nil
}

// ListEvidence возвращает приложенные к спору файлы.
func (r *DisputeRepository) ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvidence, error) {
	var evidence []models.DisputeEvidence
	err := r.db.SelectContext(ctx, &evidence, `
		SELECT id, dispute_id, uploader_id, file_path, file_name, mime_type, size_bytes, created_at
		FROM dispute_evidence
		WHERE dispute_id = $1
		ORDER BY created_at ASC
	`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list evidence %w", err)
	}
	return evidence, nil
}
