package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m-orlov/freelance-market/internal/models"
)

var (
	// ErrProjectNotFound возвращается, когда проект не найден.
	ErrProjectNotFound = errors.New("project not found")
	// ErrProjectNotInProgress возвращается при попытке завершить проект не в работе.
	ErrProjectNotInProgress = errors.New("project is not in progress")
	// ErrProjectNotOpen возвращается при изменении проекта после принятия ставки.
	ErrProjectNotOpen = errors.New("project is not open")
)

const projectColumns = `id, client_id, assigned_to, title, description, budget, status, deadline_at, created_at, updated_at`

// ProjectRepository отвечает за таблицу projects.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository создаёт экземпляр репозитория.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create создаёт проект в статусе open.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (client_id, title, description, budget, status, deadline_at)
		VALUES ($1, $2, $3, $4, 'open', $5)
		RETURNING id, status, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		project.ClientID, project.Title, project.Description, project.Budget, project.DeadlineAt,
	).Scan(&project.ID, &project.Status, &project.CreatedAt, &project.UpdatedAt); err != nil {
		return fmt.Errorf("project repository: create %w", err)
	}
	return nil
}

// GetByID возвращает проект по идентификатору.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("project repository: get by id %w", err)
	}
	return &project, nil
}

// List возвращает открытые проекты с количеством ставок.
func (r *ProjectRepository) List(ctx context.Context, limit, offset int) ([]models.Project, error) {
	var projects []models.Project
	query := `
		SELECT p.` + "id, p.client_id, p.assigned_to, p.title, p.description, p.budget, p.status, p.deadline_at, p.created_at, p.updated_at" + `,
		       COUNT(b.id)::int AS bids_count
		FROM projects p
		LEFT JOIN bids b ON b.project_id = p.id
		WHERE p.status = 'open'
		GROUP BY p.id
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &projects, query, limit, offset); err != nil {
		return nil, fmt.Errorf("project repository: list %w", err)
	}
	return projects, nil
}

// ListByClient возвращает проекты клиента.
func (r *ProjectRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	query := `SELECT ` + projectColumns + ` FROM projects WHERE client_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &projects, query, clientID); err != nil {
		return nil, fmt.Errorf("project repository: list by client %w", err)
	}
	return projects, nil
}

// ListByAssignee возвращает проекты, назначенные фрилансеру.
func (r *ProjectRepository) ListByAssignee(ctx context.Context, freelancerID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	query := `SELECT ` + projectColumns + ` FROM projects WHERE assigned_to = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &projects, query, freelancerID); err != nil {
		return nil, fmt.Errorf("project repository: list by assignee %w", err)
	}
	return projects, nil
}

// Update обновляет поля проекта. Разрешено только пока проект открыт:
// после принятия ставки бюджет и условия зафиксированы.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects
		SET title = $3, description = $4, budget = $5, deadline_at = $6, updated_at = NOW()
		WHERE id = $1 AND client_id = $2 AND status = 'open'
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(
		ctx, query,
		project.ID, project.ClientID, project.Title, project.Description, project.Budget, project.DeadlineAt,
	).Scan(&project.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProjectNotOpen
	}
	if err != nil {
		return fmt.Errorf("project repository: update %w", err)
	}
	return nil
}

// Complete переводит проект из in_progress в completed.
// Выполняется только назначенным фрилансером; условие зашито в WHERE,
// чтобы переход был атомарным.
func (r *ProjectRepository) Complete(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Project, error) {
	var project models.Project
	query := `
		UPDATE projects
		SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND assigned_to = $2 AND status = 'in_progress'
		RETURNING ` + projectColumns + `
	`
	err := r.db.QueryRowxContext(ctx, query, projectID, freelancerID).StructScan(&project)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("project repository: complete %w", err)
	}
	return &project, nil
}
