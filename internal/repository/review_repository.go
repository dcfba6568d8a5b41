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
	// ErrReviewNotFound возвращается, когда отзыв не найден.
	ErrReviewNotFound = errors.New("review not found")
	// ErrDuplicateReview возвращается при повторном отзыве по тому же проекту.
	ErrDuplicateReview = errors.New("review already exists for this project")
)

// ReviewRepository хранит отзывы по завершённым проектам.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository создаёт экземпляр репозитория.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create сохраняет отзыв. Пара (project_id, reviewer_id) уникальна.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO reviews (project_id, reviewer_id, reviewed_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, review.ProjectID, review.ReviewerID, review.ReviewedID, review.Rating, review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReview
		}
		return fmt.Errorf("review repository: create %w", err)
	}
	return nil
}

// GetByID возвращает отзыв по идентификатору.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.GetContext(ctx, &review, `
		SELECT id, project_id, reviewer_id, reviewed_id, rating, comment, created_at
		FROM reviews WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("review repository: get by id %w", err)
	}
	return &review, nil
}

// ListByReviewed возвращает отзывы о пользователе, новые первыми.
func (r *ReviewRepository) ListByReviewed(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT id, project_id, reviewer_id, reviewed_id, rating, comment, created_at
		FROM reviews
		WHERE reviewed_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, reviewedID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("review repository: list by reviewee %w", err)
	}
	return reviews, nil
}

// AverageRating возвращает средний рейтинг пользователя и число отзывов.
func (r *ReviewRepository) AverageRating(ctx context.Context, reviewedID uuid.UUID) (float64, int, error) {
	var row struct {
		Average sql.NullFloat64 `db:"average"`
		Count   int             `db:"count"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT AVG(rating) AS average, COUNT(*) AS count
		FROM reviews WHERE reviewed_id = $1
	`, reviewedID)
	if err != nil {
		return 0, 0, fmt.Errorf("review repository: average rating %w", err)
	}
	return row.Average.Float64, row.Count, nil
}
