package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/m-orlov/freelance-market/internal/models"
	"github.com/m-orlov/freelance-market/internal/pkg/apperror"
	"github.com/m-orlov/freelance-market/internal/repository"
)

// ReviewRepository описывает зависимости ReviewService от слоя хранилища.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByReviewed(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error)
	AverageRating(ctx context.Context, reviewedID uuid.UUID) (float64, int, error)
}

// ReviewService содержит бизнес-логику отзывов.
type ReviewService struct {
	reviews  ReviewRepository
	projects ProjectRepository
}

// RatingSummary агрегирует рейтинг пользователя.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// NewReviewService создаёт сервис отзывов.
func NewReviewService(reviews ReviewRepository, projects ProjectRepository) *ReviewService {
	return &ReviewService{reviews: reviews, projects: projects}
}

// Create оставляет отзыв по завершённому проекту. Отзыв доступен только
// сторонам проекта и только в адрес второй стороны.
func (s *ReviewService) Create(ctx context.Context, projectID, reviewerID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.Validation("некорректный отзыв", map[string]string{"rating": "оценка от 1 до 5"})
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, repository.ErrProjectNotFound) {
		return nil, apperror.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "отзыв доступен только по завершённому проекту")
	}
	if project.AssignedTo == nil {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "по проекту нет исполнителя")
	}

	var reviewed uuid.UUID
	switch reviewerID {
	case project.ClientID:
		reviewed = *project.AssignedTo
	case *project.AssignedTo:
		reviewed = project.ClientID
	default:
		return nil, apperror.ErrForbidden
	}

	review := &models.Review{
		ProjectID:  projectID,
		ReviewerID: reviewerID,
		ReviewedID: reviewed,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, apperror.New(apperror.ErrCodeConflict, "отзыв по проекту уже оставлен")
		}
		return nil, err
	}
	return review, nil
}

// ListByUser возвращает отзывы о пользователе.
func (s *ReviewService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.reviews.ListByReviewed(ctx, userID, limit, offset)
}

// Rating возвращает агрегированный рейтинг пользователя.
func (s *ReviewService) Rating(ctx context.Context, userID uuid.UUID) (*RatingSummary, error) {
	average, count, err := s.reviews.AverageRating(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &RatingSummary{Average: average, Count: count}, nil
}
