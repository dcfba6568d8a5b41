package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/m-orlov/freelance-market/internal/models"
	"github.com/m-orlov/freelance-market/internal/pkg/apperror"
	"github.com/m-orlov/freelance-market/internal/repository"
)

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	if args.Error(0) == nil {
		review.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByReviewed(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, reviewedID, limit, offset)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) AverageRating(ctx context.Context, reviewedID uuid.UUID) (float64, int, error) {
	args := m.Called(ctx, reviewedID)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func completedProject(clientID, freelancerID uuid.UUID) *models.Project {
	project := openProject(clientID, 1000)
	project.Status = models.ProjectStatusCompleted
	project.AssignedTo = &freelancerID
	return project
}

func TestReviewService_Create_ClientReviewsFreelancer(t *testing.T) {
	reviews := new(mockReviewRepo)
	projects := new(mockProjectRepo)
	svc := NewReviewService(reviews, projects)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	project := completedProject(clientID, freelancerID)

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	comment := "Отличная работа, рекомендую"
	review, err := svc.Create(ctx, project.ID, clientID, 5, &comment)
	assert.NoError(t, err)
	assert.Equal(t, freelancerID, review.ReviewedID)
	assert.Equal(t, 5, review.Rating)
}

func TestReviewService_Create_FreelancerReviewsClient(t *testing.T) {
	reviews := new(mockReviewRepo)
	projects := new(mockProjectRepo)
	svc := NewReviewService(reviews, projects)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	project := completedProject(clientID, freelancerID)

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	review, err := svc.Create(ctx, project.ID, freelancerID, 4, nil)
	assert.NoError(t, err)
	assert.Equal(t, clientID, review.ReviewedID)
}

func TestReviewService_Create_InvalidRating(t *testing.T) {
	reviews := new(mockReviewRepo)
	projects := new(mockProjectRepo)
	svc := NewReviewService(reviews, projects)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), uuid.New(), 0, nil)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Create(ctx, uuid.New(), uuid.New(), 6, nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestReviewService_Create_ProjectNotCompleted(t *testing.T) {
	reviews := new(mockReviewRepo)
	projects := new(mockProjectRepo)
	svc := NewReviewService(reviews, projects)
	ctx := context.Background()

	clientID := uuid.New()
	project := openProject(clientID, 1000)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.Create(ctx, project.ID, clientID, 5, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestReviewService_Create_Stranger(t *testing.T) {
	reviews := new(mockReviewRepo)
	projects := new(mockProjectRepo)
	svc := NewReviewService(reviews, projects)
	ctx := context.Background()

	project := completedProject(uuid.New(), uuid.New())
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.Create(ctx, project.ID, uuid.New(), 5, nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestReviewService_Create_Duplicate(t *testing.T) {
	reviews := new(mockReviewRepo)
	projects := new(mockProjectRepo)
	svc := NewReviewService(reviews, projects)
	ctx := context.Background()

	clientID := uuid.New()
	project := completedProject(clientID, uuid.New())
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(repository.ErrDuplicateReview)

	_, err := svc.Create(ctx, project.ID, clientID, 5, nil)
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestReviewService_Rating(t *testing.T) {
	reviews := new(mockReviewRepo)
	projects := new(mockProjectRepo)
	svc := NewReviewService(reviews, projects)
	ctx := context.Background()
	userID := uuid.New()

	reviews.On("AverageRating", ctx, userID).Return(4.5, 12, nil)

	summary, err := svc.Rating(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 4.5, summary.Average)
	assert.Equal(t, 12, summary.Count)
}
