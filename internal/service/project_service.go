package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m-orlov/freelance-market/internal/models"
	"github.com/m-orlov/freelance-market/internal/pkg/apperror"
	"github.com/m-orlov/freelance-market/internal/repository"
	"github.com/m-orlov/freelance-market/internal/validation"
)

// ProjectRepository описывает зависимости ProjectService от слоя хранилища.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, limit, offset int) ([]models.Project, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error)
	ListByAssignee(ctx context.Context, freelancerID uuid.UUID) ([]models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Complete(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Project, error)
}

// ProjectService содержит бизнес-логику работы с проектами.
type ProjectService struct {
	repo ProjectRepository
}

// CreateProjectInput содержит данные нового проекта.
type CreateProjectInput struct {
	Title       string
	Description string
	Budget      decimal.Decimal
}

// NewProjectService создаёт сервис проектов.
func NewProjectService(repo ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

// Create размещает новый проект от имени клиента.
func (s *ProjectService) Create(ctx context.Context, clientID uuid.UUID, in CreateProjectInput) (*models.Project, error) {
	fields := map[string]string{}
	if err := validation.ValidateProjectTitle(in.Title); err != nil {
		fields["title"] = err.Error()
	}
	if err := validation.ValidateProjectDescription(in.Description); err != nil {
		fields["description"] = err.Error()
	}
	if err := validation.ValidateBudget(in.Budget); err != nil {
		fields["budget"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("некорректные данные проекта", fields)
	}

	project := &models.Project{
		ClientID:    clientID,
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		Status:      models.ProjectStatusOpen,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Get возвращает проект по идентификатору.
func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrProjectNotFound) {
		return nil, apperror.ErrProjectNotFound
	}
	return project, err
}

// List возвращает открытые проекты со счётчиком ставок.
func (s *ProjectService) List(ctx context.Context, limit, offset int) ([]models.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, limit, offset)
}

// ListMine возвращает проекты пользователя: размещённые для клиента,
// назначенные для фрилансера.
func (s *ProjectService) ListMine(ctx context.Context, userID uuid.UUID, role string) ([]models.Project, error) {
	if role == models.RoleFreelancer {
		return s.repo.ListByAssignee(ctx, userID)
	}
	return s.repo.ListByClient(ctx, userID)
}

// Update изменяет открытый проект. После принятия ставки проект
// редактировать нельзя.
func (s *ProjectService) Update(ctx context.Context, projectID, clientID uuid.UUID, in CreateProjectInput) (*models.Project, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}

	fields := map[string]string{}
	if err := validation.ValidateProjectTitle(in.Title); err != nil {
		fields["title"] = err.Error()
	}
	if err := validation.ValidateProjectDescription(in.Description); err != nil {
		fields["description"] = err.Error()
	}
	if err := validation.ValidateBudget(in.Budget); err != nil {
		fields["budget"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("некорректные данные проекта", fields)
	}

	project.Title = in.Title
	project.Description = in.Description
	project.Budget = in.Budget

	if err := s.repo.Update(ctx, project); err != nil {
		if errors.Is(err, repository.ErrProjectNotOpen) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "проект уже в работе, редактирование недоступно")
		}
		return nil, err
	}
	return project, nil
}

// Complete помечает проект завершённым. Вызывается назначенным фрилансером
// после сдачи работы; после этого клиент может выплатить escrow.
func (s *ProjectService) Complete(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Project, error) {
	project, err := s.repo.Complete(ctx, projectID, freelancerID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProjectNotFound):
			return nil, apperror.ErrProjectNotFound
		case errors.Is(err, repository.ErrProjectNotInProgress):
			return nil, apperror.New(apperror.ErrCodeInvalidState, "проект не находится в работе")
		}
		return nil, err
	}
	return project, nil
}
