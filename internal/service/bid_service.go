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

// BidRepository описывает зависимости BidService от слоя хранилища.
type BidRepository interface {
	Create(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	GetByProjectAndBidder(ctx context.Context, projectID, bidderID uuid.UUID) (*models.Bid, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Bid, error)
	ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]models.Bid, error)
	Update(ctx context.Context, bid *models.Bid) error
	Delete(ctx context.Context, bidID, bidderID uuid.UUID) error
	Accept(ctx context.Context, projectID, bidID uuid.UUID) (*models.Bid, *models.Project, error)
}

// Notifier публикует события жизненного цикла заинтересованным сторонам.
type Notifier interface {
	Publish(ctx context.Context, userID uuid.UUID, event string, data interface{})
}

// BidService содержит бизнес-логику работы со ставками.
// Ставка не выше autoAcceptRatio доли бюджета принимается автоматически
// сразу после размещения.
type BidService struct {
	bids            BidRepository
	projects        ProjectRepository
	notifier        Notifier
	autoAcceptRatio decimal.Decimal
}

// SubmitBidInput содержит данные новой ставки.
type SubmitBidInput struct {
	Amount       decimal.Decimal
	Proposal     string
	DeliveryDays int
}

// NewBidService создаёт сервис ставок.
func NewBidService(bids BidRepository, projects ProjectRepository, notifier Notifier, autoAcceptRatio decimal.Decimal) *BidService {
	return &BidService{
		bids:            bids,
		projects:        projects,
		notifier:        notifier,
		autoAcceptRatio: autoAcceptRatio,
	}
}

// Submit размещает ставку фрилансера на открытый проект.
// Клиент не может ставить на собственный проект; на один проект от одного
// фрилансера допускается одна ставка.
func (s *BidService) Submit(ctx context.Context, projectID, bidderID uuid.UUID, in SubmitBidInput) (*models.Bid, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, repository.ErrProjectNotFound) {
		return nil, apperror.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}

	if project.ClientID == bidderID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя ставить на собственный проект")
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "проект не принимает ставки")
	}

	fields := map[string]string{}
	if err := validation.ValidateBidAmount(in.Amount, project.Budget); err != nil {
		fields["amount"] = err.Error()
	}
	if err := validation.ValidateBidProposal(in.Proposal); err != nil {
		fields["proposal"] = err.Error()
	}
	if err := validation.ValidateDeliveryDays(in.DeliveryDays); err != nil {
		fields["delivery_days"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("некорректные данные ставки", fields)
	}

	bid := &models.Bid{
		ProjectID:    projectID,
		BidderID:     bidderID,
		Amount:       in.Amount,
		Proposal:     in.Proposal,
		DeliveryDays: in.DeliveryDays,
		Status:       models.BidStatusPending,
	}
	if err := s.bids.Create(ctx, bid); err != nil {
		if errors.Is(err, repository.ErrDuplicateBid) {
			return nil, apperror.New(apperror.ErrCodeConflict, "ставка на этот проект уже размещена")
		}
		return nil, err
	}

	if s.shouldAutoAccept(bid.Amount, project.Budget) {
		accepted, _, err := s.accept(ctx, project, bid.ID)
		if err != nil {
			// Гонка с параллельной ставкой: проект уже ушёл в работу.
			// Ставка остаётся pending, это не ошибка размещения.
			if apperror.IsInvalidState(err) {
				return bid, nil
			}
			return nil, err
		}
		return accepted, nil
	}

	return bid, nil
}

// Accept принимает ставку вручную от имени клиента.
func (s *BidService) Accept(ctx context.Context, projectID, bidID, clientID uuid.UUID) (*models.Bid, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, repository.ErrProjectNotFound) {
		return nil, apperror.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}

	bid, _, err := s.accept(ctx, project, bidID)
	return bid, err
}

// accept выполняет атомарное принятие ставки и рассылает события сторонам.
func (s *BidService) accept(ctx context.Context, project *models.Project, bidID uuid.UUID) (*models.Bid, *models.Project, error) {
	siblings, err := s.bids.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, nil, err
	}

	bid, updated, err := s.bids.Accept(ctx, project.ID, bidID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBidNotFound):
			return nil, nil, apperror.ErrBidNotFound
		case errors.Is(err, repository.ErrBidNotPending):
			return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "ставка уже обработана")
		case errors.Is(err, repository.ErrProjectNotOpen):
			return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "проект уже в работе")
		}
		return nil, nil, err
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, bid.BidderID, models.EventBidAccepted, bid)
		for _, sibling := range siblings {
			if sibling.ID != bid.ID && sibling.Status == models.BidStatusPending {
				s.notifier.Publish(ctx, sibling.BidderID, models.EventBidRejected, sibling)
			}
		}
	}

	return bid, updated, nil
}

// shouldAutoAccept возвращает true, если ставка укладывается в порог
// автоприёма относительно бюджета.
func (s *BidService) shouldAutoAccept(amount, budget decimal.Decimal) bool {
	if s.autoAcceptRatio.IsZero() {
		return false
	}
	return amount.LessThanOrEqual(budget.Mul(s.autoAcceptRatio))
}

// Get возвращает ставку по идентификатору.
func (s *BidService) Get(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	bid, err := s.bids.GetByID(ctx, id)
	if errors.Is(err, repository.ErrBidNotFound) {
		return nil, apperror.ErrBidNotFound
	}
	return bid, err
}

// ListByProject возвращает ставки проекта. Список доступен владельцу
// проекта целиком; фрилансер видит только собственную ставку.
func (s *BidService) ListByProject(ctx context.Context, projectID, viewerID uuid.UUID) ([]models.Bid, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, repository.ErrProjectNotFound) {
		return nil, apperror.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}

	bids, err := s.bids.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID == viewerID {
		return bids, nil
	}

	var own []models.Bid
	for _, bid := range bids {
		if bid.BidderID == viewerID {
			own = append(own, bid)
		}
	}
	return own, nil
}

// ListMine возвращает ставки фрилансера.
func (s *BidService) ListMine(ctx context.Context, bidderID uuid.UUID) ([]models.Bid, error) {
	return s.bids.ListByBidder(ctx, bidderID)
}

// Update изменяет ещё не обработанную ставку.
func (s *BidService) Update(ctx context.Context, bidID, bidderID uuid.UUID, in SubmitBidInput) (*models.Bid, error) {
	bid, err := s.Get(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.BidderID != bidderID {
		return nil, apperror.ErrForbidden
	}

	project, err := s.projects.GetByID(ctx, bid.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "приём ставок по проекту закрыт")
	}

	fields := map[string]string{}
	if err := validation.ValidateBidAmount(in.Amount, project.Budget); err != nil {
		fields["amount"] = err.Error()
	}
	if err := validation.ValidateBidProposal(in.Proposal); err != nil {
		fields["proposal"] = err.Error()
	}
	if err := validation.ValidateDeliveryDays(in.DeliveryDays); err != nil {
		fields["delivery_days"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("некорректные данные ставки", fields)
	}

	bid.Amount = in.Amount
	bid.Proposal = in.Proposal
	bid.DeliveryDays = in.DeliveryDays

	if err := s.bids.Update(ctx, bid); err != nil {
		if errors.Is(err, repository.ErrBidNotPending) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "ставка уже обработана")
		}
		return nil, err
	}
	return bid, nil
}

// Withdraw отзывает ещё не обработанную ставку.
func (s *BidService) Withdraw(ctx context.Context, bidID, bidderID uuid.UUID) error {
	err := s.bids.Delete(ctx, bidID, bidderID)
	switch {
	case errors.Is(err, repository.ErrBidNotFound):
		return apperror.ErrBidNotFound
	case errors.Is(err, repository.ErrBidNotPending):
		return apperror.New(apperror.ErrCodeInvalidState, "ставка уже обработана")
	}
	return err
}
