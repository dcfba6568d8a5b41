package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/m-orlov/freelance-market/internal/models"
	"github.com/m-orlov/freelance-market/internal/pkg/apperror"
	"github.com/m-orlov/freelance-market/internal/repository"
	"github.com/m-orlov/freelance-market/internal/validation"
)

// DisputeRepository описывает зависимости DisputeService от слоя хранилища.
type DisputeRepository interface {
	Create(ctx context.Context, dispute *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetActiveByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Dispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error)
	SetInReview(ctx context.Context, disputeID, adminID uuid.UUID) error
	Resolve(ctx context.Context, disputeID, adminID uuid.UUID, winner, resolution string) (*models.Dispute, error)
	SetClosed(ctx context.Context, disputeID uuid.UUID) error
	AddMessage(ctx context.Context, message *models.DisputeMessage) error
	ListMessages(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeMessage, error)
	AddEvidence(ctx context.Context, evidence *models.DisputeEvidence) error
	ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvidence, error)
}

// EscrowResolver закрывает escrow платёж по решению спора.
type EscrowResolver interface {
	GetEscrowByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Payment, error)
	ResolveEscrowForDispute(ctx context.Context, paymentID uuid.UUID, winner string) (*models.Payment, error)
}

// DisputeService содержит бизнес-логику споров.
// Решение спора администратором закрывает удержанный escrow: победа
// клиента возвращает средства, победа фрилансера выплачивает их.
type DisputeService struct {
	disputes DisputeRepository
	projects ProjectRepository
	escrow   EscrowResolver
	notifier Notifier
}

// OpenDisputeInput содержит данные нового спора.
type OpenDisputeInput struct {
	Type        string
	Description string
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(disputes DisputeRepository, projects ProjectRepository, escrow EscrowResolver, notifier Notifier) *DisputeService {
	return &DisputeService{
		disputes: disputes,
		projects: projects,
		escrow:   escrow,
		notifier: notifier,
	}
}

// Open открывает спор по проекту. Спор может открыть любая из сторон
// проекта; наличие escrow платежа не требуется — если средства удержаны,
// их судьбу определит решение администратора.
func (s *DisputeService) Open(ctx context.Context, projectID, userID uuid.UUID, in OpenDisputeInput) (*models.Dispute, error) {
	if err := validation.ValidateDisputeDescription(in.Description); err != nil {
		return nil, apperror.Validation("некорректные данные спора", map[string]string{"description": err.Error()})
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, repository.ErrProjectNotFound) {
		return nil, apperror.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	if project.AssignedTo == nil {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "по проекту не принята ставка")
	}

	var respondent uuid.UUID
	switch userID {
	case project.ClientID:
		respondent = *project.AssignedTo
	case *project.AssignedTo:
		respondent = project.ClientID
	default:
		return nil, apperror.ErrForbidden
	}

	dispute := &models.Dispute{
		ProjectID:     projectID,
		ComplainantID: userID,
		RespondentID:  respondent,
		Type:          in.Type,
		Description:   in.Description,
	}
	if err := s.disputes.Create(ctx, dispute); err != nil {
		if errors.Is(err, repository.ErrActiveDisputeExists) {
			return nil, apperror.New(apperror.ErrCodeConflict, "по проекту уже открыт спор")
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, respondent, models.EventDisputeOpened, dispute)
	}
	return dispute, nil
}

// Get возвращает спор. Доступен сторонам и администратору.
func (s *DisputeService) Get(ctx context.Context, disputeID, viewerID uuid.UUID, viewerRole string) (*models.Dispute, error) {
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if errors.Is(err, repository.ErrDisputeNotFound) {
		return nil, apperror.ErrDisputeNotFound
	}
	if err != nil {
		return nil, err
	}

	if !s.canView(dispute, viewerID, viewerRole) {
		return nil, apperror.ErrDisputeNotFound
	}
	return dispute, nil
}

// ListMine возвращает споры пользователя.
func (s *DisputeService) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.disputes.ListByUser(ctx, userID, limit, offset)
}

// ListOpen возвращает споры, ожидающие решения. Доступно администратору.
func (s *DisputeService) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.disputes.ListOpen(ctx, limit, offset)
}

// TakeInReview принимает спор в рассмотрение администратором.
func (s *DisputeService) TakeInReview(ctx context.Context, disputeID, adminID uuid.UUID) error {
	err := s.disputes.SetInReview(ctx, disputeID, adminID)
	switch {
	case errors.Is(err, repository.ErrDisputeNotFound):
		return apperror.ErrDisputeNotFound
	case errors.Is(err, repository.ErrDisputeResolved):
		return apperror.New(apperror.ErrCodeInvalidState, "спор уже рассматривается или разрешён")
	}
	return err
}

// Resolve фиксирует решение администратора и закрывает удержанный escrow,
// если он есть. RefundAmount, если указан, обязан совпадать с суммой escrow:
// частичные возвраты не поддерживаются.
// Средства двигаются до смены статуса спора: пока спор активен, выплата
// escrow заблокирована, поэтому гонка с release невозможна.
func (s *DisputeService) Resolve(ctx context.Context, disputeID, adminID uuid.UUID, in models.DisputeResolutionInput) (*models.Dispute, error) {
	if in.Winner != models.DisputeWinnerClient && in.Winner != models.DisputeWinnerFreelancer {
		return nil, apperror.Validation("некорректное решение", map[string]string{"winner": "допустимы client или freelancer"})
	}
	if in.Resolution == "" {
		return nil, apperror.Validation("некорректное решение", map[string]string{"resolution": "обоснование обязательно"})
	}

	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if errors.Is(err, repository.ErrDisputeNotFound) {
		return nil, apperror.ErrDisputeNotFound
	}
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeStatusOpen && dispute.Status != models.DisputeStatusInReview {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "спор уже разрешён")
	}

	payment, err := s.escrow.GetEscrowByProjectID(ctx, dispute.ProjectID)
	if err != nil && !errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, err
	}
	moveFunds := err == nil &&
		(payment.Status == models.PaymentStatusHeld || payment.Status == models.PaymentStatusRefundRequested)

	if in.RefundAmount != nil {
		if !moveFunds {
			return nil, apperror.Validation("некорректное решение", map[string]string{
				"refund_amount": "по проекту нет удерживаемых средств",
			})
		}
		if !in.RefundAmount.Equal(payment.Amount) {
			return nil, apperror.Validation("некорректное решение", map[string]string{
				"refund_amount": "сумма возврата должна совпадать с суммой escrow",
			})
		}
	}

	if moveFunds {
		if _, err := s.escrow.ResolveEscrowForDispute(ctx, payment.ID, in.Winner); err != nil {
			if errors.Is(err, repository.ErrEscrowNotHeld) {
				return nil, apperror.New(apperror.ErrCodeInvalidState, "средства по проекту уже выплачены или возвращены")
			}
			return nil, err
		}
	}

	resolved, err := s.disputes.Resolve(ctx, disputeID, adminID, in.Winner, in.Resolution)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeResolved) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "спор уже разрешён")
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, resolved.ComplainantID, models.EventDisputeResolved, resolved)
		s.notifier.Publish(ctx, resolved.RespondentID, models.EventDisputeResolved, resolved)
	}
	return resolved, nil
}

// Close переводит разрешённый спор в closed. Доступно сторонам спора и
// администратору; новое сообщение переоткрывает закрытый спор.
func (s *DisputeService) Close(ctx context.Context, disputeID, userID uuid.UUID, userRole string) (*models.Dispute, error) {
	dispute, err := s.Get(ctx, disputeID, userID, userRole)
	if err != nil {
		return nil, err
	}

	if err := s.disputes.SetClosed(ctx, disputeID); err != nil {
		if errors.Is(err, repository.ErrDisputeNotResolved) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "закрыть можно только разрешённый спор")
		}
		return nil, err
	}
	dispute.Status = models.DisputeStatusClosed
	return dispute, nil
}

// AddMessage добавляет сообщение стороны в спор.
func (s *DisputeService) AddMessage(ctx context.Context, disputeID, authorID uuid.UUID, authorRole, content string) (*models.DisputeMessage, error) {
	if err := validation.ValidateDisputeMessage(content); err != nil {
		return nil, apperror.Validation("некорректное сообщение", map[string]string{"content": err.Error()})
	}

	dispute, err := s.Get(ctx, disputeID, authorID, authorRole)
	if err != nil {
		return nil, err
	}

	message := &models.DisputeMessage{
		DisputeID: dispute.ID,
		AuthorID:  authorID,
		Content:   content,
	}
	if err := s.disputes.AddMessage(ctx, message); err != nil {
		if errors.Is(err, repository.ErrDisputeResolved) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "спор уже разрешён")
		}
		return nil, err
	}
	return message, nil
}

// ListMessages возвращает сообщения спора.
func (s *DisputeService) ListMessages(ctx context.Context, disputeID, viewerID uuid.UUID, viewerRole string) ([]models.DisputeMessage, error) {
	if _, err := s.Get(ctx, disputeID, viewerID, viewerRole); err != nil {
		return nil, err
	}
	return s.disputes.ListMessages(ctx, disputeID)
}

// AttachEvidence сохраняет метаданные загруженного файла доказательства.
func (s *DisputeService) AttachEvidence(ctx context.Context, evidence *models.DisputeEvidence, uploaderRole string) error {
	if _, err := s.Get(ctx, evidence.DisputeID, evidence.UploaderID, uploaderRole); err != nil {
		return err
	}
	return s.disputes.AddEvidence(ctx, evidence)
}

// ListEvidence возвращает файлы доказательств спора.
func (s *DisputeService) ListEvidence(ctx context.Context, disputeID, viewerID uuid.UUID, viewerRole string) ([]models.DisputeEvidence, error) {
	if _, err := s.Get(ctx, disputeID, viewerID, viewerRole); err != nil {
		return nil, err
	}
	return s.disputes.ListEvidence(ctx, disputeID)
}

func (s *DisputeService) canView(dispute *models.Dispute, viewerID uuid.UUID, viewerRole string) bool {
	return viewerRole == models.RoleAdmin ||
		dispute.ComplainantID == viewerID ||
		dispute.RespondentID == viewerID
}
