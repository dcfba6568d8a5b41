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

// PaymentRepository описывает зависимости PaymentService от слоя хранилища.
type PaymentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetEscrowByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Payment, error)
	CreateEscrow(ctx context.Context, projectID, clientID uuid.UUID, idempotencyKey *string) (*models.Payment, error)
	ReleaseEscrow(ctx context.Context, paymentID, payerID uuid.UUID, idempotencyKey *string) (*models.Payment, error)
	RequestRefund(ctx context.Context, paymentID, payerID uuid.UUID, reason string) (*models.Payment, error)
	ProcessRefund(ctx context.Context, paymentID, adminID uuid.UUID, idempotencyKey *string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error)
}

// PaymentService содержит бизнес-логику escrow платежей.
// Все движения средств выполняются репозиторием в одной транзакции;
// сервис отвечает за права доступа, маппинг ошибок и события сторонам.
type PaymentService struct {
	payments PaymentRepository
	projects ProjectRepository
	notifier Notifier
}

// NewPaymentService создаёт сервис платежей.
func NewPaymentService(payments PaymentRepository, projects ProjectRepository, notifier Notifier) *PaymentService {
	return &PaymentService{
		payments: payments,
		projects: projects,
		notifier: notifier,
	}
}

// CreateEscrow удерживает сумму принятой ставки с кошелька клиента.
// Повторный запрос с тем же идемпотентным ключом возвращает уже созданный
// платёж без второго удержания.
func (s *PaymentService) CreateEscrow(ctx context.Context, projectID, clientID uuid.UUID, idempotencyKey *string) (*models.Payment, error) {
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

	payment, err := s.payments.CreateEscrow(ctx, projectID, clientID, idempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProjectNotInProgress):
			return nil, apperror.New(apperror.ErrCodeInvalidState, "по проекту ещё не принята ставка")
		case errors.Is(err, repository.ErrBidNotFound):
			return nil, apperror.New(apperror.ErrCodeInvalidState, "по проекту нет принятой ставки")
		case errors.Is(err, repository.ErrEscrowExists):
			return nil, apperror.ErrDuplicateEscrow
		case errors.Is(err, repository.ErrInsufficientFunds):
			return nil, apperror.ErrInsufficientFunds
		case errors.Is(err, repository.ErrWalletNotFound):
			return nil, apperror.ErrWalletNotFound
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, payment.PayeeID, models.EventEscrowCreated, payment)
	}
	return payment, nil
}

// Release выплачивает удержанные средства фрилансеру после завершения проекта.
func (s *PaymentService) Release(ctx context.Context, paymentID, payerID uuid.UUID, idempotencyKey *string) (*models.Payment, error) {
	payment, err := s.payments.ReleaseEscrow(ctx, paymentID, payerID, idempotencyKey)
	if err != nil {
		return nil, s.mapEscrowError(err)
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, payment.PayeeID, models.EventEscrowReleased, payment)
	}
	return payment, nil
}

// RequestRefund создаёт запрос на возврат удержанных средств.
func (s *PaymentService) RequestRefund(ctx context.Context, paymentID, payerID uuid.UUID, reason string) (*models.Payment, error) {
	if err := validation.ValidateRefundReason(reason); err != nil {
		return nil, apperror.Validation("некорректная причина возврата", map[string]string{"reason": err.Error()})
	}

	payment, err := s.payments.RequestRefund(ctx, paymentID, payerID, reason)
	if err != nil {
		return nil, s.mapEscrowError(err)
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, payment.PayeeID, models.EventRefundRequested, payment)
	}
	return payment, nil
}

// ProcessRefund выполняет возврат по запросу. Доступно администратору.
func (s *PaymentService) ProcessRefund(ctx context.Context, paymentID, adminID uuid.UUID, idempotencyKey *string) (*models.Payment, error) {
	payment, err := s.payments.ProcessRefund(ctx, paymentID, adminID, idempotencyKey)
	if err != nil {
		if errors.Is(err, repository.ErrRefundNotRequested) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "возврат по платежу не запрашивался")
		}
		return nil, s.mapEscrowError(err)
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, payment.PayerID, models.EventEscrowRefunded, payment)
		s.notifier.Publish(ctx, payment.PayeeID, models.EventEscrowRefunded, payment)
	}
	return payment, nil
}

// Get возвращает платёж. Доступен только его сторонам и администратору.
func (s *PaymentService) Get(ctx context.Context, paymentID, viewerID uuid.UUID, viewerRole string) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, apperror.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	if viewerRole != models.RoleAdmin && payment.PayerID != viewerID && payment.PayeeID != viewerID {
		return nil, apperror.ErrPaymentNotFound
	}
	return payment, nil
}

// GetEscrowByProject возвращает escrow платёж проекта.
func (s *PaymentService) GetEscrowByProject(ctx context.Context, projectID, viewerID uuid.UUID, viewerRole string) (*models.Payment, error) {
	payment, err := s.payments.GetEscrowByProjectID(ctx, projectID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, apperror.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	if viewerRole != models.RoleAdmin && payment.PayerID != viewerID && payment.PayeeID != viewerID {
		return nil, apperror.ErrPaymentNotFound
	}
	return payment, nil
}

// List возвращает платежи пользователя.
func (s *PaymentService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.payments.ListByUser(ctx, userID, limit, offset)
}

func (s *PaymentService) mapEscrowError(err error) error {
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		return apperror.ErrPaymentNotFound
	case errors.Is(err, repository.ErrNotEscrowPayment):
		return apperror.New(apperror.ErrCodeInvalidState, "платёж не является escrow")
	case errors.Is(err, repository.ErrEscrowNotHeld):
		return apperror.New(apperror.ErrCodeInvalidState, "средства по платежу не удерживаются")
	case errors.Is(err, repository.ErrProjectNotCompleted):
		return apperror.New(apperror.ErrCodeInvalidState, "проект ещё не завершён")
	case errors.Is(err, repository.ErrDisputeActive):
		return apperror.New(apperror.ErrCodeInvalidState, "по проекту открыт спор, выплата заблокирована")
	case errors.Is(err, repository.ErrWalletNotFound):
		return apperror.ErrWalletNotFound
	}
	return err
}
