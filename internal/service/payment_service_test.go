package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/m-orlov/freelance-market/internal/models"
	"github.com/m-orlov/freelance-market/internal/pkg/apperror"
	"github.com/m-orlov/freelance-market/internal/repository"
)

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) GetEscrowByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) CreateEscrow(ctx context.Context, projectID, clientID uuid.UUID, idempotencyKey *string) (*models.Payment, error) {
	args := m.Called(ctx, projectID, clientID, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ReleaseEscrow(ctx context.Context, paymentID, payerID uuid.UUID, idempotencyKey *string) (*models.Payment, error) {
	args := m.Called(ctx, paymentID, payerID, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) RequestRefund(ctx context.Context, paymentID, payerID uuid.UUID, reason string) (*models.Payment, error) {
	args := m.Called(ctx, paymentID, payerID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ProcessRefund(ctx context.Context, paymentID, adminID uuid.UUID, idempotencyKey *string) (*models.Payment, error) {
	args := m.Called(ctx, paymentID, adminID, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ResolveEscrowForDispute(ctx context.Context, paymentID uuid.UUID, winner string) (*models.Payment, error) {
	args := m.Called(ctx, paymentID, winner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Payment), args.Error(1)
}

func heldEscrow(projectID, payerID, payeeID uuid.UUID, amount int64) *models.Payment {
	return &models.Payment{
		ID:        uuid.New(),
		ProjectID: &projectID,
		PayerID:   payerID,
		PayeeID:   payeeID,
		Amount:    decimal.NewFromInt(amount),
		Type:      models.PaymentTypeEscrow,
		Status:    models.PaymentStatusHeld,
	}
}

func TestPaymentService_CreateEscrow_Success(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	notifier := new(mockNotifier)
	svc := NewPaymentService(payments, projects, notifier)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	project := openProject(clientID, 1000)
	project.Status = models.ProjectStatusInProgress
	project.AssignedTo = &freelancerID

	expected := heldEscrow(project.ID, clientID, freelancerID, 900)

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	payments.On("CreateEscrow", ctx, project.ID, clientID, (*string)(nil)).Return(expected, nil)
	notifier.On("Publish", ctx, freelancerID, models.EventEscrowCreated, expected).Return()

	payment, err := svc.CreateEscrow(ctx, project.ID, clientID, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusHeld, payment.Status)
	payments.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestPaymentService_CreateEscrow_NotOwner(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	project := openProject(uuid.New(), 1000)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.CreateEscrow(ctx, project.ID, uuid.New(), nil)
	assert.True(t, apperror.IsForbidden(err))
	payments.AssertNotCalled(t, "CreateEscrow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_CreateEscrow_InsufficientFunds(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	clientID := uuid.New()
	project := openProject(clientID, 1000)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	payments.On("CreateEscrow", ctx, project.ID, clientID, (*string)(nil)).Return(nil, repository.ErrInsufficientFunds)

	_, err := svc.CreateEscrow(ctx, project.ID, clientID, nil)
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeInsufficientFunds, appErr.Code)
}

func TestPaymentService_CreateEscrow_Duplicate(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	clientID := uuid.New()
	project := openProject(clientID, 1000)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	payments.On("CreateEscrow", ctx, project.ID, clientID, (*string)(nil)).Return(nil, repository.ErrEscrowExists)

	_, err := svc.CreateEscrow(ctx, project.ID, clientID, nil)
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestPaymentService_CreateEscrow_NoAcceptedBid(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	clientID := uuid.New()
	project := openProject(clientID, 1000)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	payments.On("CreateEscrow", ctx, project.ID, clientID, (*string)(nil)).Return(nil, repository.ErrProjectNotInProgress)

	_, err := svc.CreateEscrow(ctx, project.ID, clientID, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestPaymentService_CreateEscrow_IdempotentReplay(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	notifier := new(mockNotifier)
	svc := NewPaymentService(payments, projects, notifier)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	project := openProject(clientID, 1000)

	key := "escrow-req-1"
	existing := heldEscrow(project.ID, clientID, freelancerID, 900)

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	// Репозиторий возвращает уже созданный платёж по тому же ключу.
	payments.On("CreateEscrow", ctx, project.ID, clientID, &key).Return(existing, nil).Twice()
	notifier.On("Publish", ctx, freelancerID, models.EventEscrowCreated, existing).Return()

	first, err := svc.CreateEscrow(ctx, project.ID, clientID, &key)
	assert.NoError(t, err)
	second, err := svc.CreateEscrow(ctx, project.ID, clientID, &key)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestPaymentService_Release_Success(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	notifier := new(mockNotifier)
	svc := NewPaymentService(payments, projects, notifier)
	ctx := context.Background()

	payerID := uuid.New()
	payeeID := uuid.New()
	released := heldEscrow(uuid.New(), payerID, payeeID, 900)
	released.Status = models.PaymentStatusCompleted

	payments.On("ReleaseEscrow", ctx, released.ID, payerID, (*string)(nil)).Return(released, nil)
	notifier.On("Publish", ctx, payeeID, models.EventEscrowReleased, released).Return()

	payment, err := svc.Release(ctx, released.ID, payerID, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	notifier.AssertExpectations(t)
}

func TestPaymentService_Release_ProjectNotCompleted(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	paymentID := uuid.New()
	payerID := uuid.New()
	payments.On("ReleaseEscrow", ctx, paymentID, payerID, (*string)(nil)).Return(nil, repository.ErrProjectNotCompleted)

	_, err := svc.Release(ctx, paymentID, payerID, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestPaymentService_Release_NotHeld(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	paymentID := uuid.New()
	payerID := uuid.New()
	payments.On("ReleaseEscrow", ctx, paymentID, payerID, (*string)(nil)).Return(nil, repository.ErrEscrowNotHeld)

	_, err := svc.Release(ctx, paymentID, payerID, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestPaymentService_RequestRefund_EmptyReason(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	_, err := svc.RequestRefund(ctx, uuid.New(), uuid.New(), "")
	assert.True(t, apperror.IsValidation(err))
	payments.AssertNotCalled(t, "RequestRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_RequestRefund_NotifiesPayee(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	notifier := new(mockNotifier)
	svc := NewPaymentService(payments, projects, notifier)
	ctx := context.Background()

	payerID := uuid.New()
	payeeID := uuid.New()
	payment := heldEscrow(uuid.New(), payerID, payeeID, 900)
	payment.Status = models.PaymentStatusRefundRequested
	reason := "Работа не сдана в срок"

	payments.On("RequestRefund", ctx, payment.ID, payerID, reason).Return(payment, nil)
	notifier.On("Publish", ctx, payeeID, models.EventRefundRequested, payment).Return()

	result, err := svc.RequestRefund(ctx, payment.ID, payerID, reason)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefundRequested, result.Status)
	notifier.AssertExpectations(t)
}

func TestPaymentService_ProcessRefund_NotRequested(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	paymentID := uuid.New()
	adminID := uuid.New()
	payments.On("ProcessRefund", ctx, paymentID, adminID, (*string)(nil)).Return(nil, repository.ErrRefundNotRequested)

	_, err := svc.ProcessRefund(ctx, paymentID, adminID, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestPaymentService_ProcessRefund_NotifiesBothParties(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	notifier := new(mockNotifier)
	svc := NewPaymentService(payments, projects, notifier)
	ctx := context.Background()

	payerID := uuid.New()
	payeeID := uuid.New()
	adminID := uuid.New()
	refunded := heldEscrow(uuid.New(), payerID, payeeID, 900)
	refunded.Status = models.PaymentStatusRefunded

	payments.On("ProcessRefund", ctx, refunded.ID, adminID, (*string)(nil)).Return(refunded, nil)
	notifier.On("Publish", ctx, payerID, models.EventEscrowRefunded, refunded).Return()
	notifier.On("Publish", ctx, payeeID, models.EventEscrowRefunded, refunded).Return()

	_, err := svc.ProcessRefund(ctx, refunded.ID, adminID, nil)
	assert.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestPaymentService_Release_BlockedByDispute(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	paymentID := uuid.New()
	payerID := uuid.New()
	payments.On("ReleaseEscrow", ctx, paymentID, payerID, (*string)(nil)).Return(nil, repository.ErrDisputeActive)

	_, err := svc.Release(ctx, paymentID, payerID, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestPaymentService_Get_StrangerSeesNotFound(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	payment := heldEscrow(uuid.New(), uuid.New(), uuid.New(), 900)
	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.Get(ctx, payment.ID, uuid.New(), models.RoleFreelancer)
	assert.True(t, apperror.IsNotFound(err))
}

func TestPaymentService_Get_AdminSeesAny(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()

	payment := heldEscrow(uuid.New(), uuid.New(), uuid.New(), 900)
	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	result, err := svc.Get(ctx, payment.ID, uuid.New(), models.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, payment.ID, result.ID)
}

func TestPaymentService_List_DefaultLimit(t *testing.T) {
	payments := new(mockPaymentRepo)
	projects := new(mockProjectRepo)
	svc := NewPaymentService(payments, projects, nil)
	ctx := context.Background()
	userID := uuid.New()

	payments.On("ListByUser", ctx, userID, 20, 0).Return([]models.Payment{}, nil)

	_, err := svc.List(ctx, userID, 0, 0)
	assert.NoError(t, err)
	payments.AssertExpectations(t)
}
