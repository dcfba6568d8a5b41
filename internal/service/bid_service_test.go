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

type mockProjectRepo struct {
	mock.Mock
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *mockProjectRepo) List(ctx context.Context, limit, offset int) ([]models.Project, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *mockProjectRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *mockProjectRepo) ListByAssignee(ctx context.Context, freelancerID uuid.UUID) ([]models.Project, error) {
	args := m.Called(ctx, freelancerID)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *mockProjectRepo) Update(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *mockProjectRepo) Complete(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, projectID, freelancerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Publish(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
	m.Called(ctx, userID, event, data)
}

type mockBidRepo struct {
	mock.Mock
}

func (m *mockBidRepo) Create(ctx context.Context, bid *models.Bid) error {
	args := m.Called(ctx, bid)
	if args.Error(0) == nil {
		bid.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockBidRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bid), args.Error(1)
}

func (m *mockBidRepo) GetByProjectAndBidder(ctx context.Context, projectID, bidderID uuid.UUID) (*models.Bid, error) {
	args := m.Called(ctx, projectID, bidderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bid), args.Error(1)
}

func (m *mockBidRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Bid, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]models.Bid), args.Error(1)
}

func (m *mockBidRepo) ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]models.Bid, error) {
	args := m.Called(ctx, bidderID)
	return args.Get(0).([]models.Bid), args.Error(1)
}

func (m *mockBidRepo) Update(ctx context.Context, bid *models.Bid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

func (m *mockBidRepo) Delete(ctx context.Context, bidID, bidderID uuid.UUID) error {
	args := m.Called(ctx, bidID, bidderID)
	return args.Error(0)
}

func (m *mockBidRepo) Accept(ctx context.Context, projectID, bidID uuid.UUID) (*models.Bid, *models.Project, error) {
	args := m.Called(ctx, projectID, bidID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Bid), args.Get(1).(*models.Project), args.Error(2)
}

// testProposal удовлетворяет минимальной длине предложения.
const testProposal = "Готов выполнить проект в срок, есть опыт аналогичных задач и примеры выполненных работ"

func openProject(clientID uuid.UUID, budget int64) *models.Project {
	return &models.Project{
		ID:       uuid.New(),
		ClientID: clientID,
		Title:    "Разработка API",
		Budget:   decimal.NewFromInt(budget),
		Status:   models.ProjectStatusOpen,
	}
}

func TestBidService_Submit_AutoAccept(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	notifier := new(mockNotifier)
	svc := NewBidService(bids, projects, notifier, decimal.RequireFromString("1.0"))
	ctx := context.Background()

	clientID := uuid.New()
	bidderID := uuid.New()
	project := openProject(clientID, 1000)

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	bids.On("Create", ctx, mock.AnythingOfType("*models.Bid")).Return(nil)
	bids.On("ListByProject", ctx, project.ID).Return([]models.Bid{}, nil)

	accepted := &models.Bid{
		ProjectID: project.ID,
		BidderID:  bidderID,
		Amount:    decimal.NewFromInt(1000),
		Status:    models.BidStatusAccepted,
	}
	inProgress := *project
	inProgress.Status = models.ProjectStatusInProgress
	bids.On("Accept", ctx, project.ID, mock.AnythingOfType("uuid.UUID")).Return(accepted, &inProgress, nil)
	notifier.On("Publish", ctx, bidderID, models.EventBidAccepted, mock.Anything).Return()

	// Ставка ровно в бюджет попадает под автоприём.
	bid, err := svc.Submit(ctx, project.ID, bidderID, SubmitBidInput{
		Amount:       decimal.NewFromInt(1000),
		Proposal:     testProposal,
		DeliveryDays: 7,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.BidStatusAccepted, bid.Status)
	bids.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestBidService_Submit_BelowThresholdStaysPending(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.RequireFromString("0.5"))
	ctx := context.Background()

	project := openProject(uuid.New(), 1000)
	bidderID := uuid.New()

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	bids.On("Create", ctx, mock.AnythingOfType("*models.Bid")).Return(nil)

	// 600 > 1000 * 0.5, автоприём не срабатывает.
	bid, err := svc.Submit(ctx, project.ID, bidderID, SubmitBidInput{
		Amount:       decimal.NewFromInt(600),
		Proposal:     testProposal,
		DeliveryDays: 10,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, bid.Status)
	bids.AssertNotCalled(t, "Accept", mock.Anything, mock.Anything, mock.Anything)
}

func TestBidService_Submit_ZeroRatioDisablesAutoAccept(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.Zero)
	ctx := context.Background()

	project := openProject(uuid.New(), 1000)

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	bids.On("Create", ctx, mock.AnythingOfType("*models.Bid")).Return(nil)

	bid, err := svc.Submit(ctx, project.ID, uuid.New(), SubmitBidInput{
		Amount:       decimal.NewFromInt(100),
		Proposal:     testProposal,
		DeliveryDays: 3,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, bid.Status)
}

func TestBidService_Submit_AutoAcceptRace(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.RequireFromString("1.0"))
	ctx := context.Background()

	project := openProject(uuid.New(), 1000)
	bidderID := uuid.New()

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	bids.On("Create", ctx, mock.AnythingOfType("*models.Bid")).Return(nil)
	bids.On("ListByProject", ctx, project.ID).Return([]models.Bid{}, nil)
	// Параллельная ставка успела первой: проект уже не open.
	bids.On("Accept", ctx, project.ID, mock.AnythingOfType("uuid.UUID")).Return(nil, nil, repository.ErrProjectNotOpen)

	bid, err := svc.Submit(ctx, project.ID, bidderID, SubmitBidInput{
		Amount:       decimal.NewFromInt(900),
		Proposal:     testProposal,
		DeliveryDays: 5,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, bid.Status)
}

func TestBidService_Submit_OwnProject(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.RequireFromString("1.0"))
	ctx := context.Background()

	clientID := uuid.New()
	project := openProject(clientID, 1000)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.Submit(ctx, project.ID, clientID, SubmitBidInput{
		Amount:       decimal.NewFromInt(500),
		Proposal:     testProposal,
		DeliveryDays: 5,
	})
	assert.True(t, apperror.IsForbidden(err))
	bids.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBidService_Submit_ProjectNotOpen(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.RequireFromString("1.0"))
	ctx := context.Background()

	project := openProject(uuid.New(), 1000)
	project.Status = models.ProjectStatusInProgress
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.Submit(ctx, project.ID, uuid.New(), SubmitBidInput{
		Amount:       decimal.NewFromInt(500),
		Proposal:     testProposal,
		DeliveryDays: 5,
	})
	assert.True(t, apperror.IsInvalidState(err))
}

func TestBidService_Submit_AmountAboveBudget(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.RequireFromString("1.0"))
	ctx := context.Background()

	project := openProject(uuid.New(), 1000)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.Submit(ctx, project.ID, uuid.New(), SubmitBidInput{
		Amount:       decimal.NewFromInt(1001),
		Proposal:     testProposal,
		DeliveryDays: 5,
	})
	assert.True(t, apperror.IsValidation(err))

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "amount")
}

func TestBidService_Submit_Duplicate(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.Zero)
	ctx := context.Background()

	project := openProject(uuid.New(), 1000)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	bids.On("Create", ctx, mock.AnythingOfType("*models.Bid")).Return(repository.ErrDuplicateBid)

	_, err := svc.Submit(ctx, project.ID, uuid.New(), SubmitBidInput{
		Amount:       decimal.NewFromInt(500),
		Proposal:     testProposal,
		DeliveryDays: 5,
	})
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestBidService_Accept_NotOwner(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.Zero)
	ctx := context.Background()

	project := openProject(uuid.New(), 1000)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.Accept(ctx, project.ID, uuid.New(), uuid.New())
	assert.True(t, apperror.IsForbidden(err))
}

func TestBidService_Accept_RejectsSiblings(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	notifier := new(mockNotifier)
	svc := NewBidService(bids, projects, notifier, decimal.Zero)
	ctx := context.Background()

	clientID := uuid.New()
	project := openProject(clientID, 1000)

	winner := models.Bid{ID: uuid.New(), ProjectID: project.ID, BidderID: uuid.New(), Status: models.BidStatusPending}
	loser := models.Bid{ID: uuid.New(), ProjectID: project.ID, BidderID: uuid.New(), Status: models.BidStatusPending}

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	bids.On("ListByProject", ctx, project.ID).Return([]models.Bid{winner, loser}, nil)

	acceptedBid := winner
	acceptedBid.Status = models.BidStatusAccepted
	inProgress := *project
	inProgress.Status = models.ProjectStatusInProgress
	bids.On("Accept", ctx, project.ID, winner.ID).Return(&acceptedBid, &inProgress, nil)

	notifier.On("Publish", ctx, winner.BidderID, models.EventBidAccepted, mock.Anything).Return()
	notifier.On("Publish", ctx, loser.BidderID, models.EventBidRejected, mock.Anything).Return()

	bid, err := svc.Accept(ctx, project.ID, winner.ID, clientID)
	assert.NoError(t, err)
	assert.Equal(t, models.BidStatusAccepted, bid.Status)
	notifier.AssertExpectations(t)
}

func TestBidService_Withdraw_AlreadyProcessed(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.Zero)
	ctx := context.Background()

	bidID := uuid.New()
	bidderID := uuid.New()
	bids.On("Delete", ctx, bidID, bidderID).Return(repository.ErrBidNotPending)

	err := svc.Withdraw(ctx, bidID, bidderID)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestBidService_ListByProject_FreelancerSeesOwnOnly(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.Zero)
	ctx := context.Background()

	project := openProject(uuid.New(), 1000)
	viewerID := uuid.New()

	own := models.Bid{ID: uuid.New(), ProjectID: project.ID, BidderID: viewerID}
	other := models.Bid{ID: uuid.New(), ProjectID: project.ID, BidderID: uuid.New()}

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	bids.On("ListByProject", ctx, project.ID).Return([]models.Bid{own, other}, nil)

	result, err := svc.ListByProject(ctx, project.ID, viewerID)
	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, own.ID, result[0].ID)
}

func TestBidService_Update_ProjectNotOpen(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects, nil, decimal.Zero)
	ctx := context.Background()

	bidderID := uuid.New()
	freelancerID := bidderID
	project := openProject(uuid.New(), 1000)
	project.Status = models.ProjectStatusInProgress
	project.AssignedTo = &freelancerID

	bid := &models.Bid{
		ID:        uuid.New(),
		ProjectID: project.ID,
		BidderID:  bidderID,
		Status:    models.BidStatusPending,
	}

	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.Update(ctx, bid.ID, bidderID, SubmitBidInput{
		Amount:       decimal.NewFromInt(500),
		Proposal:     testProposal,
		DeliveryDays: 14,
	})
	assert.True(t, apperror.IsInvalidState(err))
	bids.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
