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

type mockWalletRepo struct {
	mock.Mock
}

func (m *mockWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockWalletRepo) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Payment, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockWalletRepo) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Payment, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockWalletRepo) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.WalletEntry), args.Error(1)
}

func TestWalletService_Get(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)
	ctx := context.Background()
	userID := uuid.New()

	expected := &models.Wallet{
		UserID:        userID,
		BalanceUSDT:   decimal.NewFromInt(1000),
		EscrowBalance: decimal.NewFromInt(500),
	}
	repo.On("GetByUserID", ctx, userID).Return(expected, nil)

	wallet, err := svc.Get(ctx, userID)
	assert.NoError(t, err)
	assert.True(t, wallet.BalanceUSDT.Equal(decimal.NewFromInt(1000)))
	assert.True(t, wallet.EscrowBalance.Equal(decimal.NewFromInt(500)))
}

func TestWalletService_Get_NotFound(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("GetByUserID", ctx, userID).Return(nil, repository.ErrWalletNotFound)

	_, err := svc.Get(ctx, userID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestWalletService_Deposit_InvalidAmount(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, uuid.New(), decimal.Zero)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Deposit(ctx, uuid.New(), decimal.NewFromInt(-100))
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything)
}

func TestWalletService_Withdraw_InsufficientFunds(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)
	ctx := context.Background()
	userID := uuid.New()
	amount := decimal.NewFromInt(5000)

	repo.On("Withdraw", ctx, userID, amount).Return(nil, repository.ErrInsufficientFunds)

	_, err := svc.Withdraw(ctx, userID, amount)
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeInsufficientFunds, appErr.Code)
}

func TestWalletService_ListEntries_DefaultLimit(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("ListEntries", ctx, userID, 20, 0).Return([]models.WalletEntry{}, nil)

	_, err := svc.ListEntries(ctx, userID, 0, 0)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
