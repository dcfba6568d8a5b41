package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/m-orlov/freelance-market/internal/models"
	"github.com/m-orlov/freelance-market/internal/pkg/apperror"
	"github.com/m-orlov/freelance-market/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) CreateWithWallet(ctx context.Context, user *models.User, welcomeBonus decimal.Decimal) (*models.Wallet, error) {
	args := m.Called(ctx, user, welcomeBonus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	user.ID = uuid.New()
	user.IsActive = true
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *mockAuthRepo) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func testTokenManager() *TokenManager {
	return NewTokenManager("test-access-secret", "test-refresh-secret", 15*time.Minute, 720*time.Hour)
}

func TestAuthService_Register_CreatesWalletWithBonus(t *testing.T) {
	repo := new(mockAuthRepo)
	bonus := decimal.NewFromInt(1000)
	svc := NewAuthService(repo, testTokenManager(), bonus)
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "new@example.com").Return(nil, repository.ErrUserNotFound)
	repo.On("CreateWithWallet", ctx, mock.AnythingOfType("*models.User"), bonus).Return(&models.Wallet{BalanceUSDT: bonus}, nil).Once()
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "new@example.com",
		Password: "Passw0rd123",
		Role:     models.RoleClient,
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.RoleClient, result.User.Role)
	assert.True(t, result.Wallet.BalanceUSDT.Equal(bonus))
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_DefaultRole(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), decimal.Zero)
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "new@example.com").Return(nil, repository.ErrUserNotFound)
	repo.On("CreateWithWallet", ctx, mock.AnythingOfType("*models.User"), decimal.Zero).Return(&models.Wallet{}, nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "new@example.com",
		Password: "Passw0rd123",
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.RoleFreelancer, result.User.Role)
	assert.Equal(t, "new", result.User.Username)
}

func TestAuthService_Register_AdminRoleRejected(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), decimal.Zero)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "admin@example.com",
		Password: "Passw0rd123",
		Role:     models.RoleAdmin,
	}, nil)
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "CreateWithWallet", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), decimal.Zero)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "new@example.com",
		Password: "password",
	}, nil)
	assert.True(t, apperror.IsValidation(err))

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "password")
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), decimal.Zero)
	ctx := context.Background()

	existing := &models.User{ID: uuid.New(), Email: "taken@example.com"}
	repo.On("GetByEmail", ctx, "taken@example.com").Return(existing, nil)

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "taken@example.com",
		Password: "Passw0rd123",
	}, nil)
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), decimal.Zero)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Passw0rd123"), bcrypt.MinCost)
	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: string(hash), IsActive: true}
	repo.On("GetByEmail", ctx, "user@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "WrongPass1"}, nil)
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), decimal.Zero)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "blocked@example.com", IsActive: false}
	repo.On("GetByEmail", ctx, "blocked@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "blocked@example.com", Password: "Passw0rd123"}, nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), decimal.Zero)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Passw0rd123"), bcrypt.MinCost)
	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: string(hash), Role: models.RoleClient, IsActive: true}

	repo.On("GetByEmail", ctx, "user@example.com").Return(user, nil)
	repo.On("UpdateLastLoginAt", ctx, user.ID).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "Passw0rd123"}, nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertExpectations(t)
}
