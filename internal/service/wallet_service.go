package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m-orlov/freelance-market/internal/models"
	"github.com/m-orlov/freelance-market/internal/pkg/apperror"
	"github.com/m-orlov/freelance-market/internal/repository"
)

// WalletRepository описывает зависимости WalletService от слоя хранилища.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Payment, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Payment, error)
	ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletEntry, error)
}

// WalletService содержит бизнес-логику кошельков.
type WalletService struct {
	repo WalletRepository
}

// NewWalletService создаёт сервис кошельков.
func NewWalletService(repo WalletRepository) *WalletService {
	return &WalletService{repo: repo}
}

// Get возвращает кошелёк пользователя с доступным и удержанным балансами.
func (s *WalletService) Get(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrWalletNotFound) {
		return nil, apperror.ErrWalletNotFound
	}
	return wallet, err
}

// Deposit пополняет доступный баланс.
func (s *WalletService) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.Validation("некорректная сумма", map[string]string{"amount": "сумма должна быть положительной"})
	}

	payment, err := s.repo.Deposit(ctx, userID, amount)
	if errors.Is(err, repository.ErrWalletNotFound) {
		return nil, apperror.ErrWalletNotFound
	}
	return payment, err
}

// Withdraw списывает сумму с доступного баланса. Средства в escrow
// выводу не подлежат.
func (s *WalletService) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.Validation("некорректная сумма", map[string]string{"amount": "сумма должна быть положительной"})
	}

	payment, err := s.repo.Withdraw(ctx, userID, amount)
	switch {
	case errors.Is(err, repository.ErrWalletNotFound):
		return nil, apperror.ErrWalletNotFound
	case errors.Is(err, repository.ErrInsufficientFunds):
		return nil, apperror.ErrInsufficientFunds
	}
	return payment, err
}

// ListEntries возвращает историю движений по кошельку.
func (s *WalletService) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListEntries(ctx, userID, limit, offset)
}
