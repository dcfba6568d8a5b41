package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/m-orlov/freelance-market/internal/logger"
	"github.com/m-orlov/freelance-market/internal/models"
)

// NotificationRepository описывает хранилище уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// EventBroadcaster отправляет событие подключённым клиентам.
type EventBroadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// NotificationService сохраняет уведомления и рассылает события
// жизненного цикла через WebSocket.
type NotificationService struct {
	repo NotificationRepository
	hub  EventBroadcaster
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(repo NotificationRepository, hub EventBroadcaster) *NotificationService {
	return &NotificationService{repo: repo, hub: hub}
}

// Publish сохраняет уведомление и отправляет событие пользователю.
// Ошибки доставки логируются, но не прерывают бизнес-операцию.
func (s *NotificationService) Publish(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
	if err := s.SaveEvent(ctx, userID, event, data); err != nil && logger.Log != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id": userID,
			"event":   event,
			"error":   err.Error(),
		}).Warn("notification service: не удалось сохранить уведомление")
	}

	if s.hub != nil {
		if err := s.hub.BroadcastToUser(userID, event, data); err != nil && logger.Log != nil {
			logger.Log.WithFields(map[string]interface{}{
				"user_id": userID,
				"event":   event,
				"error":   err.Error(),
			}).Warn("notification service: не удалось отправить событие")
		}
	}
}

// SaveEvent сохраняет событие как уведомление.
func (s *NotificationService) SaveEvent(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{
		UserID:  userID,
		Event:   event,
		Payload: payload,
	}
	return s.repo.Create(ctx, notification)
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// CountUnread возвращает число непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead помечает уведомление прочитанным.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, notificationID, userID)
}

// MarkAllRead помечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
