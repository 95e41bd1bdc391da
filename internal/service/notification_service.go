package service

import (
	"context"

	"engage/internal/domain"
	"engage/internal/repository"
	"go.uber.org/zap"
)

type notificationService struct {
	notifications repository.NotificationRepository
	cache         *CacheService
	logger        *zap.Logger
}

// NewNotificationService creates the notification service
func NewNotificationService(notifications repository.NotificationRepository, cache *CacheService, logger *zap.Logger) NotificationService {
	return &notificationService{
		notifications: notifications,
		cache:         cache,
		logger:        logger,
	}
}

// Notify stores a notification for userID. Errors are logged and dropped so callers never
// fail because a notification could not be written.
func (s *notificationService) Notify(ctx context.Context, userID int64, title, message string) {
	n := &domain.Notification{UserID: userID, Title: title, Message: message}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification",
			zap.Int64("user_id", userID),
			zap.String("title", title),
			zap.Error(err))
		return
	}
	s.cache.InvalidateUnread(userID)
}

func (s *notificationService) List(ctx context.Context, actor *domain.User) ([]domain.Notification, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}
	return s.notifications.ListByUser(ctx, actor.ID)
}

func (s *notificationService) UnreadCount(ctx context.Context, actor *domain.User) (int, error) {
	if actor == nil {
		return 0, domain.ErrUnauthorized
	}
	return s.cache.GetUnreadCount(ctx, actor.ID, func(ctx context.Context) (int, error) {
		return s.notifications.CountUnread(ctx, actor.ID)
	})
}

// MarkRead marks one of actor's notifications as read
func (s *notificationService) MarkRead(ctx context.Context, actor *domain.User, id int64) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}
	found, err := s.notifications.MarkRead(ctx, actor.ID, id)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrNotificationNotFound
	}
	s.cache.InvalidateUnread(actor.ID)
	return nil
}

// Dismiss deletes one of actor's notifications
func (s *notificationService) Dismiss(ctx context.Context, actor *domain.User, id int64) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}
	found, err := s.notifications.Delete(ctx, actor.ID, id)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrNotificationNotFound
	}
	s.cache.InvalidateUnread(actor.ID)
	return nil
}
