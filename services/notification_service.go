package services

import (
	"context"
	"fmt"

	"marketplace-service/logger"
	"marketplace-service/models"
	"marketplace-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type NotificationService interface {
	HandleEvent(ctx context.Context, event models.Event) error
	List(ctx context.Context, actor models.Actor, unreadOnly bool, page, limit int) (*models.NotificationPage, error)
	UnreadCount(ctx context.Context, actor models.Actor) (int64, error)
	MarkRead(ctx context.Context, actor models.Actor, id string) error
	MarkAllRead(ctx context.Context, actor models.Actor) (int64, error)
}

type notificationService struct {
	notifications repository.NotificationRepository
	pusher        Pusher
}

func NewNotificationService(notifications repository.NotificationRepository, pusher Pusher) NotificationService {
	if pusher == nil {
		pusher = noopPusher{}
	}
	return &notificationService{notifications: notifications, pusher: pusher}
}

// HandleEvent stores a notification for the event's recipient and pushes it
// to their open connections. Events without a valid recipient are dropped.
func (s *notificationService) HandleEvent(ctx context.Context, event models.Event) error {
	recipient, err := primitive.ObjectIDFromHex(event.RecipientID)
	if err != nil {
		logger.FromContext(ctx).Warn("Dropping event without recipient", zap.String("type", event.Type))
		return nil
	}
	n := &models.Notification{
		UserID:    recipient,
		Type:      event.Type,
		Title:     event.Title,
		Message:   event.Message,
		Link:      event.Link,
		CreatedAt: event.OccurredAt,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	s.pusher.Push(recipient.Hex(), PushNotification, n)
	return nil
}

func (s *notificationService) List(ctx context.Context, actor models.Actor, unreadOnly bool, page, limit int) (*models.NotificationPage, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	page, limit = models.NormalizePage(page, limit)
	items, total, err := s.notifications.Find(ctx, models.NotificationFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return &models.NotificationPage{
		Notifications: items,
		Meta:          models.NewPageMeta(page, limit, total),
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, actor models.Actor) (int64, error) {
	userID, err := actorID(actor)
	if err != nil {
		return 0, err
	}
	return s.notifications.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, actor models.Actor, id string) error {
	userID, err := actorID(actor)
	if err != nil {
		return err
	}
	notificationID, err := parsePathID(id, "Notification")
	if err != nil {
		return err
	}
	if err := s.notifications.MarkRead(ctx, notificationID, userID); err != nil {
		return notFoundOr(err, "Notification not found")
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	userID, err := actorID(actor)
	if err != nil {
		return 0, err
	}
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return n, nil
}
