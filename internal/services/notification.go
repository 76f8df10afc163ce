package services

import (
	"context"
	"fmt"
	"time"

	"github.com/snapfeed/snapfeed/internal/models"
	"github.com/snapfeed/snapfeed/pkg/logger"
)

// NotificationService records and serves the like/comment/follow activity
// destined for a user. Records come from the worker consuming domain events,
// never from the request path.
type NotificationService struct {
	store  NotificationStore
	logger *logger.Logger
}

func NewNotificationService(store NotificationStore, logger *logger.Logger) *NotificationService {
	return &NotificationService{
		store:  store,
		logger: logger,
	}
}

const (
	defaultNotificationPageSize = 20
	maxNotificationPageSize     = 50
)

type NotificationView struct {
	ID                 uint      `json:"id"`
	Type               string    `json:"type"`
	ActorID            uint      `json:"actor_id"`
	ActorUsername      string    `json:"actor_username"`
	ActorProfilePicURL string    `json:"actor_profile_pic_url"`
	PostID             *uint     `json:"post_id,omitempty"`
	IsRead             bool      `json:"is_read"`
	CreatedAt          time.Time `json:"created_at"`
}

type NotificationPage struct {
	Items       []*NotificationView `json:"items"`
	UnreadCount int64               `json:"unread_count"`
	PageMeta
}

func (s *NotificationService) RecordFollow(ctx context.Context, actorID, recipientID uint) error {
	return s.record(ctx, &models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        models.NotificationTypeFollow,
	})
}

func (s *NotificationService) RecordLike(ctx context.Context, actorID, recipientID, postID uint) error {
	return s.record(ctx, &models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        models.NotificationTypeLike,
		PostID:      &postID,
	})
}

func (s *NotificationService) RecordComment(ctx context.Context, actorID, recipientID, postID uint) error {
	return s.record(ctx, &models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        models.NotificationTypeComment,
		PostID:      &postID,
	})
}

// record skips self-actions: liking your own post or commenting on it should
// not ping you.
func (s *NotificationService) record(ctx context.Context, notification *models.Notification) error {
	if notification.ActorID == notification.RecipientID {
		return nil
	}

	if err := s.store.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"recipient_id": notification.RecipientID,
		"actor_id":     notification.ActorID,
		"type":         notification.Type,
	}).Info("Notification recorded")
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, page, pageSize int) (*NotificationPage, error) {
	page, pageSize = clampPaging(page, pageSize, defaultNotificationPageSize, maxNotificationPageSize)

	total, err := s.store.CountByRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	notifications, err := s.store.ListByRecipient(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	items := make([]*NotificationView, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, &NotificationView{
			ID:                 n.ID,
			Type:               n.Type,
			ActorID:            n.ActorID,
			ActorUsername:      n.Actor.Username,
			ActorProfilePicURL: n.Actor.ProfilePicURL,
			PostID:             n.PostID,
			IsRead:             n.IsRead,
			CreatedAt:          n.CreatedAt,
		})
	}

	return &NotificationPage{
		Items:       items,
		UnreadCount: unread,
		PageMeta:    newPageMeta(page, pageSize, total),
	}, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	if err := s.store.MarkAllRead(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
