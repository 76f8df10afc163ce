package workers

import (
	"context"
	"encoding/json"

	"github.com/snapfeed/snapfeed/internal/services"
	"github.com/snapfeed/snapfeed/pkg/logger"
	"github.com/snapfeed/snapfeed/pkg/queue"
)

// NotificationWorker consumes social events and turns the ones that concern
// another user into notification rows. Malformed or unknown events are logged
// and skipped so one bad message never stalls the partition.
type NotificationWorker struct {
	consumer      *queue.KafkaConsumer
	notifications *services.NotificationService
	logger        *logger.Logger
}

func NewNotificationWorker(
	consumer *queue.KafkaConsumer,
	notifications *services.NotificationService,
	logger *logger.Logger,
) *NotificationWorker {
	return &NotificationWorker{
		consumer:      consumer,
		notifications: notifications,
		logger:        logger,
	}
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker...")

	return w.consumer.Subscribe(ctx, func(msg queue.Message) error {
		var event queue.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			w.logger.WithError(err).WithField("key", msg.Key).Error("Failed to decode event, skipping")
			return nil
		}

		w.logger.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
			"timestamp":  event.Timestamp,
		}).Info("Processing event")

		switch event.Type {
		case queue.EventFollowCreated:
			return w.handleFollowCreated(ctx, event)
		case queue.EventLikeCreated:
			return w.handleLikeCreated(ctx, event)
		case queue.EventCommentCreated:
			return w.handleCommentCreated(ctx, event)
		case queue.EventPostCreated, queue.EventPostDeleted,
			queue.EventFollowDeleted, queue.EventLikeDeleted:
			// Nothing to notify about.
			return nil
		default:
			w.logger.WithField("event_type", event.Type).Warn("Unknown event type")
			return nil
		}
	})
}

func (w *NotificationWorker) handleFollowCreated(ctx context.Context, event queue.Event) error {
	var data queue.FollowEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		w.logger.WithError(err).WithField("event_id", event.ID).Error("Invalid follow event data, skipping")
		return nil
	}

	if err := w.notifications.RecordFollow(ctx, data.FollowerID, data.FollowedID); err != nil {
		w.logger.WithError(err).WithFields(map[string]interface{}{
			"follower_id": data.FollowerID,
			"followed_id": data.FollowedID,
		}).Error("Failed to record follow notification")
	}
	return nil
}

func (w *NotificationWorker) handleLikeCreated(ctx context.Context, event queue.Event) error {
	var data queue.LikeEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		w.logger.WithError(err).WithField("event_id", event.ID).Error("Invalid like event data, skipping")
		return nil
	}

	if err := w.notifications.RecordLike(ctx, data.UserID, data.PostOwnerID, data.PostID); err != nil {
		w.logger.WithError(err).WithFields(map[string]interface{}{
			"user_id": data.UserID,
			"post_id": data.PostID,
		}).Error("Failed to record like notification")
	}
	return nil
}

func (w *NotificationWorker) handleCommentCreated(ctx context.Context, event queue.Event) error {
	var data queue.CommentEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		w.logger.WithError(err).WithField("event_id", event.ID).Error("Invalid comment event data, skipping")
		return nil
	}

	if err := w.notifications.RecordComment(ctx, data.UserID, data.PostOwnerID, data.PostID); err != nil {
		w.logger.WithError(err).WithFields(map[string]interface{}{
			"user_id": data.UserID,
			"post_id": data.PostID,
		}).Error("Failed to record comment notification")
	}
	return nil
}

func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker...")
	return w.consumer.Close()
}
