package services

import (
	"context"

	"github.com/snapfeed/snapfeed/internal/models"
)

// Store interfaces cover what the services need from the persistence layer.
// The repository package provides the gorm-backed implementations; tests
// substitute in-memory ones.

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfilePic(ctx context.Context, id uint, url string) error
}

type FollowStore interface {
	Create(ctx context.Context, follow *models.Follow) error
	Delete(ctx context.Context, followerID, followedID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error)
	FolloweeIDs(ctx context.Context, followerID uint) ([]uint, error)
	GetFollowers(ctx context.Context, userID uint) ([]*models.User, error)
	GetFollowing(ctx context.Context, userID uint) ([]*models.User, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
}

type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByAuthors(ctx context.Context, userIDs []uint, offset, limit int) ([]*models.Post, error)
	CountByAuthors(ctx context.Context, userIDs []uint) (int64, error)
	GetByAuthor(ctx context.Context, userID uint, offset, limit int) ([]*models.Post, error)
	CountByAuthor(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

type LikeStore interface {
	Create(ctx context.Context, like *models.Like) error
	Delete(ctx context.Context, userID, postID uint) (bool, error)
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	CountByPost(ctx context.Context, postID uint) (int64, error)
}

type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	Delete(ctx context.Context, id uint) error
	CountByPost(ctx context.Context, postID uint) (int64, error)
}

type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID uint, offset, limit int) ([]*models.Notification, error)
	CountByRecipient(ctx context.Context, recipientID uint) (int64, error)
	CountUnread(ctx context.Context, recipientID uint) (int64, error)
	MarkAllRead(ctx context.Context, recipientID uint) error
}

// EventPublisher is satisfied by queue.KafkaProducer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}
