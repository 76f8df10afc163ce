package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/snapfeed/snapfeed/internal/errs"
	"github.com/snapfeed/snapfeed/internal/models"
	"github.com/snapfeed/snapfeed/pkg/logger"
	"github.com/snapfeed/snapfeed/pkg/queue"
	"gorm.io/gorm"
)

type LikeService struct {
	postStore PostStore
	likeStore LikeStore
	producer  EventPublisher
	logger    *logger.Logger
}

func NewLikeService(postStore PostStore, likeStore LikeStore, producer EventPublisher, logger *logger.Logger) *LikeService {
	return &LikeService{
		postStore: postStore,
		likeStore: likeStore,
		producer:  producer,
		logger:    logger,
	}
}

// LikeResult is the post's like state right after a like or unlike, counted
// fresh.
type LikeResult struct {
	LikeCount int64 `json:"like_count"`
	IsLiked   bool  `json:"is_liked"`
}

// LikePost records the like. Liking twice is a conflict, surfaced by the
// unique (user, post) index rather than a pre-read, so concurrent doubles
// collapse to one row.
func (s *LikeService) LikePost(ctx context.Context, userID, postID uint) (*LikeResult, error) {
	post, err := s.postStore.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, errs.NotFoundf("post not found")
	}

	like := &models.Like{
		UserID: userID,
		PostID: postID,
	}
	if err := s.likeStore.Create(ctx, like); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.Conflictf("post already liked")
		}
		return nil, fmt.Errorf("failed to create like: %w", err)
	}

	s.publishLikeEvent(ctx, queue.EventLikeCreated, userID, postID, post.UserID)
	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"post_id": postID,
	}).Info("Post liked")

	count, err := s.likeStore.CountByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	return &LikeResult{LikeCount: count, IsLiked: true}, nil
}

// UnlikePost removes the like. An absent edge is a conflict, detected by the
// delete touching zero rows.
func (s *LikeService) UnlikePost(ctx context.Context, userID, postID uint) (*LikeResult, error) {
	post, err := s.postStore.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, errs.NotFoundf("post not found")
	}

	deleted, err := s.likeStore.Delete(ctx, userID, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete like: %w", err)
	}
	if !deleted {
		return nil, errs.Conflictf("post not liked")
	}

	s.publishLikeEvent(ctx, queue.EventLikeDeleted, userID, postID, post.UserID)
	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"post_id": postID,
	}).Info("Post unliked")

	count, err := s.likeStore.CountByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	return &LikeResult{LikeCount: count, IsLiked: false}, nil
}

func (s *LikeService) publishLikeEvent(ctx context.Context, eventType queue.EventType, userID, postID, postOwnerID uint) {
	event, err := queue.NewEvent(eventType, queue.LikeEventData{
		UserID:      userID,
		PostID:      postID,
		PostOwnerID: postOwnerID,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to build like event")
		return
	}
	if err := s.producer.Publish(ctx, fmt.Sprintf("%d", userID), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish like event")
	}
}
