package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/snapfeed/snapfeed/internal/errs"
	"github.com/snapfeed/snapfeed/internal/models"
	"github.com/snapfeed/snapfeed/pkg/logger"
	"github.com/snapfeed/snapfeed/pkg/queue"
)

type CommentService struct {
	postStore    PostStore
	commentStore CommentStore
	userStore    UserStore
	producer     EventPublisher
	logger       *logger.Logger
}

func NewCommentService(postStore PostStore, commentStore CommentStore, userStore UserStore, producer EventPublisher, logger *logger.Logger) *CommentService {
	return &CommentService{
		postStore:    postStore,
		commentStore: commentStore,
		userStore:    userStore,
		producer:     producer,
		logger:       logger,
	}
}

type CreateCommentRequest struct {
	Text string `json:"text" binding:"required,min=1,max=2000"`
}

// CommentView is the rendered shape of a comment, author fields included.
type CommentView struct {
	ID            uint      `json:"id"`
	PostID        uint      `json:"post_id"`
	UserID        uint      `json:"user_id"`
	Username      string    `json:"username"`
	ProfilePicURL string    `json:"profile_pic_url"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}

func newCommentView(comment *models.Comment) *CommentView {
	return &CommentView{
		ID:            comment.ID,
		PostID:        comment.PostID,
		UserID:        comment.UserID,
		Username:      comment.User.Username,
		ProfilePicURL: comment.User.ProfilePicURL,
		Text:          comment.Text,
		CreatedAt:     comment.CreatedAt,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, userID, postID uint, req *CreateCommentRequest) (*CommentView, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, errs.Validationf("comment text is required")
	}

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, errs.NotFoundf("user not found")
	}

	post, err := s.postStore.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, errs.NotFoundf("post not found")
	}

	comment := &models.Comment{
		PostID: postID,
		UserID: userID,
		Text:   text,
	}
	if err := s.commentStore.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	comment.User = *user

	s.publishCommentEvent(ctx, comment, post.UserID)
	s.logger.WithFields(map[string]interface{}{
		"comment_id": comment.ID,
		"user_id":    userID,
		"post_id":    postID,
	}).Info("Comment created")

	return newCommentView(comment), nil
}

// GetPostComments returns every comment on the post, oldest first.
func (s *CommentService) GetPostComments(ctx context.Context, postID uint) ([]*CommentView, error) {
	post, err := s.postStore.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, errs.NotFoundf("post not found")
	}

	comments, err := s.commentStore.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}

	views := make([]*CommentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, newCommentView(comment))
	}
	return views, nil
}

// DeleteComment removes the comment. Only its author may do so.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.commentStore.GetByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to get comment: %w", err)
	}
	if comment == nil {
		return errs.NotFoundf("comment not found")
	}

	if comment.UserID != userID {
		return errs.Forbiddenf("you can only delete your own comments")
	}

	if err := s.commentStore.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"comment_id": commentID,
		"user_id":    userID,
	}).Info("Comment deleted")

	return nil
}

func (s *CommentService) publishCommentEvent(ctx context.Context, comment *models.Comment, postOwnerID uint) {
	event, err := queue.NewEvent(queue.EventCommentCreated, queue.CommentEventData{
		CommentID:   comment.ID,
		UserID:      comment.UserID,
		PostID:      comment.PostID,
		PostOwnerID: postOwnerID,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to build comment event")
		return
	}
	if err := s.producer.Publish(ctx, fmt.Sprintf("%d", comment.UserID), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish comment event")
	}
}
