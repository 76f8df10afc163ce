package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/snapfeed/snapfeed/internal/config"
	"github.com/snapfeed/snapfeed/internal/errs"
	"github.com/snapfeed/snapfeed/internal/models"
	"github.com/snapfeed/snapfeed/pkg/logger"
	"github.com/snapfeed/snapfeed/pkg/queue"
)

// FeedService owns posts and the home feed. The feed is assembled from the
// store on every request: followees plus self, one IN query, newest first.
// Nothing is precomputed, so new follows and deletions show up immediately.
type FeedService struct {
	postStore    PostStore
	followStore  FollowStore
	userStore    UserStore
	commentStore CommentStore
	views        *PostViewService
	producer     EventPublisher
	logger       *logger.Logger
	cfg          config.FeedConfig
}

func NewFeedService(
	postStore PostStore,
	followStore FollowStore,
	userStore UserStore,
	commentStore CommentStore,
	views *PostViewService,
	producer EventPublisher,
	logger *logger.Logger,
	cfg config.FeedConfig,
) *FeedService {
	return &FeedService{
		postStore:    postStore,
		followStore:  followStore,
		userStore:    userStore,
		commentStore: commentStore,
		views:        views,
		producer:     producer,
		logger:       logger,
		cfg:          cfg,
	}
}

type CreatePostRequest struct {
	ImageURL string `json:"image_url" binding:"required,max=500"`
	Caption  string `json:"caption"`
}

// FeedPage is one page of rendered posts plus the paging envelope.
type FeedPage struct {
	Items []*PostView `json:"items"`
	PageMeta
}

// PostDetail is a single post with its comments embedded, oldest first.
type PostDetail struct {
	PostView
	Comments []*CommentView `json:"comments"`
}

func (s *FeedService) CreatePost(ctx context.Context, userID uint, req *CreatePostRequest) (*PostView, error) {
	imageURL := strings.TrimSpace(req.ImageURL)
	if imageURL == "" {
		return nil, errs.Validationf("image URL is required")
	}

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, errs.NotFoundf("user not found")
	}

	post := &models.Post{
		UserID:   userID,
		ImageURL: imageURL,
		Caption:  strings.TrimSpace(req.Caption),
	}
	if err := s.postStore.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	post.User = *user

	s.publishPostEvent(ctx, queue.EventPostCreated, post.ID, userID)
	s.logger.WithFields(map[string]interface{}{
		"post_id": post.ID,
		"user_id": userID,
	}).Info("Post created")

	return s.views.Build(ctx, post, userID)
}

// GetFeed returns one page of posts authored by the viewer or anyone the
// viewer follows.
func (s *FeedService) GetFeed(ctx context.Context, viewerID uint, page, pageSize int) (*FeedPage, error) {
	page, pageSize = clampPaging(page, pageSize, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)

	followees, err := s.followStore.FolloweeIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followees: %w", err)
	}
	authorIDs := append(followees, viewerID)

	total, err := s.postStore.CountByAuthors(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count feed posts: %w", err)
	}

	posts, err := s.postStore.GetByAuthors(ctx, authorIDs, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed posts: %w", err)
	}

	items, err := s.views.BuildMany(ctx, posts, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to build post views: %w", err)
	}

	return &FeedPage{Items: items, PageMeta: newPageMeta(page, pageSize, total)}, nil
}

// GetUserPosts returns one page of a single author's posts, newest first.
func (s *FeedService) GetUserPosts(ctx context.Context, userID, viewerID uint, page, pageSize int) (*FeedPage, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, errs.NotFoundf("user not found")
	}

	page, pageSize = clampPaging(page, pageSize, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)

	total, err := s.postStore.CountByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	posts, err := s.postStore.GetByAuthor(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}

	items, err := s.views.BuildMany(ctx, posts, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to build post views: %w", err)
	}

	return &FeedPage{Items: items, PageMeta: newPageMeta(page, pageSize, total)}, nil
}

func (s *FeedService) GetPost(ctx context.Context, postID, viewerID uint) (*PostDetail, error) {
	post, err := s.postStore.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, errs.NotFoundf("post not found")
	}

	view, err := s.views.Build(ctx, post, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to build post view: %w", err)
	}

	comments, err := s.commentStore.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}

	detail := &PostDetail{PostView: *view, Comments: make([]*CommentView, 0, len(comments))}
	for _, comment := range comments {
		detail.Comments = append(detail.Comments, newCommentView(comment))
	}
	return detail, nil
}

func (s *FeedService) DeletePost(ctx context.Context, postID, viewerID uint) error {
	post, err := s.postStore.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return errs.NotFoundf("post not found")
	}
	if post.UserID != viewerID {
		return errs.Forbiddenf("you can only delete your own posts")
	}

	if err := s.postStore.Delete(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.publishPostEvent(ctx, queue.EventPostDeleted, postID, viewerID)
	s.logger.WithFields(map[string]interface{}{
		"post_id": postID,
		"user_id": viewerID,
	}).Info("Post deleted")

	return nil
}

func (s *FeedService) publishPostEvent(ctx context.Context, eventType queue.EventType, postID, userID uint) {
	event, err := queue.NewEvent(eventType, queue.PostEventData{
		PostID: postID,
		UserID: userID,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to build post event")
		return
	}
	if err := s.producer.Publish(ctx, fmt.Sprintf("%d", userID), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish post event")
	}
}
