package services

import (
	"context"
	"time"

	"github.com/snapfeed/snapfeed/internal/models"
)

// PostView is the rendered shape of a post for a particular viewer.
// like_count and comment_count are counted fresh on every build so a view
// never reports stale numbers.
type PostView struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	Username      string    `json:"username"`
	ProfilePicURL string    `json:"profile_pic_url"`
	ImageURL      string    `json:"image_url"`
	Caption       string    `json:"caption"`
	LikeCount     int64     `json:"like_count"`
	IsLiked       bool      `json:"is_liked"`
	CommentCount  int64     `json:"comment_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type PostViewService struct {
	likeStore    LikeStore
	commentStore CommentStore
}

func NewPostViewService(likeStore LikeStore, commentStore CommentStore) *PostViewService {
	return &PostViewService{
		likeStore:    likeStore,
		commentStore: commentStore,
	}
}

// Build renders one post for the given viewer. viewerID 0 means anonymous,
// which always yields is_liked=false. The post must carry its preloaded
// author.
func (s *PostViewService) Build(ctx context.Context, post *models.Post, viewerID uint) (*PostView, error) {
	likeCount, err := s.likeStore.CountByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	commentCount, err := s.commentStore.CountByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	isLiked := false
	if viewerID != 0 {
		isLiked, err = s.likeStore.IsLiked(ctx, viewerID, post.ID)
		if err != nil {
			return nil, err
		}
	}

	return &PostView{
		ID:            post.ID,
		UserID:        post.UserID,
		Username:      post.User.Username,
		ProfilePicURL: post.User.ProfilePicURL,
		ImageURL:      post.ImageURL,
		Caption:       post.Caption,
		LikeCount:     likeCount,
		IsLiked:       isLiked,
		CommentCount:  commentCount,
		CreatedAt:     post.CreatedAt,
	}, nil
}

// BuildMany renders a page of posts in order.
func (s *PostViewService) BuildMany(ctx context.Context, posts []*models.Post, viewerID uint) ([]*PostView, error) {
	views := make([]*PostView, 0, len(posts))
	for _, post := range posts {
		view, err := s.Build(ctx, post, viewerID)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}
