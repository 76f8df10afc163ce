package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snapfeed/snapfeed/internal/errs"
	"github.com/snapfeed/snapfeed/internal/models"
	"github.com/snapfeed/snapfeed/pkg/logger"
	"github.com/snapfeed/snapfeed/pkg/queue"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	userStore   UserStore
	followStore FollowStore
	postStore   PostStore
	views       *PostViewService
	producer    EventPublisher
	logger      *logger.Logger
}

func NewUserService(userStore UserStore, followStore FollowStore, postStore PostStore, views *PostViewService, producer EventPublisher, logger *logger.Logger) *UserService {
	return &UserService{
		userStore:   userStore,
		followStore: followStore,
		postStore:   postStore,
		views:       views,
		producer:    producer,
		logger:      logger,
	}
}

type SignupRequest struct {
	Username      string `json:"username" binding:"required,min=3,max=80"`
	Email         string `json:"email" binding:"required,email,max=120"`
	Password      string `json:"password" binding:"required,min=6,max=72"`
	ProfilePicURL string `json:"profile_pic_url" binding:"omitempty,max=500"`
}

type LoginRequest struct {
	// Username also accepts an email address.
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfilePicRequest struct {
	ProfilePicURL string `json:"profile_pic_url" binding:"required,max=500"`
}

// Profile is a user page: the public account fields plus graph counts and
// the most recent posts, all computed at read time.
type Profile struct {
	ID             uint        `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	ProfilePicURL  string      `json:"profile_pic_url"`
	CreatedAt      time.Time   `json:"created_at"`
	FollowersCount int64       `json:"followers_count"`
	FollowingCount int64       `json:"following_count"`
	IsFollowing    bool        `json:"is_following"`
	IsOwnProfile   bool        `json:"is_own_profile"`
	Posts          []*PostView `json:"posts"`
}

// FollowResult reports the target's state right after a follow or unfollow.
type FollowResult struct {
	Username       string `json:"username"`
	FollowersCount int64  `json:"followers_count"`
}

const profileRecentPosts = 50

func (s *UserService) Signup(ctx context.Context, req *SignupRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, errs.Conflictf("username already exists")
	}

	existing, err = s.userStore.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, errs.Conflictf("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:      username,
		Email:         email,
		PasswordHash:  string(hashed),
		ProfilePicURL: req.ProfilePicURL,
	}
	if user.ProfilePicURL == "" {
		user.ProfilePicURL = models.DefaultProfilePicURL
	}

	// The pre-checks above only give friendlier messages; the unique
	// indexes are what actually prevent a duplicate racing past them.
	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.Conflictf("username or email already taken")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Login resolves the identifier as a username first and falls back to email.
// Bad credentials come back as a forbidden kind without revealing which half
// was wrong.
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*models.User, error) {
	identifier := strings.TrimSpace(req.Username)

	user, err := s.userStore.GetByUsername(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		user, err = s.userStore.GetByEmail(ctx, strings.ToLower(identifier))
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
	}
	if user == nil {
		return nil, errs.Forbiddenf("invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errs.Forbiddenf("invalid username or password")
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in")
	return user, nil
}

func (s *UserService) UpdateProfilePic(ctx context.Context, userID uint, req *UpdateProfilePicRequest) (*models.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, errs.NotFoundf("user not found")
	}

	if err := s.userStore.UpdateProfilePic(ctx, userID, req.ProfilePicURL); err != nil {
		return nil, fmt.Errorf("failed to update profile picture: %w", err)
	}

	user.ProfilePicURL = req.ProfilePicURL
	s.logger.WithField("user_id", userID).Info("Profile picture updated")
	return user, nil
}

func (s *UserService) Follow(ctx context.Context, followerID, targetID uint) (*FollowResult, error) {
	if followerID == targetID {
		return nil, errs.Validationf("cannot follow yourself")
	}

	target, err := s.userStore.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if target == nil {
		return nil, errs.NotFoundf("user not found")
	}

	follow := &models.Follow{
		FollowerID: followerID,
		FollowedID: targetID,
	}
	if err := s.followStore.Create(ctx, follow); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.Conflictf("already following this user")
		}
		return nil, fmt.Errorf("failed to create follow: %w", err)
	}

	s.publishFollowEvent(ctx, queue.EventFollowCreated, followerID, targetID)
	s.logger.WithFields(map[string]interface{}{
		"follower_id": followerID,
		"followed_id": targetID,
	}).Info("User followed")

	count, err := s.followStore.CountFollowers(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	return &FollowResult{Username: target.Username, FollowersCount: count}, nil
}

func (s *UserService) Unfollow(ctx context.Context, followerID, targetID uint) (*FollowResult, error) {
	if followerID == targetID {
		return nil, errs.Validationf("cannot unfollow yourself")
	}

	target, err := s.userStore.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if target == nil {
		return nil, errs.NotFoundf("user not found")
	}

	deleted, err := s.followStore.Delete(ctx, followerID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete follow: %w", err)
	}
	if !deleted {
		return nil, errs.Conflictf("not following this user")
	}

	s.publishFollowEvent(ctx, queue.EventFollowDeleted, followerID, targetID)
	s.logger.WithFields(map[string]interface{}{
		"follower_id": followerID,
		"followed_id": targetID,
	}).Info("User unfollowed")

	count, err := s.followStore.CountFollowers(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	return &FollowResult{Username: target.Username, FollowersCount: count}, nil
}

func (s *UserService) GetProfile(ctx context.Context, username string, viewerID uint) (*Profile, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, errs.NotFoundf("user not found")
	}

	followersCount, err := s.followStore.CountFollowers(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	followingCount, err := s.followStore.CountFollowing(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}

	isFollowing := false
	if viewerID != 0 && viewerID != user.ID {
		isFollowing, err = s.followStore.IsFollowing(ctx, viewerID, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check follow status: %w", err)
		}
	}

	posts, err := s.postStore.GetByAuthor(ctx, user.ID, 0, profileRecentPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	views, err := s.views.BuildMany(ctx, posts, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to build post views: %w", err)
	}

	return &Profile{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		ProfilePicURL:  user.ProfilePicURL,
		CreatedAt:      user.CreatedAt,
		FollowersCount: followersCount,
		FollowingCount: followingCount,
		IsFollowing:    isFollowing,
		IsOwnProfile:   viewerID == user.ID,
		Posts:          views,
	}, nil
}

func (s *UserService) GetFollowers(ctx context.Context, username string) ([]*models.User, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, errs.NotFoundf("user not found")
	}

	followers, err := s.followStore.GetFollowers(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return followers, nil
}

func (s *UserService) GetFollowing(ctx context.Context, username string) ([]*models.User, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, errs.NotFoundf("user not found")
	}

	following, err := s.followStore.GetFollowing(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return following, nil
}

func (s *UserService) publishFollowEvent(ctx context.Context, eventType queue.EventType, followerID, followedID uint) {
	event, err := queue.NewEvent(eventType, queue.FollowEventData{
		FollowerID: followerID,
		FollowedID: followedID,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to build follow event")
		return
	}
	if err := s.producer.Publish(ctx, fmt.Sprintf("%d", followerID), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish follow event")
	}
}
