package services

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/snapfeed/snapfeed/internal/config"
	"github.com/snapfeed/snapfeed/internal/models"
	"github.com/snapfeed/snapfeed/pkg/logger"
	"github.com/snapfeed/snapfeed/pkg/queue"
	"gorm.io/gorm"
)

// In-memory stores mirroring the gorm repositories: (nil, nil) for missing
// rows and gorm.ErrDuplicatedKey where a unique index would fire.

type fakeUserStore struct {
	nextID    uint
	users     map[uint]*models.User
	createErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uint]*models.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	f.nextID++
	user.ID = f.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) UpdateProfilePic(ctx context.Context, id uint, url string) error {
	if u, ok := f.users[id]; ok {
		u.ProfilePicURL = url
	}
	return nil
}

type followEdge struct {
	followerID uint
	followedID uint
}

type fakeFollowStore struct {
	users *fakeUserStore
	edges []followEdge
}

func newFakeFollowStore(users *fakeUserStore) *fakeFollowStore {
	return &fakeFollowStore{users: users}
}

func (f *fakeFollowStore) Create(ctx context.Context, follow *models.Follow) error {
	for _, e := range f.edges {
		if e.followerID == follow.FollowerID && e.followedID == follow.FollowedID {
			return gorm.ErrDuplicatedKey
		}
	}
	f.edges = append(f.edges, followEdge{follow.FollowerID, follow.FollowedID})
	return nil
}

func (f *fakeFollowStore) Delete(ctx context.Context, followerID, followedID uint) (bool, error) {
	for i, e := range f.edges {
		if e.followerID == followerID && e.followedID == followedID {
			f.edges = append(f.edges[:i], f.edges[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFollowStore) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	for _, e := range f.edges {
		if e.followerID == followerID && e.followedID == followedID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFollowStore) FolloweeIDs(ctx context.Context, followerID uint) ([]uint, error) {
	var ids []uint
	for _, e := range f.edges {
		if e.followerID == followerID {
			ids = append(ids, e.followedID)
		}
	}
	return ids, nil
}

func (f *fakeFollowStore) GetFollowers(ctx context.Context, userID uint) ([]*models.User, error) {
	var users []*models.User
	for _, e := range f.edges {
		if e.followedID == userID {
			if u := f.users.users[e.followerID]; u != nil {
				users = append(users, u)
			}
		}
	}
	return users, nil
}

func (f *fakeFollowStore) GetFollowing(ctx context.Context, userID uint) ([]*models.User, error) {
	var users []*models.User
	for _, e := range f.edges {
		if e.followerID == userID {
			if u := f.users.users[e.followedID]; u != nil {
				users = append(users, u)
			}
		}
	}
	return users, nil
}

func (f *fakeFollowStore) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	var n int64
	for _, e := range f.edges {
		if e.followedID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeFollowStore) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	var n int64
	for _, e := range f.edges {
		if e.followerID == userID {
			n++
		}
	}
	return n, nil
}

type fakePostStore struct {
	users  *fakeUserStore
	nextID uint
	posts  []*models.Post
}

func newFakePostStore(users *fakeUserStore) *fakePostStore {
	return &fakePostStore{users: users}
}

func (f *fakePostStore) Create(ctx context.Context, post *models.Post) error {
	f.nextID++
	post.ID = f.nextID
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	f.posts = append(f.posts, post)
	return nil
}

func (f *fakePostStore) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	for _, p := range f.posts {
		if p.ID == id {
			f.attachAuthor(p)
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePostStore) GetByAuthors(ctx context.Context, userIDs []uint, offset, limit int) ([]*models.Post, error) {
	matched := f.byAuthors(userIDs)
	return window(matched, offset, limit), nil
}

func (f *fakePostStore) CountByAuthors(ctx context.Context, userIDs []uint) (int64, error) {
	return int64(len(f.byAuthors(userIDs))), nil
}

func (f *fakePostStore) GetByAuthor(ctx context.Context, userID uint, offset, limit int) ([]*models.Post, error) {
	return f.GetByAuthors(ctx, []uint{userID}, offset, limit)
}

func (f *fakePostStore) CountByAuthor(ctx context.Context, userID uint) (int64, error) {
	return f.CountByAuthors(ctx, []uint{userID})
}

func (f *fakePostStore) Delete(ctx context.Context, id uint) error {
	for i, p := range f.posts {
		if p.ID == id {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return nil
		}
	}
	return nil
}

// byAuthors filters and sorts newest first with id as the tie break, the
// same order the repository queries with.
func (f *fakePostStore) byAuthors(userIDs []uint) []*models.Post {
	var matched []*models.Post
	for _, p := range f.posts {
		for _, id := range userIDs {
			if p.UserID == id {
				f.attachAuthor(p)
				matched = append(matched, p)
				break
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched
}

func (f *fakePostStore) attachAuthor(p *models.Post) {
	if u := f.users.users[p.UserID]; u != nil {
		p.User = *u
	}
}

type likeEdge struct {
	userID uint
	postID uint
}

type fakeLikeStore struct {
	edges []likeEdge
}

func newFakeLikeStore() *fakeLikeStore {
	return &fakeLikeStore{}
}

func (f *fakeLikeStore) Create(ctx context.Context, like *models.Like) error {
	for _, e := range f.edges {
		if e.userID == like.UserID && e.postID == like.PostID {
			return gorm.ErrDuplicatedKey
		}
	}
	f.edges = append(f.edges, likeEdge{like.UserID, like.PostID})
	return nil
}

func (f *fakeLikeStore) Delete(ctx context.Context, userID, postID uint) (bool, error) {
	for i, e := range f.edges {
		if e.userID == userID && e.postID == postID {
			f.edges = append(f.edges[:i], f.edges[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLikeStore) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	for _, e := range f.edges {
		if e.userID == userID && e.postID == postID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLikeStore) CountByPost(ctx context.Context, postID uint) (int64, error) {
	var n int64
	for _, e := range f.edges {
		if e.postID == postID {
			n++
		}
	}
	return n, nil
}

type fakeCommentStore struct {
	users    *fakeUserStore
	nextID   uint
	comments []*models.Comment
}

func newFakeCommentStore(users *fakeUserStore) *fakeCommentStore {
	return &fakeCommentStore{users: users}
}

func (f *fakeCommentStore) Create(ctx context.Context, comment *models.Comment) error {
	f.nextID++
	comment.ID = f.nextID
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	f.comments = append(f.comments, comment)
	return nil
}

func (f *fakeCommentStore) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	for _, c := range f.comments {
		if c.ID == id {
			f.attachAuthor(c)
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCommentStore) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var matched []*models.Comment
	for _, c := range f.comments {
		if c.PostID == postID {
			f.attachAuthor(c)
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return matched, nil
}

func (f *fakeCommentStore) Delete(ctx context.Context, id uint) error {
	for i, c := range f.comments {
		if c.ID == id {
			f.comments = append(f.comments[:i], f.comments[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeCommentStore) CountByPost(ctx context.Context, postID uint) (int64, error) {
	var n int64
	for _, c := range f.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (f *fakeCommentStore) attachAuthor(c *models.Comment) {
	if u := f.users.users[c.UserID]; u != nil {
		c.User = *u
	}
}

type fakeNotificationStore struct {
	users  *fakeUserStore
	nextID uint
	items  []*models.Notification
}

func newFakeNotificationStore(users *fakeUserStore) *fakeNotificationStore {
	return &fakeNotificationStore{users: users}
}

func (f *fakeNotificationStore) Create(ctx context.Context, notification *models.Notification) error {
	f.nextID++
	notification.ID = f.nextID
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	f.items = append(f.items, notification)
	return nil
}

func (f *fakeNotificationStore) ListByRecipient(ctx context.Context, recipientID uint, offset, limit int) ([]*models.Notification, error) {
	var matched []*models.Notification
	for _, n := range f.items {
		if n.RecipientID == recipientID {
			if u := f.users.users[n.ActorID]; u != nil {
				n.Actor = *u
			}
			matched = append(matched, n)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return window(matched, offset, limit), nil
}

func (f *fakeNotificationStore) CountByRecipient(ctx context.Context, recipientID uint) (int64, error) {
	var n int64
	for _, item := range f.items {
		if item.RecipientID == recipientID {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotificationStore) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	var n int64
	for _, item := range f.items {
		if item.RecipientID == recipientID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotificationStore) MarkAllRead(ctx context.Context, recipientID uint) error {
	for _, item := range f.items {
		if item.RecipientID == recipientID {
			item.IsRead = true
		}
	}
	return nil
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type fakePublisher struct {
	events []queue.Event
}

func (f *fakePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	if event, ok := value.(queue.Event); ok {
		f.events = append(f.events, event)
	}
	return nil
}

func (f *fakePublisher) eventTypes() []queue.EventType {
	types := make([]queue.EventType, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.Type)
	}
	return types
}

// fixtures bundles one consistent set of fakes plus the services wired to
// them.
type fixtures struct {
	users         *fakeUserStore
	follows       *fakeFollowStore
	posts         *fakePostStore
	likes         *fakeLikeStore
	comments      *fakeCommentStore
	notifications *fakeNotificationStore
	publisher     *fakePublisher
	views         *PostViewService
	logger        *logger.Logger
}

func newFixtures() *fixtures {
	users := newFakeUserStore()
	likes := newFakeLikeStore()
	comments := newFakeCommentStore(users)

	lg := logger.NewLogger()
	lg.SetOutput(io.Discard)

	return &fixtures{
		users:         users,
		follows:       newFakeFollowStore(users),
		posts:         newFakePostStore(users),
		likes:         likes,
		comments:      comments,
		notifications: newFakeNotificationStore(users),
		publisher:     &fakePublisher{},
		views:         NewPostViewService(likes, comments),
		logger:        lg,
	}
}

func (f *fixtures) userService() *UserService {
	return NewUserService(f.users, f.follows, f.posts, f.views, f.publisher, f.logger)
}

func (f *fixtures) feedService() *FeedService {
	cfg := config.FeedConfig{DefaultPageSize: 10, MaxPageSize: 50}
	return NewFeedService(f.posts, f.follows, f.users, f.comments, f.views, f.publisher, f.logger, cfg)
}

func (f *fixtures) likeService() *LikeService {
	return NewLikeService(f.posts, f.likes, f.publisher, f.logger)
}

func (f *fixtures) commentService() *CommentService {
	return NewCommentService(f.posts, f.comments, f.users, f.publisher, f.logger)
}

func (f *fixtures) notificationService() *NotificationService {
	return NewNotificationService(f.notifications, f.logger)
}

func (f *fixtures) addUser(username string) *models.User {
	user := &models.User{
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  "unused",
		ProfilePicURL: models.DefaultProfilePicURL,
	}
	if err := f.users.Create(context.Background(), user); err != nil {
		panic(err)
	}
	return user
}

func (f *fixtures) addPost(userID uint, createdAt time.Time) *models.Post {
	post := &models.Post{
		UserID:    userID,
		ImageURL:  "https://img.example.com/p.jpg",
		CreatedAt: createdAt,
	}
	if err := f.posts.Create(context.Background(), post); err != nil {
		panic(err)
	}
	return post
}

func (f *fixtures) addFollow(followerID, followedID uint) {
	err := f.follows.Create(context.Background(), &models.Follow{
		FollowerID: followerID,
		FollowedID: followedID,
	})
	if err != nil {
		panic(err)
	}
}

func (f *fixtures) addLike(userID, postID uint) {
	err := f.likes.Create(context.Background(), &models.Like{UserID: userID, PostID: postID})
	if err != nil {
		panic(err)
	}
}

func (f *fixtures) addComment(userID, postID uint, text string, createdAt time.Time) *models.Comment {
	comment := &models.Comment{
		PostID:    postID,
		UserID:    userID,
		Text:      text,
		CreatedAt: createdAt,
	}
	if err := f.comments.Create(context.Background(), comment); err != nil {
		panic(err)
	}
	return comment
}
