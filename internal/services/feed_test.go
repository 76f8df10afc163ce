package services

import (
	"context"
	"testing"
	"time"

	"github.com/snapfeed/snapfeed/internal/errs"
	"github.com/snapfeed/snapfeed/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGetFeed_FolloweesPlusSelf(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()
	ctx := context.Background()

	alice := f.addUser("alice")
	bob := f.addUser("bob")
	carol := f.addUser("carol")
	f.addFollow(alice.ID, bob.ID)

	f.addPost(alice.ID, baseTime.Add(1*time.Minute))
	f.addPost(bob.ID, baseTime.Add(2*time.Minute))
	f.addPost(carol.ID, baseTime.Add(3*time.Minute))

	page, err := svc.GetFeed(ctx, alice.ID, 1, 10)
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	assert.Equal(t, "bob", page.Items[0].Username)
	assert.Equal(t, "alice", page.Items[1].Username)
	assert.Equal(t, int64(2), page.Total)
}

func TestGetFeed_NewestFirstWithIDTieBreak(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()
	ctx := context.Background()

	alice := f.addUser("alice")
	older := f.addPost(alice.ID, baseTime)
	tied1 := f.addPost(alice.ID, baseTime.Add(time.Minute))
	tied2 := f.addPost(alice.ID, baseTime.Add(time.Minute))

	page, err := svc.GetFeed(ctx, alice.ID, 1, 10)
	require.NoError(t, err)

	require.Len(t, page.Items, 3)
	assert.Equal(t, tied2.ID, page.Items[0].ID)
	assert.Equal(t, tied1.ID, page.Items[1].ID)
	assert.Equal(t, older.ID, page.Items[2].ID)
}

func TestGetFeed_Pagination(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()
	ctx := context.Background()

	alice := f.addUser("alice")
	for i := 0; i < 25; i++ {
		f.addPost(alice.ID, baseTime.Add(time.Duration(i)*time.Minute))
	}

	page, err := svc.GetFeed(ctx, alice.ID, 2, 10)
	require.NoError(t, err)

	assert.Len(t, page.Items, 10)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)

	last, err := svc.GetFeed(ctx, alice.ID, 3, 10)
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
	assert.False(t, last.HasNext)
}

func TestGetFeed_PageBeyondEnd(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()
	ctx := context.Background()

	alice := f.addUser("alice")
	f.addPost(alice.ID, baseTime)

	page, err := svc.GetFeed(ctx, alice.ID, 99, 10)
	require.NoError(t, err)

	assert.Empty(t, page.Items)
	assert.Equal(t, 99, page.Page)
	assert.Equal(t, int64(1), page.Total)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestGetFeed_ClampsPaging(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()
	ctx := context.Background()

	alice := f.addUser("alice")
	f.addPost(alice.ID, baseTime)

	page, err := svc.GetFeed(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)

	page, err = svc.GetFeed(ctx, alice.ID, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, page.PageSize)
}

func TestGetFeed_EmptyWithoutFollows(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()
	ctx := context.Background()

	alice := f.addUser("alice")
	bob := f.addUser("bob")
	f.addPost(bob.ID, baseTime)

	page, err := svc.GetFeed(ctx, alice.ID, 1, 10)
	require.NoError(t, err)

	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.Total)
	assert.Equal(t, 0, page.TotalPages)
}

func TestCreatePost(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()
	ctx := context.Background()

	alice := f.addUser("alice")

	view, err := svc.CreatePost(ctx, alice.ID, &CreatePostRequest{
		ImageURL: "https://img.example.com/cat.jpg",
		Caption:  "  my cat  ",
	})
	require.NoError(t, err)

	assert.NotZero(t, view.ID)
	assert.Equal(t, alice.ID, view.UserID)
	assert.Equal(t, "alice", view.Username)
	assert.Equal(t, "https://img.example.com/cat.jpg", view.ImageURL)
	assert.Equal(t, "my cat", view.Caption)
	assert.Equal(t, int64(0), view.LikeCount)
	assert.False(t, view.IsLiked)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, queue.EventPostCreated, f.publisher.events[0].Type)
}

func TestCreatePost_BlankImageURL(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()

	alice := f.addUser("alice")

	_, err := svc.CreatePost(context.Background(), alice.ID, &CreatePostRequest{ImageURL: "   "})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestCreatePost_UnknownUser(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()

	_, err := svc.CreatePost(context.Background(), 42, &CreatePostRequest{ImageURL: "https://img.example.com/x.jpg"})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestGetPost_EmbedsCommentsOldestFirst(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()
	ctx := context.Background()

	alice := f.addUser("alice")
	bob := f.addUser("bob")
	post := f.addPost(alice.ID, baseTime)
	f.addComment(bob.ID, post.ID, "second", baseTime.Add(2*time.Minute))
	f.addComment(alice.ID, post.ID, "first", baseTime.Add(1*time.Minute))

	detail, err := svc.GetPost(ctx, post.ID, bob.ID)
	require.NoError(t, err)

	assert.Equal(t, post.ID, detail.ID)
	assert.Equal(t, int64(2), detail.CommentCount)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "first", detail.Comments[0].Text)
	assert.Equal(t, "second", detail.Comments[1].Text)
	assert.Equal(t, "bob", detail.Comments[1].Username)
}

func TestGetPost_NotFound(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()

	_, err := svc.GetPost(context.Background(), 404, 0)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestDeletePost_OwnerOnly(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()
	ctx := context.Background()

	alice := f.addUser("alice")
	bob := f.addUser("bob")
	post := f.addPost(alice.ID, baseTime)

	err := svc.DeletePost(ctx, post.ID, bob.ID)
	require.Error(t, err)
	assert.True(t, errs.IsForbidden(err))

	require.NoError(t, svc.DeletePost(ctx, post.ID, alice.ID))

	_, err = svc.GetPost(ctx, post.ID, alice.ID)
	assert.True(t, errs.IsNotFound(err))

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, queue.EventPostDeleted, f.publisher.events[0].Type)
}

func TestDeletePost_NotFound(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()

	err := svc.DeletePost(context.Background(), 404, 1)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestGetUserPosts(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()
	ctx := context.Background()

	alice := f.addUser("alice")
	bob := f.addUser("bob")
	f.addPost(alice.ID, baseTime.Add(time.Minute))
	f.addPost(alice.ID, baseTime)
	f.addPost(bob.ID, baseTime)

	page, err := svc.GetUserPosts(ctx, alice.ID, 0, 1, 10)
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
	for _, item := range page.Items {
		assert.Equal(t, "alice", item.Username)
	}
}

func TestGetUserPosts_UnknownUser(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	svc := f.feedService()

	_, err := svc.GetUserPosts(context.Background(), 42, 0, 1, 10)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}
