package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/cache"
	"github.com/d60-Lab/gin-blog/internal/model"
)

const body = "This is my first blog post."

func newPostService(t *testing.T, st store, c *cache.Cache) *postService {
	t.Helper()
	svc := NewPostService(st.posts, st.users, c).(*postService)
	svc.now = clock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return svc
}

func TestCreateAndGetPost(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "Writer")
	svc := newPostService(t, st, nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, "u1", PostInput{Title: "Hello", Content: body})
	require.NoError(t, err)

	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, body, p.Content)
	assert.Equal(t, "u1", p.AuthorID)
	assert.Equal(t, "Writer", p.AuthorUsername)
	assert.Equal(t, []string{}, p.Likes)
	assert.Equal(t, []string{}, p.Bookmarks)
	assert.Equal(t, []model.Comment{}, p.Comments)
	assert.True(t, p.CreatedAt.Equal(p.UpdatedAt))
}

func TestCreatePostValidation(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	svc := newPostService(t, st, nil)
	ctx := context.Background()

	cases := []PostInput{
		{Title: "   ", Content: body},
		{Title: string(make([]rune, 101)), Content: body},
		{Title: "Hi", Content: "too short"},
	}
	for i, in := range cases {
		_, err := svc.Create(ctx, "u1", in)
		assert.ErrorIs(t, err, apperr.ErrValidation, "case %d", i)
	}

	_, err := svc.Create(ctx, "ghost", PostInput{Title: "Hello", Content: body})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestToggleLikeIsATrueToggle(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	svc := newPostService(t, st, nil)
	ctx := context.Background()
	id, err := svc.Create(ctx, "u1", PostInput{Title: "Hello", Content: body})
	require.NoError(t, err)

	liked, err := svc.ToggleLike(ctx, id, "u2")
	require.NoError(t, err)
	assert.True(t, liked)
	p, _ := svc.Get(ctx, id)
	assert.Equal(t, []string{"u2"}, p.Likes)

	liked, err = svc.ToggleLike(ctx, id, "u2")
	require.NoError(t, err)
	assert.False(t, liked)
	p, _ = svc.Get(ctx, id)
	assert.Empty(t, p.Likes)

	marked, err := svc.ToggleBookmark(ctx, id, "u3")
	require.NoError(t, err)
	assert.True(t, marked)
	p, _ = svc.Get(ctx, id)
	assert.Equal(t, []string{"u3"}, p.Bookmarks)
	assert.Empty(t, p.Likes)

	_, err = svc.ToggleLike(ctx, "missing", "u2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepeatedAddLikeIsIdempotent(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	svc := newPostService(t, st, nil)
	ctx := context.Background()
	id, err := svc.Create(ctx, "u1", PostInput{Title: "Hello", Content: body})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, st.posts.AddToSet(ctx, id, model.FieldLikes, "u2"))
	}
	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, p.Likes)
}

func TestListPagination(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	svc := newPostService(t, st, nil)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := svc.Create(ctx, "u1", PostInput{Title: fmt.Sprintf("post %d", i), Content: body})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	page1, err := svc.List(ctx, "", 2)
	require.NoError(t, err)
	assert.True(t, page1.HasMore)
	require.NotEmpty(t, page1.NextCursor)
	assert.Equal(t, []string{ids[4], ids[3]}, postIDs(page1.Items))

	page2, err := svc.List(ctx, page1.NextCursor, 2)
	require.NoError(t, err)
	assert.True(t, page2.HasMore)
	assert.Equal(t, []string{ids[2], ids[1]}, postIDs(page2.Items))

	page3, err := svc.List(ctx, page2.NextCursor, 2)
	require.NoError(t, err)
	assert.False(t, page3.HasMore)
	assert.Empty(t, page3.NextCursor)
	assert.Equal(t, []string{ids[0]}, postIDs(page3.Items))

	_, err = svc.List(ctx, "not-a-cursor", 2)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListExactPageHasNoMore(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	svc := newPostService(t, st, nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, "u1", PostInput{Title: "t", Content: body})
		require.NoError(t, err)
	}
	page, err := svc.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasMore)

	empty, err := newPostService(t, newStore(t), nil).List(ctx, "", 0)
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.False(t, empty.HasMore)
}

func TestListByUsername(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "Alice")
	st.seedUser(t, "u2", "bob")
	svc := newPostService(t, st, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, "u1", PostInput{Title: "mine", Content: body})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", PostInput{Title: "theirs", Content: body})
	require.NoError(t, err)

	page, err := svc.ListByUsername(ctx, "ALICE", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "mine", page.Items[0].Title)

	_, err = svc.ListByUsername(ctx, "nobody", "", 10)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMostPopularRanksRecentWindowByLikes(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	svc := newPostService(t, st, nil)
	ctx := context.Background()

	old, err := svc.Create(ctx, "u1", PostInput{Title: "old", Content: body})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, st.posts.AddToSet(ctx, old, model.FieldLikes, fmt.Sprintf("fan%d", i)))
	}
	var recent []string
	for i := 0; i < PopularWindow; i++ {
		id, err := svc.Create(ctx, "u1", PostInput{Title: fmt.Sprintf("p%d", i), Content: body})
		require.NoError(t, err)
		recent = append(recent, id)
	}
	require.NoError(t, st.posts.AddToSet(ctx, recent[3], model.FieldLikes, "a"))
	require.NoError(t, st.posts.AddToSet(ctx, recent[3], model.FieldLikes, "b"))
	require.NoError(t, st.posts.AddToSet(ctx, recent[7], model.FieldLikes, "a"))

	top, err := svc.MostPopular(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, recent[3], top[0].ID)
	assert.Equal(t, recent[7], top[1].ID)
	// 窗口外的旧文章点赞再多也不进榜
	for _, p := range top {
		assert.NotEqual(t, old, p.ID)
	}
	// 同票数保持时间倒序
	assert.Equal(t, recent[PopularWindow-1], top[2].ID)
}

func TestUpdateAndDeleteRequireAuthor(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	svc := newPostService(t, st, nil)
	ctx := context.Background()
	id, err := svc.Create(ctx, "u1", PostInput{Title: "Hello", Content: body})
	require.NoError(t, err)

	title := "Edited"
	assert.ErrorIs(t, svc.Update(ctx, "u2", id, PostUpdate{Title: &title}), apperr.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, "u2", id), apperr.ErrForbidden)

	empty := "  "
	assert.ErrorIs(t, svc.Update(ctx, "u1", id, PostUpdate{Title: &empty}), apperr.ErrValidation)

	require.NoError(t, svc.Update(ctx, "u1", id, PostUpdate{Title: &title}))
	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Edited", p.Title)
	assert.True(t, p.UpdatedAt.After(p.CreatedAt))

	require.NoError(t, svc.Delete(ctx, "u1", id))
	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddCommentSnapshotsAuthor(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	st.seedUser(t, "u3", "commenter")
	svc := newPostService(t, st, nil)
	ctx := context.Background()
	id, err := svc.Create(ctx, "u1", PostInput{Title: "Hello", Content: body})
	require.NoError(t, err)
	require.NoError(t, st.posts.AddToSet(ctx, id, model.FieldLikes, "u2"))

	c, err := svc.AddComment(ctx, id, "u3", "nice post")
	require.NoError(t, err)
	assert.Equal(t, "commenter", c.AuthorUsername)

	require.NoError(t, st.users.Rename(ctx, "u3", "renamed"))

	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, p.Comments, 1)
	assert.Equal(t, "commenter", p.Comments[0].AuthorUsername)
	assert.Equal(t, "nice post", p.Comments[0].Content)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, []string{"u2"}, p.Likes)

	_, err = svc.AddComment(ctx, id, "u3", "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.AddComment(ctx, id, "ghost", "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.AddComment(ctx, "missing", "u3", "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListBookmarked(t *testing.T) {
	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	svc := newPostService(t, st, nil)
	ctx := context.Background()
	a, _ := svc.Create(ctx, "u1", PostInput{Title: "a", Content: body})
	_, _ = svc.Create(ctx, "u1", PostInput{Title: "b", Content: body})
	_, err := svc.ToggleBookmark(ctx, a, "u9")
	require.NoError(t, err)

	marked, err := svc.ListBookmarked(ctx, "u9")
	require.NoError(t, err)
	require.Len(t, marked, 1)
	assert.Equal(t, a, marked[0].ID)
}

func TestCacheInvalidatedOnToggle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	svc := newPostService(t, st, cache.New(rdb, time.Minute, time.Minute))
	ctx := context.Background()
	id, err := svc.Create(ctx, "u1", PostInput{Title: "Hello", Content: body})
	require.NoError(t, err)

	_, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, mr.Exists("post:"+id))

	_, err = svc.ToggleLike(ctx, id, "u2")
	require.NoError(t, err)
	assert.False(t, mr.Exists("post:"+id))

	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, p.Likes)
}

func TestCacheFailureDoesNotFailReads(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	st := newStore(t)
	st.seedUser(t, "u1", "writer")
	svc := newPostService(t, st, cache.New(rdb, time.Minute, time.Minute))
	ctx := context.Background()
	id, err := svc.Create(ctx, "u1", PostInput{Title: "Hello", Content: body})
	require.NoError(t, err)

	mr.Close()
	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.False(t, errors.Is(err, apperr.ErrUpstream))
}

func postIDs(posts []*model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
