package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/cache"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
	// PopularWindow 热门榜只在最近这么多篇文章里按点赞数排序，不是全站排名。
	PopularWindow = 50
	// SitemapLimit sitemap 与收藏列表读取的最近文章上限
	SitemapLimit = 1000
)

// PostService 文章访问层。所有写操作显式接收执行者 principal。
type PostService interface {
	Create(ctx context.Context, principal string, in PostInput) (string, error)
	Get(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context, cursor string, pageSize int) (*model.Page, error)
	ListByAuthor(ctx context.Context, authorID, cursor string, pageSize int) (*model.Page, error)
	ListByUsername(ctx context.Context, username, cursor string, pageSize int) (*model.Page, error)
	MostPopular(ctx context.Context, n int) ([]*model.Post, error)
	ListForSitemap(ctx context.Context) ([]*model.Post, error)
	Update(ctx context.Context, principal, id string, in PostUpdate) error
	Delete(ctx context.Context, principal, id string) error
	ToggleLike(ctx context.Context, id, principal string) (bool, error)
	ToggleBookmark(ctx context.Context, id, principal string) (bool, error)
	AddComment(ctx context.Context, id, principal, content string) (*model.Comment, error)
	ListBookmarked(ctx context.Context, principal string) ([]*model.Post, error)
}

type postService struct {
	posts repository.PostRepository
	users repository.UserRepository
	cache *cache.Cache
	now   func() time.Time
}

// NewPostService c 为 nil 时不走缓存。
func NewPostService(posts repository.PostRepository, users repository.UserRepository, c *cache.Cache) PostService {
	return &postService{posts: posts, users: users, cache: c, now: func() time.Time { return time.Now().UTC() }}
}

func (s *postService) Create(ctx context.Context, principal string, in PostInput) (string, error) {
	in.trim()
	if err := check(in); err != nil {
		return "", fail("posts.create", err, zap.String("principal", principal))
	}
	author, err := s.users.Get(ctx, principal)
	if err != nil {
		return "", fail("posts.create", err, zap.String("principal", principal))
	}
	now := s.now()
	id, err := s.posts.Create(ctx, &model.Post{
		Title:          in.Title,
		Content:        in.Content,
		AuthorID:       author.UID,
		AuthorUsername: author.Username,
		AuthorPhotoURL: author.PhotoURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return "", fail("posts.create", err, zap.String("principal", principal))
	}
	s.cache.InvalidatePopular(ctx)
	return id, nil
}

func (s *postService) Get(ctx context.Context, id string) (*model.Post, error) {
	if p, ok := s.cache.GetPost(ctx, id); ok {
		return p, nil
	}
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, fail("posts.get", err, zap.String("post", id))
	}
	s.cache.SetPost(ctx, p)
	return p, nil
}

func (s *postService) List(ctx context.Context, cursor string, pageSize int) (*model.Page, error) {
	return s.page(ctx, "posts.list", "", cursor, pageSize)
}

func (s *postService) ListByAuthor(ctx context.Context, authorID, cursor string, pageSize int) (*model.Page, error) {
	return s.page(ctx, "posts.list_by_author", authorID, cursor, pageSize)
}

func (s *postService) ListByUsername(ctx context.Context, username, cursor string, pageSize int) (*model.Page, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fail("posts.list_by_username", err, zap.String("username", username))
	}
	return s.page(ctx, "posts.list_by_username", u.UID, cursor, pageSize)
}

// page 多取一条判断是否还有下一页
func (s *postService) page(ctx context.Context, op, authorID, cursor string, pageSize int) (*model.Page, error) {
	size := clampPageSize(pageSize)
	after, err := repository.DecodeCursor(cursor)
	if err != nil {
		return nil, fail(op, err)
	}
	rows, err := s.posts.List(ctx, repository.ListQuery{AuthorID: authorID, After: after, Limit: size + 1})
	if err != nil {
		return nil, fail(op, err, zap.String("author", authorID))
	}
	rows = dedupe(rows)

	page := &model.Page{Items: rows, HasMore: len(rows) > size}
	if page.HasMore {
		page.Items = rows[:size]
		page.NextCursor = repository.CursorOf(page.Items[size-1]).Encode()
	}
	if page.Items == nil {
		page.Items = []*model.Post{}
	}
	return page, nil
}

func clampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

func dedupe(posts []*model.Post) []*model.Post {
	seen := make(map[string]struct{}, len(posts))
	out := posts[:0]
	for _, p := range posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// MostPopular 取最近 PopularWindow 篇按点赞数降序后截断，点赞相同保持时间倒序。
func (s *postService) MostPopular(ctx context.Context, n int) ([]*model.Post, error) {
	n = clampPageSize(n)
	if posts, ok := s.cache.GetPopular(ctx, n); ok {
		return posts, nil
	}
	recent, err := s.posts.List(ctx, repository.ListQuery{Limit: PopularWindow})
	if err != nil {
		return nil, fail("posts.most_popular", err)
	}
	sort.SliceStable(recent, func(i, j int) bool { return len(recent[i].Likes) > len(recent[j].Likes) })
	if len(recent) > n {
		recent = recent[:n]
	}
	s.cache.SetPopular(ctx, n, recent)
	return recent, nil
}

func (s *postService) ListForSitemap(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.posts.List(ctx, repository.ListQuery{Limit: SitemapLimit})
	if err != nil {
		return nil, fail("posts.list_for_sitemap", err)
	}
	return posts, nil
}

func (s *postService) Update(ctx context.Context, principal, id string, in PostUpdate) error {
	in.trim()
	if in.Title != nil && *in.Title == "" {
		return fail("posts.update", apperr.Invalid("title", "is required"))
	}
	if in.Content != nil && *in.Content == "" {
		return fail("posts.update", apperr.Invalid("content", "is required"))
	}
	if err := check(in); err != nil {
		return fail("posts.update", err)
	}
	if err := s.authorize(ctx, principal, id); err != nil {
		return fail("posts.update", err, zap.String("post", id), zap.String("principal", principal))
	}
	if in.Title == nil && in.Content == nil {
		return nil
	}
	if err := s.posts.Update(ctx, id, in.Title, in.Content, s.now()); err != nil {
		return fail("posts.update", err, zap.String("post", id))
	}
	s.cache.InvalidatePost(ctx, id)
	return nil
}

func (s *postService) Delete(ctx context.Context, principal, id string) error {
	if err := s.authorize(ctx, principal, id); err != nil {
		return fail("posts.delete", err, zap.String("post", id), zap.String("principal", principal))
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return fail("posts.delete", err, zap.String("post", id))
	}
	s.cache.InvalidatePost(ctx, id)
	return nil
}

// authorize 只有作者本人可以修改或删除
func (s *postService) authorize(ctx context.Context, principal, id string) error {
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorID != principal {
		return apperr.ErrForbidden
	}
	return nil
}

func (s *postService) ToggleLike(ctx context.Context, id, principal string) (bool, error) {
	return s.toggle(ctx, "posts.toggle_like", id, model.FieldLikes, principal)
}

func (s *postService) ToggleBookmark(ctx context.Context, id, principal string) (bool, error) {
	return s.toggle(ctx, "posts.toggle_bookmark", id, model.FieldBookmarks, principal)
}

// toggle 先读当前成员关系再做幂等的加入/移除。两步之间不是原子的，
// 同一用户快速连点时以最后落地的写入为准。返回操作后的成员状态。
func (s *postService) toggle(ctx context.Context, op, id string, field model.SetField, principal string) (bool, error) {
	if principal == "" {
		return false, fail(op, apperr.ErrUnauthenticated)
	}
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return false, fail(op, err, zap.String("post", id))
	}
	member := false
	for _, m := range p.Members(field) {
		if m == principal {
			member = true
			break
		}
	}
	if member {
		err = s.posts.RemoveFromSet(ctx, id, field, principal)
	} else {
		err = s.posts.AddToSet(ctx, id, field, principal)
	}
	if err != nil {
		return member, fail(op, err, zap.String("post", id), zap.String("principal", principal))
	}
	s.cache.InvalidatePost(ctx, id)
	return !member, nil
}

func (s *postService) AddComment(ctx context.Context, id, principal, content string) (*model.Comment, error) {
	in := commentInput{Content: strings.TrimSpace(content)}
	if err := check(in); err != nil {
		return nil, fail("posts.add_comment", err)
	}
	author, err := s.users.Get(ctx, principal)
	if err != nil {
		return nil, fail("posts.add_comment", err, zap.String("principal", principal))
	}
	now := s.now()
	c := model.Comment{
		ID:             principal + "-" + strconv.FormatInt(now.UnixNano(), 10),
		PostID:         id,
		AuthorID:       author.UID,
		AuthorUsername: author.Username,
		AuthorPhotoURL: author.PhotoURL,
		Content:        in.Content,
		CreatedAt:      now,
		Likes:          []string{},
	}
	if err := s.posts.AppendComment(ctx, id, c); err != nil {
		return nil, fail("posts.add_comment", err, zap.String("post", id))
	}
	s.cache.InvalidatePost(ctx, id)
	return &c, nil
}

// ListBookmarked 在最近 SitemapLimit 篇文章里筛选 principal 收藏过的。
func (s *postService) ListBookmarked(ctx context.Context, principal string) ([]*model.Post, error) {
	recent, err := s.posts.List(ctx, repository.ListQuery{Limit: SitemapLimit})
	if err != nil {
		return nil, fail("posts.list_bookmarked", err, zap.String("principal", principal))
	}
	out := []*model.Post{}
	for _, p := range recent {
		if p.BookmarkedBy(principal) {
			out = append(out, p)
		}
	}
	return out, nil
}
