package repository

import (
	"context"
	"time"

	"github.com/d60-Lab/gin-blog/internal/model"
)

// MaxAttempts 乐观锁冲突时的最大重试次数
const MaxAttempts = 5

// ListQuery 文章列表查询，按 (createdAt desc, id desc) 排序
type ListQuery struct {
	// AuthorID 非空时只列出该作者的文章
	AuthorID string
	// After 非空时从该游标之后（严格）开始
	After *Cursor
	Limit int
}

// PostRepository 文章仓储
type PostRepository interface {
	// Create 写入新文章并返回存储分配的 ID
	Create(ctx context.Context, post *model.Post) (string, error)
	Get(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context, q ListQuery) ([]*model.Post, error)
	// Update 修改标题 / 正文；title、content 为 nil 时保持不变
	Update(ctx context.Context, id string, title, content *string, at time.Time) error
	Delete(ctx context.Context, id string) error
	// AddToSet / RemoveFromSet 幂等地增删集合成员
	AddToSet(ctx context.Context, id string, field model.SetField, uid string) error
	RemoveFromSet(ctx context.Context, id string, field model.SetField, uid string) error
	// AppendComment 原子追加评论；文章不存在返回 NotFound
	AppendComment(ctx context.Context, id string, c model.Comment) error
}

// UserRepository 用户仓储
type UserRepository interface {
	Get(ctx context.Context, uid string) (*model.User, error)
	// GetByUsername 按规范化用户名查找
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetMany 批量查找，不存在的 uid 被忽略
	GetMany(ctx context.Context, uids []string) ([]*model.User, error)
	// UsernameTaken 尽力而为的预检，只作提示，不保证无竞争
	UsernameTaken(ctx context.Context, normalized string) (bool, error)
	// Register 在一个事务内预留用户名并写入用户文档；已被预留返回 Conflict
	Register(ctx context.Context, user *model.User) error
	// Rename 在一个事务内预留新用户名、释放旧用户名并更新用户文档
	Rename(ctx context.Context, uid, username string) error
	UpdateProfile(ctx context.Context, uid string, upd model.ProfileUpdate) error
}
