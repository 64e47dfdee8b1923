package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/model"
)

type postRepository struct{ db *gorm.DB }

// NewPostRepository 基于 gorm 的文章仓储。集合字段以 JSON 列存储，
// 变更通过 version 列做乐观并发控制。
func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) (string, error) {
	row := *post
	row.Normalize()
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	row.Version = 0
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", apperr.Upstream("posts.create", err)
	}
	return row.ID, nil
}

func (r *postRepository) Get(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("post %s", id)
	}
	if err != nil {
		return nil, apperr.Upstream("posts.get", err)
	}
	return p.Normalize(), nil
}

func (r *postRepository) List(ctx context.Context, q ListQuery) ([]*model.Post, error) {
	tx := r.db.WithContext(ctx).Model(&model.Post{})
	if q.AuthorID != "" {
		tx = tx.Where("author_id = ?", q.AuthorID)
	}
	if q.After != nil {
		t := q.After.CreatedAt
		tx = tx.Where("(created_at < ? OR (created_at = ? AND id < ?))", t, t, q.After.ID)
	}
	tx = tx.Order("created_at DESC").Order("id DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var posts []*model.Post
	if err := tx.Find(&posts).Error; err != nil {
		return nil, apperr.Upstream("posts.list", err)
	}
	for _, p := range posts {
		p.Normalize()
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, id string, title, content *string, at time.Time) error {
	updates := map[string]any{"updated_at": at}
	if title != nil {
		updates["title"] = *title
	}
	if content != nil {
		updates["content"] = *content
	}
	res := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return apperr.Upstream("posts.update", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("post %s", id)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Post{})
	if res.Error != nil {
		return apperr.Upstream("posts.delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("post %s", id)
	}
	return nil
}

func (r *postRepository) AddToSet(ctx context.Context, id string, field model.SetField, uid string) error {
	if err := checkSetField(field); err != nil {
		return err
	}
	return r.mutate(ctx, id, string(field), func(p *model.Post) bool {
		members := p.Members(field)
		for _, m := range members {
			if m == uid {
				return false
			}
		}
		setMembers(p, field, append(members, uid))
		return true
	})
}

func (r *postRepository) RemoveFromSet(ctx context.Context, id string, field model.SetField, uid string) error {
	if err := checkSetField(field); err != nil {
		return err
	}
	return r.mutate(ctx, id, string(field), func(p *model.Post) bool {
		members := p.Members(field)
		kept := make([]string, 0, len(members))
		for _, m := range members {
			if m != uid {
				kept = append(kept, m)
			}
		}
		if len(kept) == len(members) {
			return false
		}
		setMembers(p, field, kept)
		return true
	})
}

func (r *postRepository) AppendComment(ctx context.Context, id string, c model.Comment) error {
	if c.Likes == nil {
		c.Likes = []string{}
	}
	return r.mutate(ctx, id, "comments", func(p *model.Post) bool {
		p.Comments = append(p.Comments, c)
		return true
	})
}

// mutate 读取当前版本、在内存中修改、带版本条件写回；版本冲突时重读重试。
// fn 返回 false 表示无需写入（幂等的空操作）。
func (r *postRepository) mutate(ctx context.Context, id, column string, fn func(p *model.Post) bool) error {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		p, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if !fn(p) {
			return nil
		}
		prev := p.Version
		p.Version = prev + 1
		res := r.db.WithContext(ctx).Model(&model.Post{}).
			Where("id = ? AND version = ?", id, prev).
			Select(column, "version").
			Updates(p)
		if res.Error != nil {
			return apperr.Upstream("posts."+column, res.Error)
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
	return apperr.Upstream("posts."+column, errStaleVersion)
}

func checkSetField(f model.SetField) error {
	if f != model.FieldLikes && f != model.FieldBookmarks {
		return apperr.Invalid("field", "unknown set field "+string(f))
	}
	return nil
}

func setMembers(p *model.Post, f model.SetField, members []string) {
	if f == model.FieldBookmarks {
		p.Bookmarks = members
		return
	}
	p.Likes = members
}
