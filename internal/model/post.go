package model

import "time"

// Post 博客文章。AuthorUsername / AuthorPhotoURL 为创建时的快照，不随用户改名同步。
type Post struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title          string    `json:"title" gorm:"type:varchar(200);not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	AuthorID       string    `json:"authorId" gorm:"type:varchar(64);not null;index:idx_post_author_created,priority:1"`
	AuthorUsername string    `json:"authorUsername" gorm:"type:varchar(32)"`
	AuthorPhotoURL string    `json:"authorPhotoURL,omitempty" gorm:"type:text"`
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime:false;index:idx_post_created;index:idx_post_author_created,priority:2"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"autoUpdateTime:false"`
	Likes          []string  `json:"likes" gorm:"type:text;serializer:json"`
	Bookmarks      []string  `json:"bookmarks" gorm:"type:text;serializer:json"`
	Comments       []Comment `json:"comments" gorm:"type:text;serializer:json"`
	// Version 乐观锁版本号，集合字段的每次变更 +1
	Version int64 `json:"-" gorm:"not null;default:0"`
}

func (Post) TableName() string { return "posts" }

// Normalize 把缺省的集合字段补成空集合，下游无需判空。
func (p *Post) Normalize() *Post {
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Bookmarks == nil {
		p.Bookmarks = []string{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	for i := range p.Comments {
		if p.Comments[i].Likes == nil {
			p.Comments[i].Likes = []string{}
		}
	}
	return p
}

// LikedBy 报告 uid 是否在点赞集合中。
func (p *Post) LikedBy(uid string) bool { return contains(p.Likes, uid) }

// BookmarkedBy 报告 uid 是否在收藏集合中。
func (p *Post) BookmarkedBy(uid string) bool { return contains(p.Bookmarks, uid) }

// SetField 文章上的成员集合字段
type SetField string

const (
	FieldLikes     SetField = "likes"
	FieldBookmarks SetField = "bookmarks"
)

// Members 返回对应集合。
func (p *Post) Members(f SetField) []string {
	if f == FieldBookmarks {
		return p.Bookmarks
	}
	return p.Likes
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
