package model

import "time"

// Comment 内嵌在文章中的评论，只能追加，不单独存储。
type Comment struct {
	ID             string    `json:"id"`
	PostID         string    `json:"postId"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	AuthorPhotoURL string    `json:"authorPhotoURL,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	Likes          []string  `json:"likes"`
}
