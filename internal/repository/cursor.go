package repository

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/model"
)

// Cursor 复合游标 (createdAt, id)。按字段值而非文档存在性定位，
// 游标指向的文章被删除后分页依旧可以继续，同一时间戳的多篇文章也不会重复或遗漏。
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// CursorOf 返回文章对应的游标
func CursorOf(p *model.Post) Cursor {
	return Cursor{CreatedAt: p.CreatedAt.UTC(), ID: p.ID}
}

// Encode 编码为对客户端不透明的字符串
func (c Cursor) Encode() string {
	b, _ := json.Marshal(Cursor{CreatedAt: c.CreatedAt.UTC(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor 解析客户端传回的游标，空串返回 nil。
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, apperr.Invalid("cursor", "malformed")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, apperr.Invalid("cursor", "malformed")
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return nil, apperr.Invalid("cursor", "incomplete")
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// Before 报告 p 是否排在游标之后（即属于下一页）
func (c Cursor) Before(p *model.Post) bool {
	if p.CreatedAt.Before(c.CreatedAt) {
		return true
	}
	return p.CreatedAt.Equal(c.CreatedAt) && p.ID < c.ID
}

var errStaleVersion = errors.New("stale version")
