package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document 存储层返回的原始文档。Data 中的嵌套值只允许 map[string]any / []any / 标量，
// 由各存储实现在交给这里之前转换完成。
type Document struct {
	ID   string
	Data map[string]any
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// CoerceTime 把任意来源的时间值转换为 time.Time。
// 顺序：原生时间 -> 存储方时间戳对象 -> 通用解析 -> 当前时间。损坏或缺失的时间不会报错。
func CoerceTime(v any) time.Time {
	if t, ok := coerceTime(v); ok {
		return t
	}
	return time.Now().UTC()
}

func coerceTime(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return tv, !tv.IsZero()
	case *time.Time:
		if tv == nil {
			return time.Time{}, false
		}
		return *tv, !tv.IsZero()
	case interface{ Time() time.Time }:
		t := tv.Time()
		return t, !t.IsZero()
	case interface{ ToDate() time.Time }:
		t := tv.ToDate()
		return t, !t.IsZero()
	case map[string]any:
		return timestampObject(tv)
	case string:
		return parseTimeString(tv)
	case json.Number:
		if f, err := tv.Float64(); err == nil {
			return fromMillis(f)
		}
		return time.Time{}, false
	case int:
		return fromMillis(float64(tv))
	case int32:
		return fromMillis(float64(tv))
	case int64:
		return fromMillis(float64(tv))
	case uint32:
		return fromMillis(float64(tv))
	case uint64:
		return fromMillis(float64(tv))
	case float32:
		return fromMillis(float64(tv))
	case float64:
		return fromMillis(tv)
	}
	return time.Time{}, false
}

// timestampObject 识别 {seconds, nanoseconds} / {_seconds, _nanoseconds} 形式的导出时间戳。
func timestampObject(m map[string]any) (time.Time, bool) {
	for _, keys := range [][2]string{{"seconds", "nanoseconds"}, {"_seconds", "_nanoseconds"}} {
		sec, ok := number(m[keys[0]])
		if !ok {
			continue
		}
		nsec, _ := number(m[keys[1]])
		return time.Unix(int64(sec), int64(nsec)).UTC(), true
	}
	return time.Time{}, false
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromMillis(f)
	}
	return time.Time{}, false
}

// fromMillis 数字按 Unix 毫秒解释
func fromMillis(ms float64) (time.Time, bool) {
	if ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

// stringSet 把数组字段转换为 []string，非字符串元素被丢弃，缺省为空集合。
func stringSet(v any) []string {
	out := []string{}
	switch xs := v.(type) {
	case []string:
		out = append(out, xs...)
	case []any:
		for _, x := range xs {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// UserFromDocument 把原始用户文档转换为 User。
func UserFromDocument(doc Document) *User {
	d := doc.Data
	u := &User{
		UID:         doc.ID,
		Username:    str(d["username"]),
		Email:       str(d["email"]),
		DisplayName: str(d["displayName"]),
		PhotoURL:    str(d["photoURL"]),
		CreatedAt:   CoerceTime(d["createdAt"]),
	}
	if u.UID == "" {
		u.UID = str(d["uid"])
	}
	u.UsernameLower = NormalizeUsername(u.Username)
	return u
}

// PostFromDocument 把原始文章文档转换为 Post，集合字段缺省为空。
func PostFromDocument(doc Document) *Post {
	d := doc.Data
	p := &Post{
		ID:             doc.ID,
		Title:          str(d["title"]),
		Content:        str(d["content"]),
		AuthorID:       str(d["authorId"]),
		AuthorUsername: str(d["authorUsername"]),
		AuthorPhotoURL: str(d["authorPhotoURL"]),
		CreatedAt:      CoerceTime(d["createdAt"]),
		UpdatedAt:      CoerceTime(d["updatedAt"]),
		Likes:          stringSet(d["likes"]),
		Bookmarks:      stringSet(d["bookmarks"]),
		Comments:       []Comment{},
	}
	if v, ok := number(d["version"]); ok {
		p.Version = int64(v)
	}
	if raw, ok := d["comments"].([]any); ok {
		for i, c := range raw {
			m, ok := c.(map[string]any)
			if !ok {
				continue
			}
			p.Comments = append(p.Comments, CommentFromDocument(m, doc.ID, i))
		}
	}
	return p
}

// CommentFromDocument 转换内嵌评论；缺失 id 时按位置生成 comment-<index>。
func CommentFromDocument(m map[string]any, postID string, index int) Comment {
	c := Comment{
		ID:             str(m["id"]),
		PostID:         str(m["postId"]),
		AuthorID:       str(m["authorId"]),
		AuthorUsername: str(m["authorUsername"]),
		AuthorPhotoURL: str(m["authorPhotoURL"]),
		Content:        str(m["content"]),
		CreatedAt:      CoerceTime(m["createdAt"]),
		Likes:          stringSet(m["likes"]),
	}
	if c.ID == "" {
		c.ID = fmt.Sprintf("comment-%d", index)
	}
	if c.PostID == "" {
		c.PostID = postID
	}
	return c
}
