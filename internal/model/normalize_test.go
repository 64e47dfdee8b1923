package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimestamp struct{ t time.Time }

func (f fakeTimestamp) Time() time.Time { return f.t }

func TestCoerceTime(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	cases := map[string]any{
		"native":          want,
		"pointer":         &want,
		"provider object": fakeTimestamp{t: want},
		"seconds object":  map[string]any{"seconds": int64(want.Unix()), "nanoseconds": int64(0)},
		"export object":   map[string]any{"_seconds": float64(want.Unix()), "_nanoseconds": float64(0)},
		"rfc3339":         "2024-05-01T12:30:00Z",
		"date only":       "2024-05-01T12:30:00",
		"millis int64":    want.UnixMilli(),
		"millis float":    float64(want.UnixMilli()),
		"millis string":   "1714566600000",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, want.Equal(CoerceTime(in)), "got %v", CoerceTime(in))
		})
	}
}

func TestCoerceTimeFallsBackToNow(t *testing.T) {
	for _, in := range []any{nil, "not a date", time.Time{}, struct{}{}, -5, map[string]any{"x": 1}} {
		before := time.Now().UTC()
		got := CoerceTime(in)
		after := time.Now().UTC()
		assert.False(t, got.Before(before.Add(-time.Second)), "input %#v", in)
		assert.False(t, got.After(after.Add(time.Second)), "input %#v", in)
	}
}

func TestPostFromDocumentDefaultsCollections(t *testing.T) {
	p := PostFromDocument(Document{ID: "p1", Data: map[string]any{
		"title":          "Hello",
		"content":        "This is my first blog post.",
		"authorId":       "u1",
		"authorUsername": "Alice",
	}})

	require.NotNil(t, p)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Alice", p.AuthorUsername)
	assert.NotNil(t, p.Likes)
	assert.NotNil(t, p.Bookmarks)
	assert.NotNil(t, p.Comments)
	assert.Empty(t, p.Likes)
	assert.Empty(t, p.Comments)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestPostFromDocumentComments(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := PostFromDocument(Document{ID: "p1", Data: map[string]any{
		"likes": []any{"u2", 7, "u3"},
		"comments": []any{
			map[string]any{"id": "c1", "authorId": "u2", "content": "nice", "createdAt": created},
			map[string]any{"authorId": "u3", "content": "second", "createdAt": "garbage"},
			"not a comment",
		},
	}})

	assert.Equal(t, []string{"u2", "u3"}, p.Likes)
	require.Len(t, p.Comments, 2)
	assert.Equal(t, "c1", p.Comments[0].ID)
	assert.Equal(t, "p1", p.Comments[0].PostID)
	assert.True(t, created.Equal(p.Comments[0].CreatedAt))
	assert.Equal(t, "comment-1", p.Comments[1].ID)
	assert.False(t, p.Comments[1].CreatedAt.IsZero())
	assert.NotNil(t, p.Comments[1].Likes)
}

func TestUserFromDocument(t *testing.T) {
	u := UserFromDocument(Document{ID: "u1", Data: map[string]any{
		"username":  "Alice",
		"email":     "alice@example.com",
		"createdAt": "2023-09-10T08:00:00Z",
	}})

	assert.Equal(t, "u1", u.UID)
	assert.Equal(t, "Alice", u.Username)
	assert.Equal(t, "alice", u.UsernameLower)
	assert.Equal(t, 2023, u.CreatedAt.Year())
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
	assert.Equal(t, NormalizeUsername("alice"), NormalizeUsername("Alice "))
}

func TestPostNormalizeAndMembership(t *testing.T) {
	p := (&Post{Comments: []Comment{{ID: "c"}}}).Normalize()
	assert.NotNil(t, p.Likes)
	assert.NotNil(t, p.Comments[0].Likes)

	p.Likes = append(p.Likes, "u1")
	assert.True(t, p.LikedBy("u1"))
	assert.False(t, p.BookmarkedBy("u1"))
	assert.Equal(t, p.Likes, p.Members(FieldLikes))
}
