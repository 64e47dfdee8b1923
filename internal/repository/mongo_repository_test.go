package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/model"
)

func TestPlainConvertsDriverValues(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	oid := bson.NewObjectID()
	doc := toDocument(bson.M{
		"_id":       oid.Hex(),
		"title":     "t",
		"createdAt": bson.NewDateTimeFromTime(at),
		"likes":     bson.A{"u1", "u2"},
		"comments": bson.A{
			bson.D{{Key: "id", Value: "c1"}, {Key: "content", Value: "hi"}},
		},
	})
	assert.Equal(t, oid.Hex(), doc.ID)
	_, hasID := doc.Data["_id"]
	assert.False(t, hasID)

	p := model.PostFromDocument(doc)
	assert.True(t, at.Equal(p.CreatedAt))
	assert.Equal(t, []string{"u1", "u2"}, p.Likes)
	require.Len(t, p.Comments, 1)
	assert.Equal(t, "c1", p.Comments[0].ID)
	assert.Equal(t, oid.Hex(), p.Comments[0].PostID)

	assert.Equal(t, oid.Hex(), plain(oid))
	assert.Equal(t, time.Unix(10, 0).UTC(), plain(bson.Timestamp{T: 10}))
}

// 需要副本集（事务）。未设置 MONGO_URI 时跳过。
func newMongoTestDB(t *testing.T) *mongo.Database {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("blog_test_" + bson.NewObjectID().Hex())
	require.NoError(t, EnsureMongoIndexes(ctx, db))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestMongoPostRepository(t *testing.T) {
	db := newMongoTestDB(t)
	repo := NewMongoPostRepository(db)
	ctx := context.Background()

	id := seedPost(t, repo, "u1", base)
	seedPost(t, repo, "u1", base.Add(time.Minute))

	require.NoError(t, repo.AddToSet(ctx, id, model.FieldLikes, "u2"))
	require.NoError(t, repo.AddToSet(ctx, id, model.FieldLikes, "u2"))
	require.NoError(t, repo.AppendComment(ctx, id, model.Comment{ID: "c1", PostID: id, Content: "hey", CreatedAt: base}))

	p, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, p.Likes)
	require.Len(t, p.Comments, 1)

	page, err := repo.List(ctx, ListQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	c := CursorOf(page[0])
	rest, err := repo.List(ctx, ListQuery{After: &c, Limit: 5})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, id, rest[0].ID)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMongoUserRepository(t *testing.T) {
	db := newMongoTestDB(t)
	repo := NewMongoUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Register(ctx, newUser("u1", "Grace")))
	assert.ErrorIs(t, repo.Register(ctx, newUser("u2", "grace")), apperr.ErrConflict)

	u, err := repo.GetByUsername(ctx, "GRACE")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UID)

	require.NoError(t, repo.Rename(ctx, "u1", "hopper"))
	taken, err := repo.UsernameTaken(ctx, "grace")
	require.NoError(t, err)
	assert.False(t, taken)
}
