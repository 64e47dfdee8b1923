package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/d60-Lab/gin-blog/internal/model"
)

const (
	postsCollection     = "blogs"
	usersCollection     = "users"
	usernamesCollection = "usernames"
)

// toDocument 把驱动解码出的 bson 值转换为普通 map / slice，交给 model 做规范化。
func toDocument(m bson.M) model.Document {
	data, _ := plain(m).(map[string]any)
	id, _ := data["_id"].(string)
	delete(data, "_id")
	return model.Document{ID: id, Data: data}
}

func plain(v any) any {
	switch tv := v.(type) {
	case bson.M:
		out := make(map[string]any, len(tv))
		for k, x := range tv {
			out[k] = plain(x)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, x := range tv {
			out[k] = plain(x)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(tv))
		for _, e := range tv {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(tv))
		for i, x := range tv {
			out[i] = plain(x)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, x := range tv {
			out[i] = plain(x)
		}
		return out
	case bson.ObjectID:
		return tv.Hex()
	case bson.DateTime:
		return tv.Time().UTC()
	case bson.Timestamp:
		return time.Unix(int64(tv.T), 0).UTC()
	}
	return v
}

func isNoDocuments(err error) bool { return errors.Is(err, mongo.ErrNoDocuments) }

// EnsureMongoIndexes 创建列表排序和用户名查找需要的索引。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(postsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("created_desc"),
		},
		{
			Keys:    bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("author_created_desc"),
		},
	}); err != nil {
		return err
	}
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "usernameLower", Value: 1}},
		Options: options.Index().SetName("username_lower"),
	})
	return err
}
