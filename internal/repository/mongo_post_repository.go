package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/model"
)

// MongoPostRepository 文档存储实现：集合字段使用 $addToSet / $pull / $push 原子更新。
type MongoPostRepository struct {
	posts *mongo.Collection
}

func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &MongoPostRepository{posts: db.Collection(postsCollection)}
}

func (r *MongoPostRepository) Create(ctx context.Context, post *model.Post) (string, error) {
	oid := bson.NewObjectID()
	doc := bson.M{
		"_id":            oid,
		"title":          post.Title,
		"content":        post.Content,
		"authorId":       post.AuthorID,
		"authorUsername": post.AuthorUsername,
		"authorPhotoURL": post.AuthorPhotoURL,
		"createdAt":      post.CreatedAt,
		"updatedAt":      post.UpdatedAt,
		"likes":          bson.A{},
		"bookmarks":      bson.A{},
		"comments":       bson.A{},
	}
	if _, err := r.posts.InsertOne(ctx, doc); err != nil {
		return "", apperr.Upstream("posts.create", err)
	}
	return oid.Hex(), nil
}

func (r *MongoPostRepository) Get(ctx context.Context, id string) (*model.Post, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFoundf("post %s", id)
	}
	var m bson.M
	err = r.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&m)
	if isNoDocuments(err) {
		return nil, apperr.NotFoundf("post %s", id)
	}
	if err != nil {
		return nil, apperr.Upstream("posts.get", err)
	}
	return model.PostFromDocument(toDocument(m)), nil
}

func (r *MongoPostRepository) List(ctx context.Context, q ListQuery) ([]*model.Post, error) {
	filter := bson.M{}
	if q.AuthorID != "" {
		filter["authorId"] = q.AuthorID
	}
	if q.After != nil {
		oid, err := bson.ObjectIDFromHex(q.After.ID)
		if err != nil {
			return nil, apperr.Invalid("cursor", "unknown id")
		}
		t := q.After.CreatedAt
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$lt": t}},
			bson.M{"createdAt": t, "_id": bson.M{"$lt": oid}},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Upstream("posts.list", err)
	}
	defer cur.Close(ctx)

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, apperr.Upstream("posts.list", err)
	}
	posts := make([]*model.Post, 0, len(raw))
	for _, m := range raw {
		posts = append(posts, model.PostFromDocument(toDocument(m)))
	}
	return posts, nil
}

func (r *MongoPostRepository) Update(ctx context.Context, id string, title, content *string, at time.Time) error {
	set := bson.M{"updatedAt": at}
	if title != nil {
		set["title"] = *title
	}
	if content != nil {
		set["content"] = *content
	}
	return r.updateOne(ctx, "posts.update", id, bson.M{"$set": set})
}

func (r *MongoPostRepository) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFoundf("post %s", id)
	}
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return apperr.Upstream("posts.delete", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundf("post %s", id)
	}
	return nil
}

func (r *MongoPostRepository) AddToSet(ctx context.Context, id string, field model.SetField, uid string) error {
	if err := checkSetField(field); err != nil {
		return err
	}
	return r.updateOne(ctx, "posts.add_to_set", id, bson.M{"$addToSet": bson.M{string(field): uid}})
}

func (r *MongoPostRepository) RemoveFromSet(ctx context.Context, id string, field model.SetField, uid string) error {
	if err := checkSetField(field); err != nil {
		return err
	}
	return r.updateOne(ctx, "posts.remove_from_set", id, bson.M{"$pull": bson.M{string(field): uid}})
}

func (r *MongoPostRepository) AppendComment(ctx context.Context, id string, c model.Comment) error {
	likes := c.Likes
	if likes == nil {
		likes = []string{}
	}
	doc := bson.M{
		"id":             c.ID,
		"postId":         c.PostID,
		"authorId":       c.AuthorID,
		"authorUsername": c.AuthorUsername,
		"authorPhotoURL": c.AuthorPhotoURL,
		"content":        c.Content,
		"createdAt":      c.CreatedAt,
		"likes":          likes,
	}
	return r.updateOne(ctx, "posts.append_comment", id, bson.M{"$push": bson.M{"comments": doc}})
}

func (r *MongoPostRepository) updateOne(ctx context.Context, op, id string, update bson.M) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFoundf("post %s", id)
	}
	res, err := r.posts.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return apperr.Upstream(op, err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("post %s", id)
	}
	return nil
}
