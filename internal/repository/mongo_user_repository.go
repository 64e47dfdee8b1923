package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/model"
)

// MongoUserRepository 文档存储实现。usernames 集合以规范化用户名为 _id，
// 注册与改名在同一个会话事务内完成预留和资料写入。
type MongoUserRepository struct {
	client    *mongo.Client
	users     *mongo.Collection
	usernames *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &MongoUserRepository{
		client:    db.Client(),
		users:     db.Collection(usersCollection),
		usernames: db.Collection(usernamesCollection),
	}
}

func (r *MongoUserRepository) Get(ctx context.Context, uid string) (*model.User, error) {
	return r.findOne(ctx, "users.get", bson.M{"_id": uid}, uid)
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	n := model.NormalizeUsername(username)
	return r.findOne(ctx, "users.get_by_username", bson.M{"usernameLower": n}, n)
}

func (r *MongoUserRepository) findOne(ctx context.Context, op string, filter bson.M, key string) (*model.User, error) {
	var m bson.M
	err := r.users.FindOne(ctx, filter).Decode(&m)
	if isNoDocuments(err) {
		return nil, apperr.NotFoundf("user %q", key)
	}
	if err != nil {
		return nil, apperr.Upstream(op, err)
	}
	return model.UserFromDocument(toDocument(m)), nil
}

func (r *MongoUserRepository) GetMany(ctx context.Context, uids []string) ([]*model.User, error) {
	if len(uids) == 0 {
		return []*model.User{}, nil
	}
	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": uids}})
	if err != nil {
		return nil, apperr.Upstream("users.get_many", err)
	}
	defer cur.Close(ctx)
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, apperr.Upstream("users.get_many", err)
	}
	users := make([]*model.User, 0, len(raw))
	for _, m := range raw {
		users = append(users, model.UserFromDocument(toDocument(m)))
	}
	return users, nil
}

func (r *MongoUserRepository) UsernameTaken(ctx context.Context, normalized string) (bool, error) {
	n, err := r.usernames.CountDocuments(ctx, bson.M{"_id": normalized})
	if err != nil {
		return false, apperr.Upstream("users.username_taken", err)
	}
	if n > 0 {
		return true, nil
	}
	n, err = r.users.CountDocuments(ctx, bson.M{"usernameLower": normalized})
	if err != nil {
		return false, apperr.Upstream("users.username_taken", err)
	}
	return n > 0, nil
}

func (r *MongoUserRepository) Register(ctx context.Context, user *model.User) error {
	user.UsernameLower = model.NormalizeUsername(user.Username)
	err := r.inTransaction(ctx, func(ctx context.Context) error {
		if err := r.reserve(ctx, user.UsernameLower, user.UID, user.Username); err != nil {
			return err
		}
		_, err := r.users.InsertOne(ctx, bson.M{
			"_id":           user.UID,
			"username":      user.Username,
			"usernameLower": user.UsernameLower,
			"email":         user.Email,
			"displayName":   user.DisplayName,
			"photoURL":      user.PhotoURL,
			"createdAt":     user.CreatedAt,
		})
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflictf("user %s already exists", user.UID)
		}
		return err
	})
	return apperr.Upstream("users.register", err)
}

func (r *MongoUserRepository) Rename(ctx context.Context, uid, username string) error {
	n := model.NormalizeUsername(username)
	err := r.inTransaction(ctx, func(ctx context.Context) error {
		var m bson.M
		err := r.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&m)
		if isNoDocuments(err) {
			return apperr.NotFoundf("user %s", uid)
		}
		if err != nil {
			return err
		}
		current := model.UserFromDocument(toDocument(m))
		if n != current.UsernameLower {
			if err := r.reserve(ctx, n, uid, username); err != nil {
				return err
			}
			if _, err := r.usernames.DeleteOne(ctx, bson.M{"_id": current.UsernameLower, "uid": uid}); err != nil {
				return err
			}
		}
		_, err = r.users.UpdateOne(ctx, bson.M{"_id": uid},
			bson.M{"$set": bson.M{"username": username, "usernameLower": n}})
		return err
	})
	return apperr.Upstream("users.rename", err)
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, uid string, upd model.ProfileUpdate) error {
	set := bson.M{}
	if upd.DisplayName != nil {
		set["displayName"] = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		set["photoURL"] = *upd.PhotoURL
	}
	if len(set) == 0 {
		_, err := r.Get(ctx, uid)
		return err
	}
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": set})
	if err != nil {
		return apperr.Upstream("users.update_profile", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("user %s", uid)
	}
	return nil
}

// reserve 插入预留文档，_id 重复即被占用
func (r *MongoUserRepository) reserve(ctx context.Context, normalized, uid, display string) error {
	_, err := r.usernames.InsertOne(ctx, bson.M{
		"_id":        normalized,
		"uid":        uid,
		"username":   display,
		"reservedAt": time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflictf("username %q is already taken", normalized)
	}
	return err
}

func (r *MongoUserRepository) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}
