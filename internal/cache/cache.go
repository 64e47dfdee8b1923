// Package cache 文章与用户的 redis 读缓存（cache-aside）。
// nil *Cache 等同于关闭缓存，所有方法都可以在 nil 上调用。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

const popularIndexKey = "posts:popular:keys"

type Cache struct {
	rdb        *redis.Client
	ttl        time.Duration
	popularTTL time.Duration
}

// New rdb 为 nil 时返回 nil。
func New(rdb *redis.Client, ttl, popularTTL time.Duration) *Cache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if popularTTL <= 0 {
		popularTTL = time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl, popularTTL: popularTTL}
}

func postKey(id string) string  { return fmt.Sprintf("post:%s", id) }
func popularKey(n int) string   { return fmt.Sprintf("posts:popular:%d", n) }
func userKey(uid string) string { return fmt.Sprintf("user:%s", uid) }

func (c *Cache) GetPost(ctx context.Context, id string) (*model.Post, bool) {
	if c == nil {
		return nil, false
	}
	var p model.Post
	if !c.get(ctx, postKey(id), &p) {
		return nil, false
	}
	return p.Normalize(), true
}

func (c *Cache) SetPost(ctx context.Context, p *model.Post) {
	if c == nil || p == nil {
		return
	}
	c.set(ctx, postKey(p.ID), p, c.ttl)
}

// InvalidatePost 删除单篇缓存以及所有热门列表。
func (c *Cache) InvalidatePost(ctx context.Context, id string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, postKey(id)).Err(); err != nil {
		warn("cache del failed", postKey(id), err)
	}
	c.InvalidatePopular(ctx)
}

func (c *Cache) GetPopular(ctx context.Context, n int) ([]*model.Post, bool) {
	if c == nil {
		return nil, false
	}
	var posts []*model.Post
	if !c.get(ctx, popularKey(n), &posts) {
		return nil, false
	}
	for _, p := range posts {
		p.Normalize()
	}
	return posts, true
}

func (c *Cache) SetPopular(ctx context.Context, n int, posts []*model.Post) {
	if c == nil {
		return
	}
	key := popularKey(n)
	payload, err := json.Marshal(posts)
	if err != nil {
		warn("cache encode failed", key, err)
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, payload, c.popularTTL)
	pipe.SAdd(ctx, popularIndexKey, key)
	pipe.Expire(ctx, popularIndexKey, c.popularTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		warn("cache set failed", key, err)
	}
}

func (c *Cache) InvalidatePopular(ctx context.Context) {
	if c == nil {
		return
	}
	keys, err := c.rdb.SMembers(ctx, popularIndexKey).Result()
	if err != nil {
		warn("cache smembers failed", popularIndexKey, err)
		return
	}
	keys = append(keys, popularIndexKey)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		warn("cache del failed", popularIndexKey, err)
	}
}

func (c *Cache) GetUser(ctx context.Context, uid string) (*model.User, bool) {
	if c == nil {
		return nil, false
	}
	var u model.User
	if !c.get(ctx, userKey(uid), &u) {
		return nil, false
	}
	u.UsernameLower = model.NormalizeUsername(u.Username)
	return &u, true
}

// GetUsers 批量读取，返回命中的用户和未命中的 uid（保持输入顺序）。
func (c *Cache) GetUsers(ctx context.Context, uids []string) (map[string]*model.User, []string) {
	found := make(map[string]*model.User, len(uids))
	if c == nil || len(uids) == 0 {
		return found, append([]string(nil), uids...)
	}
	keys := make([]string, len(uids))
	for i, id := range uids {
		keys[i] = userKey(id)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		warn("cache mget failed", "user:*", err)
		return found, append([]string(nil), uids...)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var u model.User
		if err := json.Unmarshal([]byte(s), &u); err == nil {
			u.UsernameLower = model.NormalizeUsername(u.Username)
			found[uids[i]] = &u
		}
	}
	missing := make([]string, 0, len(uids)-len(found))
	for _, id := range uids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return found, missing
}

func (c *Cache) SetUsers(ctx context.Context, users ...*model.User) {
	if c == nil || len(users) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for _, u := range users {
		payload, err := json.Marshal(u)
		if err != nil {
			continue
		}
		pipe.Set(ctx, userKey(u.UID), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		warn("cache set failed", "user:*", err)
	}
}

func (c *Cache) InvalidateUser(ctx context.Context, uid string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, userKey(uid)).Err(); err != nil {
		warn("cache del failed", userKey(uid), err)
	}
}

func (c *Cache) get(ctx context.Context, key string, out any) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			warn("cache get failed", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		warn("cache decode failed", key, err)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		warn("cache encode failed", key, err)
		return
	}
	if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		warn("cache set failed", key, err)
	}
}

func warn(msg, key string, err error) {
	logger.Warn(msg, zap.String("key", key), zap.Error(err))
}
