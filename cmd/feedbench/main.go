package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/cache"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func report(name string, ds []time.Duration) {
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	avg := time.Duration(0)
	if len(ds) > 0 {
		avg = sum / time.Duration(len(ds))
	}
	fmt.Printf("%s: samples=%d avg=%v p95=%v p99=%v\n", name, len(ds), avg, pct(ds, 0.95), pct(ds, 0.99))
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := database.Migrate(db, true); err != nil {
		panic(err)
	}
	rdb := must(database.NewRedis(ctx, cfg.Redis))

	posts := repository.NewPostRepository(db)
	users := repository.NewUserRepository(db)
	svc := service.NewPostService(posts, users, cache.New(rdb, cfg.Redis.CacheTTL, cfg.Redis.PopularTTL))

	N := envInt("N", 2000)
	PAGES := envInt("PAGES", 50)
	SIZE := envInt("SIZE", service.DefaultPageSize)

	// 基准数据可重复：清空内容表
	_ = db.Exec("DELETE FROM posts").Error
	_ = db.Exec("DELETE FROM usernames").Error
	_ = db.Exec("DELETE FROM users").Error

	author := &model.User{UID: uuid.NewString(), Username: "bench_author", Email: "bench@example.com", CreatedAt: time.Now().UTC()}
	if err := users.Register(ctx, author); err != nil {
		panic(err)
	}

	create := make([]time.Duration, 0, N)
	for i := 0; i < N; i++ {
		st := time.Now()
		_, err := svc.Create(ctx, author.UID, service.PostInput{
			Title:   fmt.Sprintf("post %d", i),
			Content: fmt.Sprintf("benchmark content for post number %d", i),
		})
		if err != nil {
			panic(err)
		}
		create = append(create, time.Since(st))
	}

	feed := make([]time.Duration, 0, PAGES)
	cursor := ""
	for i := 0; i < PAGES; i++ {
		st := time.Now()
		page := must(svc.List(ctx, cursor, SIZE))
		feed = append(feed, time.Since(st))
		if !page.HasMore {
			cursor = ""
			continue
		}
		cursor = page.NextCursor
	}

	popular := make([]time.Duration, 0, PAGES)
	for i := 0; i < PAGES; i++ {
		st := time.Now()
		_ = must(svc.MostPopular(ctx, 10))
		popular = append(popular, time.Since(st))
	}

	fmt.Printf("driver=%s N=%d PAGES=%d SIZE=%d cache=%v\n", cfg.Database.Driver, N, PAGES, SIZE, rdb != nil)
	report("Create", create)
	report("Feed page (keyset)", feed)
	report("MostPopular", popular)
}
