// @title gin-blog API
// @version 1.0
// @description Blog posts, profiles, likes, bookmarks and comments.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/config"
	_ "github.com/d60-Lab/gin-blog/docs"
	"github.com/d60-Lab/gin-blog/internal/api"
	"github.com/d60-Lab/gin-blog/internal/api/handler"
	"github.com/d60-Lab/gin-blog/internal/cache"
	"github.com/d60-Lab/gin-blog/internal/identity"
	"github.com/d60-Lab/gin-blog/internal/media"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/database"
	"github.com/d60-Lab/gin-blog/pkg/logger"
	"github.com/d60-Lab/gin-blog/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			AttachStacktrace: true,
		}); err != nil {
			return fmt.Errorf("sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	// 身份账号始终在 gorm 库；内容按 driver 选择 mongo 或 gorm
	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	useMongo := cfg.Database.Driver == "mongo"
	if err := database.Migrate(db, !useMongo); err != nil {
		return err
	}

	var (
		posts repository.PostRepository
		users repository.UserRepository
	)
	if useMongo {
		client, mdb, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		if err := repository.EnsureMongoIndexes(ctx, mdb); err != nil {
			return err
		}
		posts = repository.NewMongoPostRepository(mdb)
		users = repository.NewMongoUserRepository(mdb)
	} else {
		posts = repository.NewPostRepository(db)
		users = repository.NewUserRepository(db)
	}

	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, running without cache", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer func(c *redis.Client) { _ = c.Close() }(rdb)
	}
	c := cache.New(rdb, cfg.Redis.CacheTTL, cfg.Redis.PopularTTL)

	gateway := identity.NewLocalGateway(db, rdb, cfg.JWT)
	reaper := service.NewAccountReaper(gateway, 256)
	stopReaper := reaper.Start(2)
	defer stopReaper(context.Background())

	var uploader media.Uploader
	if cfg.Media.CloudName != "" {
		uploader = media.NewCloudinaryUploader(cfg.Media, &http.Client{Timeout: 30 * time.Second})
	}

	postService := service.NewPostService(posts, users, c)
	userService := service.NewUserService(service.UserDeps{
		Users:            users,
		Posts:            posts,
		Gateway:          gateway,
		Verifier:         identity.NewFederatedVerifier(cfg.Federated),
		Cache:            c,
		Reaper:           reaper,
		DefaultAvatarURL: cfg.Site.DefaultAvatarURL,
	})

	gin.SetMode(cfg.Server.Mode)
	h := handler.NewHandler(postService, userService, handler.Options{
		Uploader:       uploader,
		MaxUploadBytes: cfg.Media.MaxBytes,
		SiteURL:        cfg.Site.BaseURL,
	})
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(h, gateway, cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
