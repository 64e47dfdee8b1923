package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/api/handler"
	"github.com/d60-Lab/gin-blog/internal/api/middleware"
)

// NewRouter 组装中间件与路由。写操作要求登录，读操作匿名可用。
func NewRouter(h *handler.Handler, verifier middleware.Verifier, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.AccessLog())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", h.Healthz)
	r.GET("/sitemap.xml", h.Sitemap)
	r.GET("/robots.txt", h.Robots)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
	v1.Use(middleware.Principal(verifier))
	auth := middleware.RequireAuth()

	{
		g := v1.Group("/auth")
		g.POST("/register", h.Register)
		g.POST("/login", h.Login)
		g.POST("/federated", h.Federated)
		g.GET("/username/check", h.CheckUsername)
		g.POST("/logout", auth, h.Logout)
	}

	{
		g := v1.Group("/posts")
		g.GET("", h.ListPosts)
		g.GET("/popular", h.PopularPosts)
		g.GET("/:id", h.GetPost)
		g.POST("", auth, h.CreatePost)
		g.PUT("/:id", auth, h.UpdatePost)
		g.DELETE("/:id", auth, h.DeletePost)
		g.POST("/:id/like", auth, h.ToggleLike)
		g.POST("/:id/bookmark", auth, h.ToggleBookmark)
		g.POST("/:id/comments", auth, h.AddComment)
	}

	v1.GET("/users/:username", h.GetProfile)

	{
		g := v1.Group("/me", auth)
		g.GET("", h.Me)
		g.PATCH("", h.UpdateMe)
		g.PUT("/username", h.RenameMe)
		g.GET("/bookmarks", h.MyBookmarks)
	}

	v1.POST("/media/images", auth, h.UploadImage)

	return r
}
