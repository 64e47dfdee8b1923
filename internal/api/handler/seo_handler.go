package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/seo"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// Healthz 健康检查
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Sitemap sitemap.xml。读文章失败时只输出静态路由。
func (h *Handler) Sitemap(c *gin.Context) {
	posts, err := h.postService.ListForSitemap(c.Request.Context())
	if err != nil {
		logger.Warn("sitemap degraded to static routes", zap.Error(err))
		posts = nil
	}
	out, err := seo.Sitemap(h.siteURL, posts, time.Now())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", out)
}

// Robots robots.txt
func (h *Handler) Robots(c *gin.Context) {
	c.String(http.StatusOK, seo.Robots(h.siteURL))
}
