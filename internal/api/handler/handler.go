package handler

import (
	"github.com/d60-Lab/gin-blog/internal/media"
	"github.com/d60-Lab/gin-blog/internal/service"
)

// Handler HTTP 处理器集合
type Handler struct {
	postService service.PostService
	userService service.UserService
	uploader    media.Uploader
	maxUpload   int64
	siteURL     string
}

// Options 可选依赖。Uploader 为空时图片上传返回 502。
type Options struct {
	Uploader       media.Uploader
	MaxUploadBytes int64
	SiteURL        string
}

func NewHandler(posts service.PostService, users service.UserService, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = media.DefaultMaxBytes
	}
	return &Handler{
		postService: posts,
		userService: users,
		uploader:    opts.Uploader,
		maxUpload:   opts.MaxUploadBytes,
		siteURL:     opts.SiteURL,
	}
}
