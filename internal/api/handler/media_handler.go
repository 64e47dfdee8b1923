package handler

import (
	"errors"
	"io"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/media"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

var errNoUploader = errors.New("media host is not configured")

// UploadImage 上传图片，返回托管方 URL
// @Summary 上传图片
// @Tags 媒体
// @Security BearerAuth
// @Accept multipart/form-data
// @Param file formData file true "图片 JPEG/PNG/GIF/WebP，最大 5MB"
// @Success 201 {object} response.Response{data=map[string]string}
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v1/media/images [post]
func (h *Handler) UploadImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fh.Size > h.maxUpload {
		response.Error(c, apperr.Invalid("file", "file is too large"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if _, err := media.Validate(data, h.maxUpload); err != nil {
		response.Error(c, err)
		return
	}
	if h.uploader == nil {
		response.Error(c, apperr.Upstream("media.upload", errNoUploader))
		return
	}
	url, err := h.uploader.Upload(c.Request.Context(), filepath.Base(fh.Filename), data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"url": url})
}
