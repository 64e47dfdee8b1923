package handler

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeUploader struct {
	name string
	err  error
}

func (u *fakeUploader) Upload(_ context.Context, filename string, _ []byte) (string, error) {
	u.name = filename
	if u.err != nil {
		return "", u.err
	}
	return "https://cdn.example.com/" + filename, nil
}

// brokenPosts 只实现站点地图用到的方法
type brokenPosts struct{ service.PostService }

func (brokenPosts) ListForSitemap(context.Context) ([]*model.Post, error) {
	return nil, apperr.Upstream("posts.sitemap", errors.New("store down"))
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func upload(t *testing.T, h *Handler, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/upload", h.UploadImage)
	body, ct := multipartBody(t, filename, data)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadImage(t *testing.T) {
	up := &fakeUploader{}
	h := NewHandler(nil, nil, Options{Uploader: up})

	w := upload(t, h, "../../avatar.png", pngBytes(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "https://cdn.example.com/avatar.png")
	assert.Equal(t, "avatar.png", up.name)
}

func TestUploadImageRejectsNonImage(t *testing.T) {
	h := NewHandler(nil, nil, Options{Uploader: &fakeUploader{}})
	w := upload(t, h, "notes.txt", []byte("just some plain text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadImageTooLarge(t *testing.T) {
	img := pngBytes(t)
	h := NewHandler(nil, nil, Options{Uploader: &fakeUploader{}, MaxUploadBytes: int64(len(img) - 1)})
	w := upload(t, h, "a.png", img)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadImageUpstreamFailure(t *testing.T) {
	w := upload(t, NewHandler(nil, nil, Options{}), "a.png", pngBytes(t))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	failing := &fakeUploader{err: apperr.Upstream("media.upload", errors.New("503"))}
	w = upload(t, NewHandler(nil, nil, Options{Uploader: failing}), "a.png", pngBytes(t))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSitemapFallsBackToStaticRoutes(t *testing.T) {
	h := NewHandler(brokenPosts{}, nil, Options{SiteURL: "https://blog.example.com"})
	r := gin.New()
	r.GET("/sitemap.xml", h.Sitemap)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<loc>https://blog.example.com/landing</loc>")
	assert.NotContains(t, w.Body.String(), "/blog/")
}
