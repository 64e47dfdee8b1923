package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/apperr"
)

// CloudinaryUploader 使用 unsigned upload preset 上传图片。
type CloudinaryUploader struct {
	endpoint string
	preset   string
	client   *http.Client
}

func NewCloudinaryUploader(cfg config.MediaConfig, client *http.Client) *CloudinaryUploader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	base := strings.TrimRight(cfg.Endpoint, "/")
	return &CloudinaryUploader{
		endpoint: fmt.Sprintf("%s/%s/image/upload", base, cfg.CloudName),
		preset:   cfg.UploadPreset,
		client:   client,
	}
}

type uploadResult struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (u *CloudinaryUploader) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.WriteField("upload_preset", u.preset); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", apperr.Upstream("media.upload", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperr.Upstream("media.upload", err)
	}
	var out uploadResult
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode/100 != 2 {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", apperr.Upstream("media.upload", fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
	if out.SecureURL == "" {
		return "", apperr.Upstream("media.upload", fmt.Errorf("response has no secure_url"))
	}
	return out.SecureURL, nil
}
