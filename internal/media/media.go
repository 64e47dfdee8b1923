// Package media 图片上传前校验与媒体托管上传。
package media

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/d60-Lab/gin-blog/internal/apperr"
)

// DefaultMaxBytes 上传大小上限
const DefaultMaxBytes int64 = 5 << 20

var allowed = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Uploader 媒体托管
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// Validate 检查大小并按内容嗅探 MIME，返回识别出的类型。
func Validate(data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(data) == 0 {
		return "", apperr.Invalid("file", "empty file")
	}
	if int64(len(data)) > maxBytes {
		return "", apperr.Invalid("file", fmt.Sprintf("file exceeds %d bytes", maxBytes))
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if allowed[m.String()] {
			return m.String(), nil
		}
	}
	return "", apperr.Invalid("file", fmt.Sprintf("unsupported type %s", mt.String()))
}
