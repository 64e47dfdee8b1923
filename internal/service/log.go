package service

import (
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// fail 在服务边界记录一次失败后原样返回。
// 已归类的业务错误记 info，上游错误与未归类错误记 error。
func fail(op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if errors.Is(err, apperr.ErrUpstream) || !apperr.Classified(err) {
		logger.Error("access layer failure", fields...)
	} else {
		logger.Info("access layer rejected", fields...)
	}
	return err
}
