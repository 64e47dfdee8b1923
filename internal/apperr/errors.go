// Package apperr 定义访问层统一的错误分类。
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 引用的用户或文章不存在
	ErrNotFound = errors.New("not found")
	// ErrConflict 用户名或邮箱已被占用
	ErrConflict = errors.New("conflict")
	// ErrValidation 输入在访问存储前即被拒绝
	ErrValidation = errors.New("validation failed")
	// ErrUpstream 文档存储 / 身份网关 / 媒体服务调用失败
	ErrUpstream = errors.New("upstream unavailable")
	// ErrForbidden 非作者修改或删除文章
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated 缺少或无效的身份凭证
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError 描述单个字段的校验失败，errors.Is(err, ErrValidation) 为 true。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid 构造 ValidationError。
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type upstreamError struct {
	op  string
	err error
}

func (e *upstreamError) Error() string { return fmt.Sprintf("%s: %v", e.op, e.err) }

func (e *upstreamError) Unwrap() []error { return []error{ErrUpstream, e.err} }

// Upstream 包装外部依赖的失败。已经归类的错误（NotFound、Conflict 等）原样返回。
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return &upstreamError{op: op, err: err}
}

// NotFoundf 返回匹配 ErrNotFound 的错误。
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf 返回匹配 ErrConflict 的错误。
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Classified 报告 err 是否已经属于某个分类。
func Classified(err error) bool {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrUpstream, ErrForbidden, ErrUnauthenticated} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
