package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/gin-blog/internal/apperr"
)

const (
	TitleMaxLen   = 100
	ContentMinLen = 20
	CommentMaxLen = 2000
)

// 规范化后的用户名：小写字母/数字/下划线，不以数字开头
var usernamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{2,19}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String())
	})
	return v
}

// ValidUsername 检查规范化后的用户名
func ValidUsername(normalized string) bool {
	return usernamePattern.MatchString(normalized) && !strings.Contains(normalized, "__")
}

// check 校验结构体，第一个失败字段转换为 ValidationError。
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) || len(fes) == 0 {
		return apperr.Invalid("", err.Error())
	}
	fe := fes[0]
	return apperr.Invalid(fe.Field(), reason(fe))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "username":
		return "must be 3-20 characters of a-z, 0-9 or _, not start with a digit and not contain __"
	}
	return "is invalid (" + fe.Tag() + ")"
}
