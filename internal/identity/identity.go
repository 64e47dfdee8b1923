// Package identity 身份网关：账号、会话令牌与联合登录。
// 核心只关心网关返回的 principal（uid）。
package identity

import (
	"context"
	"time"
)

// Session 登录会话
type Session struct {
	Token     string    `json:"token"`
	Principal string    `json:"uid"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FederatedIdentity 外部身份提供方校验后的身份信息
type FederatedIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Picture  string
}

type Gateway interface {
	// CreateAccount 创建账号并返回新 uid，邮箱已注册时返回 Conflict。
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)
	// DeleteAccount 删除账号，注册补偿时使用。
	DeleteAccount(ctx context.Context, uid string) error
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	// Verify 校验令牌，返回 principal。
	Verify(ctx context.Context, token string) (string, error)
	// LinkFederated 找到或创建与外部身份关联的账号并签发会话。
	LinkFederated(ctx context.Context, id FederatedIdentity) (*Session, error)
}
