package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/model"
)

var errBadCredentials = fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated)

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// LocalGateway 账号存在 gorm accounts 表，会话为 HS256 JWT。
// 配置了 redis 时，登出会把令牌 jti 记入吊销列表直到令牌过期。
type LocalGateway struct {
	db     *gorm.DB
	rdb    *redis.Client
	secret []byte
	issuer string
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewLocalGateway(db *gorm.DB, rdb *redis.Client, cfg config.JWTConfig) *LocalGateway {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LocalGateway{
		db:     db,
		rdb:    rdb,
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (g *LocalGateway) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return "", apperr.Invalid("password", err.Error())
	}
	acc := model.Account{
		UID:          uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CreatedAt:    g.now().UTC(),
	}
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Account{}).Where("email = ? AND provider = ''", acc.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflictf("email %s is already registered", acc.Email)
		}
		return tx.Create(&acc).Error
	})
	if err != nil {
		return "", apperr.Upstream("identity.create_account", err)
	}
	return acc.UID, nil
}

func (g *LocalGateway) DeleteAccount(ctx context.Context, uid string) error {
	res := g.db.WithContext(ctx).Where("uid = ?", uid).Delete(&model.Account{})
	if res.Error != nil {
		return apperr.Upstream("identity.delete_account", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("account %s", uid)
	}
	return nil
}

func (g *LocalGateway) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var acc model.Account
	err := g.db.WithContext(ctx).Where("email = ? AND provider = ''", normalizeEmail(email)).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, apperr.Upstream("identity.sign_in", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, errBadCredentials
	}
	return g.issue(acc)
}

func (g *LocalGateway) SignOut(ctx context.Context, token string) error {
	c, err := g.parse(token)
	if err != nil {
		return err
	}
	if g.rdb == nil || c.ID == "" {
		return nil
	}
	ttl := time.Until(c.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := g.rdb.Set(ctx, revokedKey(c.ID), c.Subject, ttl).Err(); err != nil {
		return apperr.Upstream("identity.sign_out", err)
	}
	return nil
}

func (g *LocalGateway) Verify(ctx context.Context, token string) (string, error) {
	c, err := g.parse(token)
	if err != nil {
		return "", err
	}
	if g.rdb != nil && c.ID != "" {
		n, err := g.rdb.Exists(ctx, revokedKey(c.ID)).Result()
		if err != nil {
			return "", apperr.Upstream("identity.verify", err)
		}
		if n > 0 {
			return "", fmt.Errorf("%w: token revoked", apperr.ErrUnauthenticated)
		}
	}
	return c.Subject, nil
}

func (g *LocalGateway) LinkFederated(ctx context.Context, id FederatedIdentity) (*Session, error) {
	if id.Provider == "" || id.Subject == "" {
		return nil, apperr.Invalid("token", "missing provider or subject")
	}
	var acc model.Account
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("provider = ? AND subject = ?", id.Provider, id.Subject).First(&acc).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		acc = model.Account{
			UID:         uuid.New().String(),
			Email:       normalizeEmail(id.Email),
			DisplayName: id.Name,
			Provider:    id.Provider,
			Subject:     id.Subject,
			CreatedAt:   g.now().UTC(),
		}
		return tx.Create(&acc).Error
	})
	if err != nil {
		return nil, apperr.Upstream("identity.link_federated", err)
	}
	return g.issue(acc)
}

func (g *LocalGateway) issue(acc model.Account) (*Session, error) {
	now := g.now()
	exp := now.Add(g.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: acc.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   acc.UID,
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(g.secret)
	if err != nil {
		return nil, err
	}
	return &Session{Token: signed, Principal: acc.UID, ExpiresAt: exp.UTC()}, nil
}

func (g *LocalGateway) parse(token string) (*claims, error) {
	var c claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
		jwt.WithExpirationRequired(),
	}
	if g.issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.issuer))
	}
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return g.secret, nil }, opts...)
	if err != nil || c.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}
	return &c, nil
}

func revokedKey(jti string) string { return "revoked:" + jti }
