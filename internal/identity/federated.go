package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/apperr"
)

type idTokenClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// FederatedVerifier 校验外部签发的 HS256 ID token。
type FederatedVerifier struct {
	issuer string
	secret []byte
}

func NewFederatedVerifier(cfg config.FederatedConfig) *FederatedVerifier {
	return &FederatedVerifier{issuer: cfg.Issuer, secret: []byte(cfg.Secret)}
}

func (v *FederatedVerifier) Verify(idToken string) (FederatedIdentity, error) {
	if len(v.secret) == 0 {
		return FederatedIdentity{}, fmt.Errorf("%w: federated sign-in is not configured", apperr.ErrUnauthenticated)
	}
	var c idTokenClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if _, err := jwt.ParseWithClaims(idToken, &c, func(*jwt.Token) (any, error) { return v.secret, nil }, opts...); err != nil {
		return FederatedIdentity{}, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	if c.Subject == "" {
		return FederatedIdentity{}, fmt.Errorf("%w: id token has no subject", apperr.ErrUnauthenticated)
	}
	return FederatedIdentity{
		Provider: c.Issuer,
		Subject:  c.Subject,
		Email:    c.Email,
		Name:     c.Name,
		Picture:  c.Picture,
	}, nil
}
