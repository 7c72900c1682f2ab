// Package jwtauth authenticates callers with HS256-signed JWTs carrying a
// roles claim.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
	"github.com/tjfontaine/pipeline-library/internal/pkg/config"
)

// Claims are the token claims. The subject names the user.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Provider implements ports.AuthProvider for JWT bearer tokens.
type Provider struct {
	secret []byte
	issuer string
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider creates a JWT provider from the auth.jwt configuration.
func NewProvider(cfg config.JWTConfig) (*Provider, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &Provider{secret: []byte(cfg.Secret), issuer: cfg.Issuer}, nil
}

// Authenticate verifies the token signature, expiry and issuer.
func (p *Provider) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, domain.ErrAuthentication("missing bearer token")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrAuthentication("token expired").WithCause(err)
		}
		return nil, domain.ErrAuthentication("invalid token").WithCause(err)
	}
	if claims.Subject == "" {
		return nil, domain.ErrAuthentication("token has no subject")
	}

	roles, err := domain.ParseRoles(claims.Roles)
	if err != nil {
		return nil, domain.ErrAuthentication("invalid token roles").WithCause(err)
	}
	return &domain.Principal{Name: claims.Subject, Roles: roles}, nil
}

// GenerateToken mints a token for subject with the given roles. A zero ttl
// produces a token without expiry.
func GenerateToken(secret, issuer, subject string, roles []string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if _, err := domain.ParseRoles(roles); err != nil {
		return "", err
	}

	now := time.Now()
	claims := &Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
