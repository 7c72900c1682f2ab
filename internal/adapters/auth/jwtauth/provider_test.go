package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/pkg/config"
)

const testSecret = "test-secret-key-that-is-long-enough"

func TestNewProvider_RequiresSecret(t *testing.T) {
	_, err := NewProvider(config.JWTConfig{})
	assert.Error(t, err)
}

func TestGenerateToken_Claims(t *testing.T) {
	token, err := GenerateToken(testSecret, "pipeline-library", "alice", []string{"ADMIN"}, 24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(*Claims)
	require.True(t, ok)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "pipeline-library", claims.Issuer)
	assert.Equal(t, []string{"ADMIN"}, claims.Roles)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestGenerateToken_RejectsUnknownRole(t *testing.T) {
	_, err := GenerateToken(testSecret, "", "alice", []string{"ROOT"}, 0)
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	p, err := NewProvider(config.JWTConfig{Secret: testSecret, Issuer: "pipeline-library"})
	require.NoError(t, err)

	valid, _ := GenerateToken(testSecret, "pipeline-library", "carol", []string{"creator", "MANAGER"}, time.Hour)
	wrongSecret, _ := GenerateToken("different-secret-key-that-is-wrong", "pipeline-library", "carol", nil, time.Hour)
	wrongIssuer, _ := GenerateToken(testSecret, "someone-else", "carol", nil, time.Hour)
	noSubject, _ := GenerateToken(testSecret, "pipeline-library", "", nil, time.Hour)

	expiredClaims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "carol",
			Issuer:    "pipeline-library",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte(testSecret))

	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "mallory", Issuer: "pipeline-library"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", valid, false},
		{"empty", "", true},
		{"garbage", "not.a.token", true},
		{"wrong secret", wrongSecret, true},
		{"wrong issuer", wrongIssuer, true},
		{"no subject", noSubject, true},
		{"expired", expired, true},
		{"alg none", noneAlg, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Authenticate(context.Background(), tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, 401, domain.AsAPIError(err).HTTPStatusCode())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "carol", got.Name)
			assert.True(t, got.HasAnyRole(domain.RoleCreator))
			assert.True(t, got.HasAnyRole(domain.RoleManager))
			assert.False(t, got.HasAnyRole(domain.RoleAdmin))
		})
	}
}
