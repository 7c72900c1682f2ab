// Package apikey provides API key-based authentication.
package apikey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
	"github.com/tjfontaine/pipeline-library/internal/pkg/config"
)

// Provider implements ports.AuthProvider using hashed API keys from the
// auth.users configuration.
type Provider struct {
	mu    sync.RWMutex
	users map[string]*domain.Principal // keyHash -> principal
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider creates a new API key auth provider.
func NewProvider(cfg config.AuthConfig) (*Provider, error) {
	p := &Provider{}
	if err := p.loadUsers(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Authenticate validates an API key and returns its user.
func (p *Provider) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, domain.ErrAuthentication("missing API key")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	principal, ok := p.users[HashAPIKey(token)]
	if !ok {
		return nil, domain.ErrAuthentication("invalid API key")
	}

	// Hand out a copy so callers cannot edit the table.
	return &domain.Principal{
		Name:  principal.Name,
		Roles: append([]domain.Role(nil), principal.Roles...),
	}, nil
}

// loadUsers rebuilds the key table. The previous table is kept on error.
func (p *Provider) loadUsers(cfg config.AuthConfig) error {
	users := make(map[string]*domain.Principal, len(cfg.Users))
	for _, u := range cfg.Users {
		if u.Name == "" || u.KeyHash == "" {
			return fmt.Errorf("auth user needs name and key_hash")
		}
		roles, err := domain.ParseRoles(u.Roles)
		if err != nil {
			return fmt.Errorf("user %s: %w", u.Name, err)
		}
		if _, dup := users[u.KeyHash]; dup {
			return fmt.Errorf("user %s: key_hash is already assigned", u.Name)
		}
		users[u.KeyHash] = &domain.Principal{Name: u.Name, Roles: roles}
	}

	p.mu.Lock()
	p.users = users
	p.mu.Unlock()
	return nil
}

// ReloadFromConfig reloads users from new configuration.
// This is called by the service when config changes.
func (p *Provider) ReloadFromConfig(cfg *config.Config) error {
	return p.loadUsers(cfg.Auth)
}

// HashAPIKey creates a SHA-256 hash of an API key for storage.
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
