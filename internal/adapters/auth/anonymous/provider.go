// Package anonymous admits every caller as a fixed principal. It backs the
// "none" auth mode.
package anonymous

import (
	"context"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
)

// Name is the principal name reported for anonymous callers.
const Name = "anonymous"

// Provider implements ports.AuthProvider without checking credentials.
type Provider struct {
	roles []domain.Role
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider grants roles to every caller.
func NewProvider(roles []string) (*Provider, error) {
	parsed, err := domain.ParseRoles(roles)
	if err != nil {
		return nil, err
	}
	return &Provider{roles: parsed}, nil
}

// Authenticate ignores the token.
func (p *Provider) Authenticate(context.Context, string) (*domain.Principal, error) {
	return &domain.Principal{Name: Name, Roles: append([]domain.Role(nil), p.roles...)}, nil
}
