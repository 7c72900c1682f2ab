package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tjfontaine/pipeline-library/internal/adapters/auth/anonymous"
	"github.com/tjfontaine/pipeline-library/internal/adapters/auth/apikey"
	"github.com/tjfontaine/pipeline-library/internal/adapters/auth/jwtauth"
	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
	"github.com/tjfontaine/pipeline-library/internal/pkg/config"
)

// Auth modes accepted in auth.mode.
const (
	AuthModeNone   = "none"
	AuthModeAPIKey = "apikey"
	AuthModeJWT    = "jwt"
)

// authSwitch is the provider handed to the server. The provider behind it
// is replaced when the configuration changes.
type authSwitch struct {
	mu       sync.RWMutex
	provider ports.AuthProvider
	mode     string
}

var _ ports.AuthProvider = (*authSwitch)(nil)

func (a *authSwitch) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	a.mu.RLock()
	p := a.provider
	a.mu.RUnlock()

	if p == nil {
		return nil, domain.ErrAuthentication("authentication is not configured")
	}
	return p.Authenticate(ctx, token)
}

func (a *authSwitch) set(p ports.AuthProvider) {
	a.mu.Lock()
	a.provider = p
	a.mu.Unlock()
}

// apply builds the provider for cfg. An API key provider of the same mode
// reloads its users in place.
func (a *authSwitch) apply(cfg *config.Config) error {
	mode := strings.ToLower(strings.TrimSpace(cfg.Auth.Mode))
	if mode == "" {
		mode = AuthModeNone
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.provider.(*apikey.Provider); ok && mode == a.mode {
		return existing.ReloadFromConfig(cfg)
	}

	var (
		p   ports.AuthProvider
		err error
	)
	switch mode {
	case AuthModeNone:
		p, err = anonymous.NewProvider(cfg.Auth.AnonymousRoles)
	case AuthModeAPIKey:
		p, err = apikey.NewProvider(cfg.Auth)
	case AuthModeJWT:
		p, err = jwtauth.NewProvider(cfg.Auth.JWT)
	default:
		return fmt.Errorf("unknown auth mode: %q", cfg.Auth.Mode)
	}
	if err != nil {
		return fmt.Errorf("create %s auth provider: %w", mode, err)
	}

	a.provider = p
	a.mode = mode
	return nil
}
