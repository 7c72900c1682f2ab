package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/tjfontaine/pipeline-library/internal/api/wire"
	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
)

// principalKey is the context key for the authenticated caller.
type principalKey struct{}

// AuthMiddleware resolves the caller and injects the principal into the
// request context. The credential is read from the Authorization header
// (Bearer token format) or X-API-Key; an absent credential is passed to the
// provider as the empty string so anonymous providers can admit it.
func AuthMiddleware(provider ports.AuthProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			if strings.HasPrefix(token, "Bearer ") {
				token = token[len("Bearer "):]
			}
			if token == "" {
				token = r.Header.Get("X-API-Key")
			}

			principal, err := provider.Authenticate(r.Context(), token)
			if err != nil {
				AddError(r.Context(), err)
				wire.WriteError(w, err)
				return
			}
			if principal == nil {
				wire.WriteError(w, domain.ErrAuthentication("authentication required"))
				return
			}

			AddLogField(r.Context(), "user", principal.Name)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal retrieves the principal from context.
// Returns nil if no principal is set.
func GetPrincipal(ctx context.Context) *domain.Principal {
	if p, ok := ctx.Value(principalKey{}).(*domain.Principal); ok {
		return p
	}
	return nil
}
