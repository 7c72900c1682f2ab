package ports

import (
	"context"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/pkg/config"
)

// ConfigProvider loads and manages configuration.
// Implementations: file-based with hot-reload.
type ConfigProvider interface {
	Load(ctx context.Context) (*config.Config, error)
	Watch(ctx context.Context, onChange func(*config.Config)) error
	Close() error
}

// AuthProvider resolves a bearer credential to a principal.
// Implementations: API key, JWT, anonymous.
type AuthProvider interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
}

// RuntimeInfo exposes process-wide runtime state.
type RuntimeInfo interface {
	ExecutionMode() domain.ExecutionMode
	// BaseURI is the externally visible base URI, or empty to derive it
	// from the incoming request.
	BaseURI() string
}

// StageLibrary is the catalog of stage definitions consumed by validation.
// Snapshot must return the current library; callers must not cache it
// across requests.
type StageLibrary interface {
	Snapshot() *domain.StageCatalog
}

// EventPublisher publishes pipeline lifecycle events.
// Implementations: direct (log sink).
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.LifecycleEvent) error
	Close() error
}
