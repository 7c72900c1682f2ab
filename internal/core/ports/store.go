package ports

import (
	"context"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
)

// PipelineStore persists pipeline documents, their revision history and the
// rule documents attached to them. Implementations serialize concurrent
// writes to the same name and return *domain.APIError for not-found and
// conflict conditions.
type PipelineStore interface {
	// ListPipelines returns the info record of every stored pipeline, ordered by name.
	ListPipelines(ctx context.Context) ([]*domain.PipelineInfo, error)

	// GetInfo returns the info record of one pipeline.
	GetInfo(ctx context.Context, name string) (*domain.PipelineInfo, error)

	// GetHistory returns the revisions of a pipeline, oldest first.
	GetHistory(ctx context.Context, name string) ([]*domain.RevisionInfo, error)

	// Load returns the pipeline document at rev. Revision "0" (or "") is head.
	Load(ctx context.Context, name, rev string) (*domain.PipelineConfiguration, error)

	// Create stores an empty pipeline at revision "0". It fails with a
	// conflict if the name exists.
	Create(ctx context.Context, name, description, user string) (*domain.PipelineConfiguration, error)

	// Save stores cfg as the new head, appending a revision tagged with tag
	// and tagDescription. It returns the stored document with refreshed
	// metadata and uuid.
	Save(ctx context.Context, name, user, tag, tagDescription string, cfg *domain.PipelineConfiguration) (*domain.PipelineConfiguration, error)

	// Delete removes a pipeline and its history.
	Delete(ctx context.Context, name string) error

	// RetrieveRules returns the rule document at rev, or nil if none exists.
	RetrieveRules(ctx context.Context, name, rev string) (*domain.RuleDefinitions, error)

	// StoreRules persists a rule document at rev and returns it with a fresh uuid.
	StoreRules(ctx context.Context, name, rev string, rules *domain.RuleDefinitions) (*domain.RuleDefinitions, error)

	// DeleteRules removes every rule document of a pipeline.
	DeleteRules(ctx context.Context, name string) error

	Close() error
}
