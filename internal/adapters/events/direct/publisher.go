// Package direct provides an event publisher that writes lifecycle events
// to the structured log.
package direct

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
)

// Publisher implements ports.EventPublisher by logging each event.
// This is the default implementation for single-instance deployments.
type Publisher struct {
	logger *slog.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a new direct event publisher.
func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{logger: logger}
}

// Publish logs a lifecycle event.
func (p *Publisher) Publish(ctx context.Context, event *domain.LifecycleEvent) error {
	if event == nil {
		return nil
	}

	attrs := []slog.Attr{
		slog.String("event", string(event.Type)),
		slog.String("pipeline", event.Pipeline),
		slog.String("user", event.User),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.Rev != "" {
		attrs = append(attrs, slog.String("rev", event.Rev))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}

	p.logger.LogAttrs(ctx, slog.LevelInfo, "pipeline lifecycle event", attrs...)
	return nil
}

// Close is a no-op for direct publisher.
func (p *Publisher) Close() error {
	return nil
}
