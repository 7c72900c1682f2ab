package runtime

import (
	"fmt"
	"log/slog"

	"github.com/tjfontaine/pipeline-library/internal/adapters/config/file"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
)

// Option is a functional option for configuring a Service.
type Option func(*Service) error

// WithFileConfig uses file-based configuration with hot-reload (default).
// The path should point to a config.yaml file that will be watched for changes.
func WithFileConfig(path string) Option {
	return func(s *Service) error {
		provider, err := file.NewProvider(path, s.logger)
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		s.config = provider
		return nil
	}
}

// WithConfigProvider sets a custom config provider.
// For advanced use cases where you need full control over config loading.
func WithConfigProvider(provider ports.ConfigProvider) Option {
	return func(s *Service) error {
		s.config = provider
		return nil
	}
}

// WithStore sets the pipeline store instead of opening one from the
// storage section of the configuration. The service closes it on shutdown.
func WithStore(store ports.PipelineStore) Option {
	return func(s *Service) error {
		s.store = store
		return nil
	}
}

// WithStageLibrary sets the stage catalog instead of building one from the
// stage_library section of the configuration.
func WithStageLibrary(stages ports.StageLibrary) Option {
	return func(s *Service) error {
		s.stages = stages
		return nil
	}
}

// WithAuthProvider sets a custom auth provider. It disables the auth
// section of the configuration, including hot-reload of users.
func WithAuthProvider(provider ports.AuthProvider) Option {
	return func(s *Service) error {
		s.auth.set(provider)
		s.fixedAuth = true
		return nil
	}
}

// WithEventPublisher sets a custom event publisher.
func WithEventPublisher(publisher ports.EventPublisher) Option {
	return func(s *Service) error {
		s.events = publisher
		return nil
	}
}

// WithRuntimeInfo overrides the execution mode and base URI taken from the
// configuration.
func WithRuntimeInfo(info ports.RuntimeInfo) Option {
	return func(s *Service) error {
		s.runtimeInfo = info
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}
