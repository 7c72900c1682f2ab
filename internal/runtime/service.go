// Package runtime provides the Service struct and lifecycle management for
// the pipeline library.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/tjfontaine/pipeline-library/internal/adapters/events/direct"
	"github.com/tjfontaine/pipeline-library/internal/api/library"
	"github.com/tjfontaine/pipeline-library/internal/api/wire"
	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
	"github.com/tjfontaine/pipeline-library/internal/pkg/config"
	"github.com/tjfontaine/pipeline-library/internal/server"
	"github.com/tjfontaine/pipeline-library/internal/stagelib"
	"github.com/tjfontaine/pipeline-library/internal/storage"
)

// Service is the main entry point for running the pipeline library.
// It manages configuration, storage, the stage catalog, and HTTP server
// lifecycle. Service can be embedded in larger applications or run standalone.
type Service struct {
	// Dependencies (injected via options)
	config      ports.ConfigProvider
	store       ports.PipelineStore
	stages      ports.StageLibrary
	events      ports.EventPublisher
	runtimeInfo ports.RuntimeInfo
	auth        authSwitch
	fixedAuth   bool

	// Hot-reloaded runtime state
	infoMu  sync.RWMutex
	mode    domain.ExecutionMode
	baseURI string

	server *server.Server
	logger *slog.Logger

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

var _ ports.RuntimeInfo = (*Service)(nil)

// New creates a new Service with the given options.
// A config provider is required; everything else defaults from config.
func New(opts ...Option) (*Service, error) {
	svc := &Service{
		logger: slog.Default(),
		mode:   domain.ModeStandalone,
	}

	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if svc.config == nil {
		return nil, fmt.Errorf("config provider required (use WithFileConfig or WithConfigProvider)")
	}
	if svc.events == nil {
		svc.logger.Info("no event publisher specified, logging lifecycle events")
		svc.events = direct.NewPublisher(svc.logger)
	}

	return svc, nil
}

// Start loads configuration, opens the store and starts the HTTP server.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("service already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	cfg, err := s.config.Load(s.ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := s.applyRuntime(cfg); err != nil {
		return err
	}
	if !s.fixedAuth {
		if err := s.auth.apply(cfg); err != nil {
			return err
		}
	}

	if s.store == nil {
		store, err := storage.Open(cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		s.store = store
	}

	if s.stages == nil {
		lib, err := stagelib.New(cfg.StageLibrary.Path, s.logger)
		if err != nil {
			return fmt.Errorf("load stage library: %w", err)
		}
		if cfg.StageLibrary.Watch {
			if err := lib.Watch(s.ctx); err != nil {
				return fmt.Errorf("watch stage library: %w", err)
			}
		}
		s.stages = lib
	}

	info := s.runtimeInfo
	if info == nil {
		info = s
	}

	srv := server.New(server.Options{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		Auth:           &s.auth,
	}, s.logger)

	srv.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		wire.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"mode":   string(info.ExecutionMode()),
		})
	})
	srv.Protected(library.BasePath, library.NewHandler(library.Config{
		Store:   s.store,
		Stages:  s.stages,
		Runtime: info,
		Events:  s.events,
		Logger:  s.logger,
	}))

	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	s.server = srv

	go s.watchConfig()

	s.logger.Info("pipeline library started",
		slog.Int("port", cfg.Server.Port),
		slog.String("mode", string(info.ExecutionMode())),
		slog.String("storage", cfg.Storage.Type),
		slog.String("auth", cfg.Auth.Mode))

	return nil
}

// Handler returns the HTTP handler, or nil before Start.
func (s *Service) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	return s.server.Router
}

// ExecutionMode implements ports.RuntimeInfo from the runtime section of
// the configuration.
func (s *Service) ExecutionMode() domain.ExecutionMode {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return s.mode
}

// BaseURI implements ports.RuntimeInfo from server.base_uri.
func (s *Service) BaseURI() string {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return s.baseURI
}

// Shutdown gracefully stops the service.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("shutting down pipeline library")

	if s.cancel != nil {
		s.cancel()
	}

	// Stop HTTP server
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			return err
		}
	}

	// Close resources
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.logger.Error("failed to close events", slog.String("error", err.Error()))
		}
	}

	if s.config != nil {
		if err := s.config.Close(); err != nil {
			s.logger.Error("failed to close config", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("pipeline library shutdown complete")
	return nil
}

func (s *Service) applyRuntime(cfg *config.Config) error {
	mode, err := domain.ParseExecutionMode(cfg.Runtime.ExecutionMode)
	if err != nil {
		return err
	}

	s.infoMu.Lock()
	s.mode = mode
	s.baseURI = cfg.Server.BaseURI
	s.infoMu.Unlock()
	return nil
}

// reload applies the parts of cfg that can change at runtime. Storage,
// port and stage library path take effect on restart.
func (s *Service) reload(cfg *config.Config) error {
	var errs []error
	if err := s.applyRuntime(cfg); err != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", err))
	}
	if !s.fixedAuth {
		if err := s.auth.apply(cfg); err != nil {
			errs = append(errs, fmt.Errorf("auth: %w", err))
		}
	}
	return errors.Join(errs...)
}

// watchConfig watches for config changes and reloads.
func (s *Service) watchConfig() {
	onChange := func(newCfg *config.Config) {
		s.logger.Info("config changed, reloading")
		if err := s.reload(newCfg); err != nil {
			s.logger.Error("failed to reload", slog.String("error", err.Error()))
			return
		}
		s.logger.Info("config reloaded", slog.String("mode", string(s.ExecutionMode())))
	}

	if err := s.config.Watch(s.ctx, onChange); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("config watch failed", slog.String("error", err.Error()))
		}
	}
}
