// Package stagelib provides the stage library: the catalog of stage
// definitions pipelines are validated against. The built-in catalog can be
// extended or replaced by a YAML file that is reloaded when it changes.
package stagelib

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
)

// File is the on-disk stage library format.
type File struct {
	// ReplaceBuiltins drops the built-in catalog instead of extending it.
	ReplaceBuiltins bool                      `yaml:"replace_builtins"`
	Stages          []domain.StageDefinition  `yaml:"stages"`
	PipelineConfigs []domain.ConfigDefinition `yaml:"pipeline_configs"`
}

// Library implements ports.StageLibrary.
type Library struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	catalog *domain.StageCatalog
}

var _ ports.StageLibrary = (*Library)(nil)

// New creates a library from the built-in catalog plus the YAML file at path.
// An empty path yields the built-in catalog only.
func New(path string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Library{path: path, logger: logger}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewStatic creates a library over a fixed set of definitions.
func NewStatic(stages []domain.StageDefinition, pipelineConfigs []domain.ConfigDefinition) *Library {
	return &Library{
		logger:  slog.Default(),
		catalog: domain.NewStageCatalog(stages, pipelineConfigs),
	}
}

// Snapshot returns the current catalog.
func (l *Library) Snapshot() *domain.StageCatalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog
}

// Reload rebuilds the catalog from the built-ins and the library file. On
// error the previous catalog stays active.
func (l *Library) Reload() error {
	stages := builtinStages()
	pipelineConfigs := builtinPipelineConfigs()

	if l.path != "" {
		f, err := LoadFile(l.path)
		if err != nil {
			return err
		}
		if f.ReplaceBuiltins {
			stages = nil
			if len(f.PipelineConfigs) > 0 {
				pipelineConfigs = nil
			}
		}
		stages = append(stages, f.Stages...)
		pipelineConfigs = append(pipelineConfigs, f.PipelineConfigs...)
	}

	catalog := domain.NewStageCatalog(stages, pipelineConfigs)

	l.mu.Lock()
	l.catalog = catalog
	l.mu.Unlock()

	l.logger.Info("stage library loaded",
		slog.String("path", l.path),
		slog.Int("stages", catalog.Len()))
	return nil
}

// LoadFile parses a stage library file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage library %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stage library %s: %w", path, err)
	}

	for i, s := range f.Stages {
		if s.Library == "" || s.Name == "" || s.Version == "" {
			return nil, fmt.Errorf("stage library %s: stage %d needs library, name and version", path, i)
		}
		switch s.Type {
		case domain.StageTypeSource, domain.StageTypeProcessor, domain.StageTypeTarget, domain.StageTypeErrorTarget:
		default:
			return nil, fmt.Errorf("stage library %s: stage %s has unknown type %q", path, s.Name, s.Type)
		}
	}
	return &f, nil
}

// Watch reloads the library whenever its file is written. It returns once
// the watcher is running; the watcher stops when ctx is cancelled.
func (l *Library) Watch(ctx context.Context) error {
	if l.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", l.path, err)
	}

	l.logger.Info("watching stage library for changes", slog.String("path", l.path))

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Editors often save via rename, so Create counts as a change too.
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				if err := l.Reload(); err != nil {
					l.logger.Error("stage library reload failed, keeping previous catalog",
						slog.String("path", l.path),
						slog.String("error", err.Error()))
					continue
				}

				// Re-add in case an atomic save replaced the inode.
				_ = watcher.Add(l.path)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Error("stage library watch error", slog.String("error", err.Error()))
			}
		}
	}()

	return nil
}
