// Package storage selects a pipeline store implementation from configuration.
package storage

import (
	"fmt"
	"strings"

	"github.com/tjfontaine/pipeline-library/internal/core/ports"
	"github.com/tjfontaine/pipeline-library/internal/pkg/config"
	"github.com/tjfontaine/pipeline-library/internal/storage/memory"
	"github.com/tjfontaine/pipeline-library/internal/storage/sqldb"
)

// Open returns the store described by cfg. Supported types are memory,
// sqlite and postgres.
func Open(cfg config.StorageConfig) (ports.PipelineStore, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return memory.New(memory.WithOptimisticConcurrency(cfg.OptimisticConcurrency)), nil
	case "sqlite", "postgres", "postgresql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("storage.dsn required for %s storage", cfg.Type)
		}
		store, err := sqldb.New(sqldb.Config{
			Driver:                cfg.Type,
			DSN:                   cfg.DSN,
			OptimisticConcurrency: cfg.OptimisticConcurrency,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s storage: %w", cfg.Type, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
