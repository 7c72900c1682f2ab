// Package library provides the public API for embedding the pipeline
// library service.
// This is the stable API for external consumers.
package library

import (
	"github.com/tjfontaine/pipeline-library/internal/runtime"
)

// Service is the main entry point for running the pipeline library.
// See internal/runtime.Service for full documentation.
type Service = runtime.Service

// Option is a functional option for configuring a Service.
type Option = runtime.Option

// New creates a new Service with the given options.
// Example:
//
//	svc, err := library.New(
//	    library.WithFileConfig("config.yaml"),
//	    library.WithLogger(logger),
//	)
var New = runtime.New

// Configuration options
var (
	// Config sources
	WithFileConfig     = runtime.WithFileConfig
	WithConfigProvider = runtime.WithConfigProvider

	// Collaborators normally built from config
	WithStore          = runtime.WithStore
	WithStageLibrary   = runtime.WithStageLibrary
	WithAuthProvider   = runtime.WithAuthProvider
	WithEventPublisher = runtime.WithEventPublisher
	WithRuntimeInfo    = runtime.WithRuntimeInfo

	// Advanced options
	WithLogger = runtime.WithLogger
)
