// pipeline-library serves the /v1/pipeline-library HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tjfontaine/pipeline-library/internal/pkg/config"
	"github.com/tjfontaine/pipeline-library/internal/telemetry"
	"github.com/tjfontaine/pipeline-library/pkg/library"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	configPath  string
	logLevel    slog.Level
	showVersion bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Println("pipeline-library", version)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var (
		opts     options
		logLevel string
	)

	flagSet := pflag.NewFlagSet("pipeline-library", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML config file (watched for changes)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print the version and exit")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if err := opts.logLevel.UnmarshalText([]byte(strings.ToLower(logLevel))); err != nil {
		return options{}, fmt.Errorf("invalid --log-level %q", logLevel)
	}
	return opts, nil
}

func run(opts options) error {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: opts.logLevel,
	}))
	slog.SetDefault(logger)

	// Telemetry is not hot-reloaded, so read it once here.
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	svc, err := library.New(
		library.WithLogger(logger),
		library.WithFileConfig(opts.configPath),
	)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping pipeline library")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return svc.Shutdown(shutdownCtx)
}
