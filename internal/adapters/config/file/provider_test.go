package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tjfontaine/pipeline-library/internal/pkg/config"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestNewProvider_EmptyPath(t *testing.T) {
	if _, err := NewProvider("", nil); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestProvider_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "runtime:\n  execution_mode: SLAVE\nserver:\n  port: 9090\n")

	p, err := NewProvider(path, nil)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	cfg, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Runtime.ExecutionMode != "SLAVE" {
		t.Errorf("execution_mode = %q, want SLAVE", cfg.Runtime.ExecutionMode)
	}
	if p.Current() != cfg {
		t.Error("Current() should return the loaded config")
	}
}

func TestProvider_LoadMissingFileUsesDefaults(t *testing.T) {
	p, _ := NewProvider(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	cfg, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Storage.Type != "memory" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestProvider_LoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server: [unterminated\n")

	p, _ := NewProvider(path, nil)
	if _, err := p.Load(context.Background()); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestProvider_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "runtime:\n  execution_mode: STANDALONE\n")

	p, _ := NewProvider(path, nil)
	if _, err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *config.Config, 4)
	if err := p.Watch(ctx, func(cfg *config.Config) { changes <- cfg }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer p.Close()

	writeConfig(t, path, "runtime:\n  execution_mode: SLAVE\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Runtime.ExecutionMode == "SLAVE" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}
