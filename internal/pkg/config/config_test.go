package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 8080 {
			t.Errorf("Load() port = %v, want 8080", cfg.Server.Port)
		}
		if cfg.Server.RequestTimeout != 30*time.Second {
			t.Errorf("Load() request_timeout = %v, want 30s", cfg.Server.RequestTimeout)
		}
		if cfg.Storage.Type != "memory" {
			t.Errorf("Load() storage.type = %v, want memory", cfg.Storage.Type)
		}
		if cfg.Runtime.ExecutionMode != "STANDALONE" {
			t.Errorf("Load() execution_mode = %v, want STANDALONE", cfg.Runtime.ExecutionMode)
		}
		if len(cfg.Auth.AnonymousRoles) != 1 || cfg.Auth.AnonymousRoles[0] != "ADMIN" {
			t.Errorf("Load() anonymous_roles = %v, want [ADMIN]", cfg.Auth.AnonymousRoles)
		}
	})

	t.Run("env var port override", func(t *testing.T) {
		t.Setenv("PIPELIB_SERVER__PORT", "9000")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 9000 {
			t.Errorf("Load() port = %v, want 9000", cfg.Server.Port)
		}
	})

	t.Run("file values", func(t *testing.T) {
		t.Setenv("TEST_JWT_SECRET", "s3cret")
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
runtime:
  execution_mode: SLAVE
storage:
  type: sqlite
  dsn: /tmp/pipelines.db
auth:
  mode: jwt
  jwt:
    secret: ${TEST_JWT_SECRET}
  users:
    - name: alice
      key_hash: abc
      roles: [CREATOR, MANAGER]
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Runtime.ExecutionMode != "SLAVE" {
			t.Errorf("execution_mode = %v, want SLAVE", cfg.Runtime.ExecutionMode)
		}
		if cfg.Storage.Type != "sqlite" || cfg.Storage.DSN != "/tmp/pipelines.db" {
			t.Errorf("storage = %+v", cfg.Storage)
		}
		if cfg.Auth.JWT.Secret != "s3cret" {
			t.Errorf("jwt.secret = %q, want substituted value", cfg.Auth.JWT.Secret)
		}
		if len(cfg.Auth.Users) != 1 || cfg.Auth.Users[0].Name != "alice" || len(cfg.Auth.Users[0].Roles) != 2 {
			t.Errorf("users = %+v", cfg.Auth.Users)
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load() expected error for malformed yaml")
		}
	})
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "postgres://u:${TEST_VAR}@db/pipelines",
			want:  "postgres://u:test-value@db/pipelines",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
