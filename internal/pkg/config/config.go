package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override file values.
// Nested keys use a double underscore, e.g. PIPELIB_STORAGE__TYPE.
const EnvPrefix = "PIPELIB_"

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Runtime      RuntimeConfig      `koanf:"runtime"`
	Storage      StorageConfig      `koanf:"storage"`
	Auth         AuthConfig         `koanf:"auth"`
	StageLibrary StageLibraryConfig `koanf:"stage_library"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// BaseURI is prefixed to Location headers. Derived from the request when empty.
	BaseURI string `koanf:"base_uri"`
}

type RuntimeConfig struct {
	ExecutionMode string `koanf:"execution_mode"` // STANDALONE, CLUSTER, SLAVE
}

type StorageConfig struct {
	Type string `koanf:"type"` // memory, sqlite, postgres
	DSN  string `koanf:"dsn"`
	// OptimisticConcurrency rejects writes whose uuid does not match the stored one.
	OptimisticConcurrency bool `koanf:"optimistic_concurrency"`
}

type AuthConfig struct {
	Mode string `koanf:"mode"` // none, apikey, jwt
	// AnonymousRoles are granted to every caller when Mode is none.
	AnonymousRoles []string     `koanf:"anonymous_roles"`
	Users          []UserConfig `koanf:"users"`
	JWT            JWTConfig    `koanf:"jwt"`
}

type UserConfig struct {
	Name    string   `koanf:"name"`
	KeyHash string   `koanf:"key_hash"`
	Roles   []string `koanf:"roles"`
}

type JWTConfig struct {
	Secret string `koanf:"secret"`
	Issuer string `koanf:"issuer"`
}

type StageLibraryConfig struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

var defaults = map[string]any{
	"server.port":            8080,
	"server.request_timeout": "30s",
	"runtime.execution_mode": "STANDALONE",
	"storage.type":           "memory",
	"auth.mode":              "none",
	"auth.anonymous_roles":   []string{"ADMIN"},
	"stage_library.watch":    true,
	"telemetry.service_name": "pipeline-library",
}

// Load reads configuration from path (a missing file is fine), then applies
// PIPELIB_ environment overrides and defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		// File not found is OK, we'll use env vars
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Secrets may reference the environment as ${VAR}
	cfg.Storage.DSN = substituteEnvVars(cfg.Storage.DSN)
	cfg.Auth.JWT.Secret = substituteEnvVars(cfg.Auth.JWT.Secret)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
