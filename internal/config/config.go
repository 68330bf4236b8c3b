// Package config loads kanstore configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// KANSTORE_* environment variables, then command-line flags (applied by the
// caller). Validate runs last.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kanstore/internal/storage"
)

// Environment variables read by ApplyEnv.
const (
	EnvStorageBackend = "KANSTORE_STORAGE_BACKEND"
	EnvStorageURL     = "KANSTORE_STORAGE_URL"
	EnvAuthSecret     = "KANSTORE_AUTH_SECRET"
)

// Middleware names usable in StoreConfig.Middleware.
const (
	MiddlewareLogger   = "logger"
	MiddlewareDevtools = "devtools"
	MiddlewarePersist  = "persist"
)

// Log backends.
const (
	LogBackendSlog   = "slog"
	LogBackendLogrus = "logrus"
)

// Config is the complete configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	Devtools DevtoolsConfig `yaml:"devtools"`
	Stores   StoresConfig   `yaml:"stores"`
	Server   ServerConfig   `yaml:"server"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend     string        `yaml:"backend"`
	URL         string        `yaml:"url"`
	Path        string        `yaml:"path"`
	RedisURL    string        `yaml:"redis_url"`
	RedisPrefix string        `yaml:"redis_prefix"`
	AuthSecret  string        `yaml:"auth_secret"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LogConfig configures the state-change sink of the logger middleware.
type LogConfig struct {
	Level   string `yaml:"level"`
	Backend string `yaml:"backend"`
}

// DevtoolsConfig configures the inspector. An empty URL with Enabled set
// records actions in memory.
type DevtoolsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// StoresConfig holds per-store settings.
type StoresConfig struct {
	Tasks   StoreConfig `yaml:"tasks"`
	Person  StoreConfig `yaml:"person"`
	Wedding StoreConfig `yaml:"wedding"`
}

// StoreConfig configures one store's pipeline. Middleware is listed
// outermost first.
type StoreConfig struct {
	Name       string   `yaml:"name"`
	Middleware []string `yaml:"middleware"`
}

// Has reports whether the pipeline includes the named middleware.
func (s StoreConfig) Has(name string) bool {
	return slices.Contains(s.Middleware, name)
}

// ServerConfig configures `kanstore serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:     storage.BackendMemory,
			RedisPrefix: "kanstore:",
			Timeout:     10 * time.Second,
		},
		Log: LogConfig{
			Level:   "info",
			Backend: LogBackendSlog,
		},
		Stores: StoresConfig{
			Tasks: StoreConfig{
				Name:       "task-store",
				Middleware: []string{MiddlewareLogger, MiddlewareDevtools, MiddlewarePersist},
			},
			Person: StoreConfig{
				Name:       "person-storage",
				Middleware: []string{MiddlewareLogger, MiddlewareDevtools, MiddlewarePersist},
			},
			Wedding: StoreConfig{
				Name:       "wedding-store",
				Middleware: []string{MiddlewarePersist, MiddlewareDevtools},
			},
		},
		Server: ServerConfig{Addr: ":8787"},
	}
}

// Load returns the defaults overlaid with the file at path (if any) and
// the environment. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// decode overlays YAML onto cfg, rejecting unknown fields.
func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from KANSTORE_* variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvStorageBackend); v != "" {
		c.Storage.Backend = v
	}
	if v := getenv(EnvStorageURL); v != "" {
		c.Storage.URL = v
	}
	if v := getenv(EnvAuthSecret); v != "" {
		c.Storage.AuthSecret = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case storage.BackendHTTP:
		if c.Storage.URL == "" {
			errs = append(errs, errors.New("storage.url is required for the http backend"))
		}
	case storage.BackendSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the sqlite backend"))
		}
	case storage.BackendRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required for the redis backend"))
		}
	case storage.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}
	if c.Storage.Timeout < 0 {
		errs = append(errs, fmt.Errorf("storage.timeout must not be negative, got %s", c.Storage.Timeout))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Backend {
	case LogBackendSlog, LogBackendLogrus:
	default:
		errs = append(errs, fmt.Errorf("log.backend: unknown backend %q", c.Log.Backend))
	}

	for _, s := range []struct {
		key string
		cfg StoreConfig
	}{
		{"stores.tasks", c.Stores.Tasks},
		{"stores.person", c.Stores.Person},
		{"stores.wedding", c.Stores.Wedding},
	} {
		if s.cfg.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", s.key))
		}
		seen := map[string]bool{}
		for _, mw := range s.cfg.Middleware {
			switch mw {
			case MiddlewareLogger, MiddlewareDevtools, MiddlewarePersist:
			default:
				errs = append(errs, fmt.Errorf("%s.middleware: unknown middleware %q", s.key, mw))
			}
			if seen[mw] {
				errs = append(errs, fmt.Errorf("%s.middleware: %q listed twice", s.key, mw))
			}
			seen[mw] = true
		}
	}

	return errors.Join(errs...)
}

// StorageOptions converts the storage section for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:     c.Storage.Backend,
		URL:         c.Storage.URL,
		Path:        c.Storage.Path,
		RedisURL:    c.Storage.RedisURL,
		RedisPrefix: c.Storage.RedisPrefix,
		AuthSecret:  c.Storage.AuthSecret,
		Timeout:     c.Storage.Timeout,
	}
}

// ParseLevel maps a level name to one of debug, info, warn, error.
func ParseLevel(s string) (string, error) {
	switch l := strings.ToLower(strings.TrimSpace(s)); l {
	case "debug", "info", "warn", "error":
		return l, nil
	case "warning":
		return "warn", nil
	}
	return "", fmt.Errorf("log.level: unknown level %q", s)
}
