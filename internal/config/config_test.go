package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kanstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 10*time.Second, cfg.Storage.Timeout)
	assert.True(t, cfg.Stores.Tasks.Has(MiddlewarePersist))
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: sqlite
  path: /tmp/kanstore.db
  timeout: 3s
log:
  level: debug
  backend: logrus
stores:
  wedding:
    middleware: [devtools]
`)
	t.Setenv(EnvStorageBackend, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/kanstore.db", cfg.Storage.Path)
	assert.Equal(t, 3*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, "kanstore:", cfg.Storage.RedisPrefix, "unset fields keep defaults")
	assert.Equal(t, "logrus", cfg.Log.Backend)
	assert.Equal(t, []string{"devtools"}, cfg.Stores.Wedding.Middleware)
	assert.Equal(t, "wedding-store", cfg.Stores.Wedding.Name)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Stores, cfg.Stores)
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  backnd: http\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backnd")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(envMap(map[string]string{
		EnvStorageBackend: "http",
		EnvStorageURL:     "https://example.test/db",
		EnvAuthSecret:     "s3cret",
	}))

	require.NoError(t, cfg.Validate())
	opts := cfg.StorageOptions()
	assert.Equal(t, "http", opts.Backend)
	assert.Equal(t, "https://example.test/db", opts.URL)
	assert.Equal(t, "s3cret", opts.AuthSecret)
}

func TestApplyEnv_UnsetKeepsFile(t *testing.T) {
	cfg := Default()
	cfg.Storage.URL = "https://file.test"
	cfg.ApplyEnv(envMap(nil))
	assert.Equal(t, "https://file.test", cfg.Storage.URL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"http without url", func(c *Config) { c.Storage.Backend = "http" }, "storage.url is required"},
		{"sqlite without path", func(c *Config) { c.Storage.Backend = "sqlite" }, "storage.path is required"},
		{"redis without url", func(c *Config) { c.Storage.Backend = "redis" }, "storage.redis_url is required"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "firebase" }, `unknown backend "firebase"`},
		{"negative timeout", func(c *Config) { c.Storage.Timeout = -time.Second }, "must not be negative"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, `unknown level "loud"`},
		{"bad log backend", func(c *Config) { c.Log.Backend = "zap" }, `unknown backend "zap"`},
		{"missing store name", func(c *Config) { c.Stores.Person.Name = "" }, "stores.person.name is required"},
		{"unknown middleware", func(c *Config) { c.Stores.Tasks.Middleware = []string{"immer"} }, `unknown middleware "immer"`},
		{"duplicate middleware", func(c *Config) {
			c.Stores.Tasks.Middleware = []string{"persist", "persist"}
		}, `"persist" listed twice`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel(" WARNING ")
	require.NoError(t, err)
	assert.Equal(t, "warn", l)
}
