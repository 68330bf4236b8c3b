package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Backend names accepted by Open.
const (
	BackendHTTP   = "http"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Backend is a StateStorage that owns resources.
type Backend interface {
	StateStorage
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	URL         string
	Path        string
	RedisURL    string
	RedisPrefix string
	AuthSecret  string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Open builds the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Backend {
	case BackendHTTP:
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpOpts := []HTTPOption{
			WithHTTPClient(&http.Client{Timeout: timeout}),
			WithHTTPLogger(logger),
		}
		if opts.AuthSecret != "" {
			httpOpts = append(httpOpts, WithTokenSource(&JWTTokenSource{
				Secret:  []byte(opts.AuthSecret),
				Subject: "kanstore",
			}))
		}
		h, err := NewHTTP(opts.URL, httpOpts...)
		if err != nil {
			return nil, err
		}
		return h, nil

	case BackendSQLite:
		db, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil

	case BackendRedis:
		r, err := OpenRedis(ctx, opts.RedisURL, opts.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return r, nil

	case BackendMemory, "":
		return NewMemory(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
