// Package app wires the stores, their middleware, storage and bridges into
// one explicitly constructed application.
//
// Construction order:
//  1. open the storage backend
//  2. build the sink, inspector and schema validator
//  3. build each store with its configured pipeline
//  4. start the bridge graph
//  5. hydrate the wedding store, then the tasks store, then the person store
//
// Hydrating after the graph starts lets the person record flow into the
// wedding store the same way a live edit would.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/kanstore/internal/bridge"
	"github.com/roach88/kanstore/internal/config"
	"github.com/roach88/kanstore/internal/middleware"
	"github.com/roach88/kanstore/internal/person"
	"github.com/roach88/kanstore/internal/schema"
	"github.com/roach88/kanstore/internal/storage"
	"github.com/roach88/kanstore/internal/tasks"
	"github.com/roach88/kanstore/internal/wedding"
)

// Options configures New. Only Config is required.
type Options struct {
	Config *config.Config

	// Logger is the application logger. Default writes text to LogOutput.
	Logger *slog.Logger

	// LogOutput receives log and sink output. Default os.Stderr.
	LogOutput io.Writer

	// Storage overrides the configured backend. The app does not close it.
	Storage storage.StateStorage

	// Inspector overrides the configured devtools inspector.
	Inspector middleware.Inspector

	// IDs generates task ids. Default UUIDv7.
	IDs tasks.IDGenerator

	// Now seeds the default wedding date. Default time.Now.
	Now func() time.Time

	// SkipHydrate leaves every store at its default snapshot.
	SkipHydrate bool
}

// App holds the running stores.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Storage   storage.StateStorage
	Inspector middleware.Inspector

	Board   *tasks.Board
	Person  *person.Person
	Wedding *wedding.Wedding
	Graph   *bridge.Graph

	persisters []persister
	closers    []io.Closer

	// HydrateErrors holds hydration failures. Affected stores kept their
	// defaults.
	HydrateErrors []error
}

// persister is the type-erased view of a middleware.Persister.
type persister interface {
	Name() string
	Hydrate(ctx context.Context) error
	Flush(ctx context.Context) error
	Close() error
	ClearStorage(ctx context.Context) error
}

// New builds the application. On error every resource opened so far is
// released.
func New(ctx context.Context, opts Options) (a *App, err error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	level := slogLevel(cfg.Log.Level)
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	}

	a = &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
			a = nil
		}
	}()

	if opts.Storage != nil {
		a.Storage = opts.Storage
	} else {
		sopts := cfg.StorageOptions()
		sopts.Logger = logger
		backend, err := storage.Open(ctx, sopts)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.Storage = backend
		a.closers = append(a.closers, backend)
	}

	if opts.Inspector != nil {
		a.Inspector = opts.Inspector
	} else if cfg.Devtools.Enabled {
		if cfg.Devtools.URL == "" {
			a.Inspector = middleware.NewRecordingInspector()
		} else {
			ws, err := middleware.DialInspector(ctx, cfg.Devtools.URL, nil)
			if err != nil {
				return nil, err
			}
			a.Inspector = ws
			a.closers = append(a.closers, ws)
		}
	}

	validator, err := schema.New()
	if err != nil {
		return nil, fmt.Errorf("load record schema: %w", err)
	}

	sink := newSink(cfg.Log, logger, out)
	onError := func(err error) {
		logger.Warn("store error", "error", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	a.Board = tasks.NewBoard(buildTaskStore(a, cfg.Stores.Tasks, sink, validator, onError), opts.IDs)
	a.Person = person.New(buildPersonStore(a, cfg.Stores.Person, sink, validator, onError))
	a.Wedding = wedding.New(buildWeddingStore(a, cfg.Stores.Wedding, sink, validator, onError, now()))

	a.Graph = bridge.NewGraph(bridge.WithLogger(logger), bridge.WithErrorHandler(onError))
	if err := a.Graph.Add(bridge.PersonToWedding(a.Person.Store(), a.Wedding.Store())); err != nil {
		return nil, err
	}
	if err := a.Graph.Start(); err != nil {
		return nil, err
	}

	if !opts.SkipHydrate {
		a.hydrate(ctx)
	}
	return a, nil
}

// hydrate restores every persisted store. Wedding goes before person so the
// person's names, forwarded through the bridge, win.
func (a *App) hydrate(ctx context.Context) {
	order := map[string]int{
		a.Config.Stores.Wedding.Name: 0,
		a.Config.Stores.Tasks.Name:   1,
		a.Config.Stores.Person.Name:  2,
	}
	ps := make([]persister, len(a.persisters))
	copy(ps, a.persisters)
	sortByOrder(ps, order)

	for _, p := range ps {
		if err := p.Hydrate(ctx); err != nil {
			a.Logger.Warn("hydration failed, keeping default", "store", p.Name(), "error", err)
			a.HydrateErrors = append(a.HydrateErrors, err)
		}
	}
}

// Flush waits for every queued write and returns their joined errors.
func (a *App) Flush(ctx context.Context) error {
	var errs []error
	for _, p := range a.persisters {
		if err := p.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClearStorage removes every persisted record.
func (a *App) ClearStorage(ctx context.Context) error {
	var errs []error
	for _, p := range a.persisters {
		if err := p.ClearStorage(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes pending writes, stops the bridges and releases resources.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.Graph != nil {
		a.Graph.Stop()
	}
	for _, p := range a.persisters {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.persisters = nil
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RecordingInspector returns the in-memory inspector, if that is the one in
// use.
func (a *App) RecordingInspector() (*middleware.RecordingInspector, bool) {
	r, ok := a.Inspector.(*middleware.RecordingInspector)
	return r, ok
}

func newSink(cfg config.LogConfig, logger *slog.Logger, out io.Writer) middleware.Sink {
	if cfg.Backend == config.LogBackendLogrus {
		l := logrus.New()
		l.SetOutput(out)
		l.SetFormatter(&logrus.JSONFormatter{})
		if lvl, err := logrus.ParseLevel(cfg.Level); err == nil {
			l.SetLevel(lvl)
		}
		return middleware.NewLogrusSink(l, logrus.DebugLevel)
	}
	return middleware.NewSlogSink(logger, slog.LevelDebug)
}

func slogLevel(name string) slog.Level {
	level, _ := config.ParseLevel(name)
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
