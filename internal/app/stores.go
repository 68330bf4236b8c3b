package app

import (
	"slices"
	"time"

	"github.com/roach88/kanstore/internal/config"
	"github.com/roach88/kanstore/internal/middleware"
	"github.com/roach88/kanstore/internal/person"
	"github.com/roach88/kanstore/internal/reactive"
	"github.com/roach88/kanstore/internal/schema"
	"github.com/roach88/kanstore/internal/tasks"
	"github.com/roach88/kanstore/internal/wedding"
)

// pipeline orders the available middleware as sc lists them. Entries with
// no middleware are skipped.
func pipeline[S any](sc config.StoreConfig, available map[string]reactive.Middleware[S]) []reactive.Middleware[S] {
	var out []reactive.Middleware[S]
	for _, name := range sc.Middleware {
		if mw := available[name]; mw != nil {
			out = append(out, mw)
		}
	}
	return out
}

// recordValidator validates against record regardless of the storage key,
// so renamed stores keep their schema.
func recordValidator(v *schema.Validator, record string) func(string, []byte) error {
	return func(_ string, data []byte) error {
		return v.Validate(record, data)
	}
}

func (a *App) devtools(name string) bool {
	return a.Inspector != nil && name != ""
}

func buildTaskStore(a *App, sc config.StoreConfig, sink middleware.Sink, v *schema.Validator, onError func(error)) *reactive.Store[tasks.State] {
	available := map[string]reactive.Middleware[tasks.State]{
		config.MiddlewareLogger: middleware.Logger[tasks.State](sink, sc.Name),
	}
	if a.devtools(sc.Name) {
		available[config.MiddlewareDevtools] = middleware.Devtools[tasks.State](a.Inspector, sc.Name)
	}
	if sc.Has(config.MiddlewarePersist) {
		p := middleware.Persist(middleware.PersistConfig[tasks.State, tasks.Record]{
			Name:       sc.Name,
			Storage:    a.Storage,
			Partialize: tasks.Partialize,
			Merge:      tasks.Merge,
			Validate:   recordValidator(v, tasks.StoreName),
			Logger:     a.Logger,
			OnError:    onError,
		})
		available[config.MiddlewarePersist] = p
		a.persisters = append(a.persisters, p)
	}
	return tasks.NewStore(tasks.DefaultState(), pipeline(sc, available),
		reactive.WithName[tasks.State](sc.Name),
		reactive.WithLogger[tasks.State](a.Logger),
		reactive.WithErrorHandler[tasks.State](onError))
}

func buildPersonStore(a *App, sc config.StoreConfig, sink middleware.Sink, v *schema.Validator, onError func(error)) *reactive.Store[person.State] {
	available := map[string]reactive.Middleware[person.State]{
		config.MiddlewareLogger: middleware.Logger[person.State](sink, sc.Name),
	}
	if a.devtools(sc.Name) {
		available[config.MiddlewareDevtools] = middleware.Devtools[person.State](a.Inspector, sc.Name)
	}
	if sc.Has(config.MiddlewarePersist) {
		p := middleware.Persist(middleware.PersistConfig[person.State, person.State]{
			Name:     sc.Name,
			Storage:  a.Storage,
			Validate: recordValidator(v, person.StoreName),
			Logger:   a.Logger,
			OnError:  onError,
		})
		available[config.MiddlewarePersist] = p
		a.persisters = append(a.persisters, p)
	}
	return person.NewStore(person.State{}, pipeline(sc, available),
		reactive.WithName[person.State](sc.Name),
		reactive.WithLogger[person.State](a.Logger),
		reactive.WithErrorHandler[person.State](onError))
}

func buildWeddingStore(a *App, sc config.StoreConfig, sink middleware.Sink, v *schema.Validator, onError func(error), now time.Time) *reactive.Store[wedding.State] {
	available := map[string]reactive.Middleware[wedding.State]{
		config.MiddlewareLogger: middleware.Logger[wedding.State](sink, sc.Name),
	}
	if a.devtools(sc.Name) {
		available[config.MiddlewareDevtools] = middleware.Devtools[wedding.State](a.Inspector, sc.Name)
	}
	if sc.Has(config.MiddlewarePersist) {
		p := middleware.Persist(middleware.PersistConfig[wedding.State, wedding.State]{
			Name:     sc.Name,
			Storage:  a.Storage,
			Validate: recordValidator(v, wedding.StoreName),
			Logger:   a.Logger,
			OnError:  onError,
		})
		available[config.MiddlewarePersist] = p
		a.persisters = append(a.persisters, p)
	}
	return wedding.NewStore(wedding.DefaultState(now), pipeline(sc, available),
		reactive.WithName[wedding.State](sc.Name),
		reactive.WithLogger[wedding.State](a.Logger),
		reactive.WithErrorHandler[wedding.State](onError))
}

func sortByOrder(ps []persister, order map[string]int) {
	slices.SortStableFunc(ps, func(x, y persister) int {
		return order[x.Name()] - order[y.Name()]
	})
}
