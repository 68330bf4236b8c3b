package reactive

// SetFunc is one stage of the dispatch pipeline.
type SetFunc[S any] func(Mutation[S]) error

// Middleware wraps the next stage of the pipeline.
//
// Wrap is called once when the store is built. The returned SetFunc runs for
// every mutation; it may rewrite the mutation, call next zero or more times
// and run side effects after next returns (the commit has happened by then,
// if there was one).
type Middleware[S any] interface {
	Wrap(next SetFunc[S], api API[S]) SetFunc[S]
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc[S any] func(next SetFunc[S], api API[S]) SetFunc[S]

// Wrap calls f(next, api).
func (f MiddlewareFunc[S]) Wrap(next SetFunc[S], api API[S]) SetFunc[S] {
	return f(next, api)
}

// Binder is implemented by middleware that need the finished store.
// Bind is called after the whole pipeline is composed, outermost first.
type Binder[S any] interface {
	Bind(api API[S])
}

// API is the store surface handed to middleware.
type API[S any] interface {
	Name() string
	GetState() S
	Version() int64
	Dispatch(m Mutation[S]) error
	Subscribe(fn Listener[S]) (unsubscribe func())
}

// compose folds the middleware around the core commit step.
// The first element of mws is the outermost layer.
func compose[S any](core SetFunc[S], api API[S], mws []Middleware[S]) SetFunc[S] {
	set := core
	for i := len(mws) - 1; i >= 0; i-- {
		set = mws[i].Wrap(set, api)
	}
	return set
}
