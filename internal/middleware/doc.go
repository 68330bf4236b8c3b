// Package middleware provides the cross-cutting layers for reactive stores.
//
//   - Logger: writes (store name, snapshot) to a Sink after each successful set
//   - Devtools: publishes one labelled Action per commit to an Inspector
//   - Persist: serializes committed snapshots to a StateStorage in the
//     background and hydrates the store from it on demand
//
// All layers are observational: they never change the snapshot a mutation
// produces and never turn a successful set into a failed one. Sink,
// inspector and storage failures are logged and reported, not returned.
//
// Typical pipeline, outermost first:
//
//	reactive.New(initial,
//	    reactive.WithMiddleware[S](
//	        middleware.Devtools[S](inspector, "tasks"),
//	        persister,
//	        middleware.Logger[S](sink, "tasks"),
//	        reactive.Draft[S](),
//	    ))
package middleware
