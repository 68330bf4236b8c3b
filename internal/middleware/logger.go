package middleware

import (
	"log/slog"

	"github.com/roach88/kanstore/internal/reactive"
)

// Logger returns a middleware that sends the resulting snapshot to sink
// after every successful set, labelled with name.
//
// A panicking sink is recovered and logged.
func Logger[S any](sink Sink, name string) reactive.Middleware[S] {
	return reactive.MiddlewareFunc[S](func(next reactive.SetFunc[S], api reactive.API[S]) reactive.SetFunc[S] {
		if sink == nil {
			return next
		}
		return func(m reactive.Mutation[S]) error {
			if err := next(m); err != nil {
				return err
			}
			logToSink(sink, name, api.GetState())
			return nil
		}
	})
}

func logToSink(sink Sink, label string, snapshot any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("state sink panicked", "store", label, "panic", r)
		}
	}()
	sink.Log(label, snapshot)
}
