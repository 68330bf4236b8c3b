// Package bridge forwards changes from one store into another.
//
// A bridge subscribes to its source store and, on every commit, runs a
// forward function that dispatches into the target store. Forwarding is
// synchronous: the target has committed before the source's SetState
// returns. Bridges are grouped in a Graph, which refuses to start when the
// stores they connect form a cycle.
package bridge

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/kanstore/internal/person"
	"github.com/roach88/kanstore/internal/reactive"
	"github.com/roach88/kanstore/internal/wedding"
)

// Bridge is a source→target subscription managed by a Graph.
type Bridge interface {
	Name() string
	Source() string
	Target() string
	attach(logger *slog.Logger, onError func(error))
	detach()
}

// Forward pushes a source commit into target.
type Forward[S, T any] func(next, prev S, target *reactive.Store[T]) error

// Link is a bridge between two typed stores.
type Link[S, T any] struct {
	name    string
	source  *reactive.Store[S]
	target  *reactive.Store[T]
	forward Forward[S, T]

	mu          sync.Mutex
	unsubscribe func()
	forwarded   int64
}

// New creates a bridge. It does nothing until its Graph starts.
func New[S, T any](name string, source *reactive.Store[S], target *reactive.Store[T], forward Forward[S, T]) *Link[S, T] {
	if source == nil || target == nil || forward == nil {
		panic("bridge.New: source, target and forward are required")
	}
	return &Link[S, T]{name: name, source: source, target: target, forward: forward}
}

// Name returns the bridge name.
func (l *Link[S, T]) Name() string { return l.name }

// Source returns the source store name.
func (l *Link[S, T]) Source() string { return l.source.Name() }

// Target returns the target store name.
func (l *Link[S, T]) Target() string { return l.target.Name() }

// Forwarded returns how many source commits were forwarded successfully.
func (l *Link[S, T]) Forwarded() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.forwarded
}

func (l *Link[S, T]) attach(logger *slog.Logger, onError func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		return
	}
	l.unsubscribe = l.source.Subscribe(func(next, prev S) {
		if err := l.forward(next, prev, l.target); err != nil {
			err = fmt.Errorf("bridge %s: %w", l.name, err)
			logger.Warn("bridge forward failed",
				"bridge", l.name,
				"source", l.source.Name(),
				"target", l.target.Name(),
				"error", err)
			if onError != nil {
				onError(err)
			}
			return
		}
		l.mu.Lock()
		l.forwarded++
		l.mu.Unlock()
	})
}

func (l *Link[S, T]) detach() {
	l.mu.Lock()
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// PersonToWedding mirrors the person's names into the wedding store.
func PersonToWedding(source *reactive.Store[person.State], target *reactive.Store[wedding.State]) *Link[person.State, wedding.State] {
	return New("person-to-wedding", source, target, forwardPersonNames)
}

func forwardPersonNames(next, _ person.State, target *reactive.Store[wedding.State]) error {
	w := wedding.New(target)
	if err := w.SetFirstName(next.FirstName); err != nil {
		return err
	}
	return w.SetLastName(next.LastName)
}
