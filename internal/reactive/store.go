package reactive

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Mutator computes the next snapshot from the current one.
// It receives a shallow copy of the current snapshot, or the zero value when
// the mutation replaces the state.
type Mutator[S any] func(S) (S, error)

// Listener is called after every commit with the new and previous snapshots.
type Listener[S any] func(next, prev S)

// Mutation is one unit of work flowing through the pipeline.
type Mutation[S any] struct {
	// Label names the action for logging and devtools. Empty means anonymous.
	Label string

	// Replace hands Apply the zero value instead of the current snapshot.
	Replace bool

	// Apply computes the next snapshot.
	Apply Mutator[S]

	// Recipe edits a draft in place. Requires the Draft middleware, which
	// converts it into Apply.
	Recipe func(*S) error
}

// SetOption configures a single SetState, Produce or Replace call.
type SetOption func(*setConfig)

type setConfig struct {
	label   string
	replace bool
}

// Label attaches an action label to the mutation.
func Label(name string) SetOption {
	return func(c *setConfig) { c.label = name }
}

// ReplaceState makes the mutator start from the zero value rather than a
// copy of the current snapshot.
func ReplaceState() SetOption {
	return func(c *setConfig) { c.replace = true }
}

// Option configures a Store.
type Option[S any] func(*Store[S])

// WithName sets the store name used in logs, errors and devtools.
func WithName[S any](name string) Option[S] {
	return func(s *Store[S]) { s.name = name }
}

// WithMiddleware appends middleware to the pipeline. The first middleware
// given is the outermost layer.
func WithMiddleware[S any](mws ...Middleware[S]) Option[S] {
	return func(s *Store[S]) { s.middleware = append(s.middleware, mws...) }
}

// WithEquality overrides the change-detection predicate.
func WithEquality[S any](eq func(a, b S) bool) Option[S] {
	return func(s *Store[S]) { s.equal = eq }
}

// WithLogger sets the structured logger.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(s *Store[S]) { s.logger = logger }
}

// WithErrorHandler receives errors that cannot be returned to a caller:
// failures of deferred mutations and subscriber panics.
func WithErrorHandler[S any](fn func(error)) Option[S] {
	return func(s *Store[S]) { s.onError = fn }
}

type listenerEntry[S any] struct {
	id uint64
	fn Listener[S]
}

// Store is a reactive container for one snapshot of type S.
//
// Thread-safety: GetState, Version and Subscribe are safe for concurrent
// use. Mutations must come from a single writer goroutine: a dispatch that
// arrives while another is in flight is treated as reentrant, queued, and
// its result goes to the error handler instead of the caller.
type Store[S any] struct {
	name       string
	middleware []Middleware[S]
	equal      func(a, b S) bool
	logger     *slog.Logger
	onError    func(error)
	set        SetFunc[S]
	clock      *Clock

	mu          sync.Mutex
	state       S
	listeners   []listenerEntry[S]
	nextID      uint64
	dispatching bool
	pending     []Mutation[S]
}

// New creates a store holding initial and composes its middleware pipeline.
func New[S any](initial S, opts ...Option[S]) *Store[S] {
	s := &Store[S]{
		name:   "store",
		equal:  ShallowEqual[S],
		logger: slog.Default(),
		clock:  NewClock(),
		state:  initial,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.set = compose(s.commit, API[S](s), s.middleware)
	for _, mw := range s.middleware {
		if b, ok := mw.(Binder[S]); ok {
			b.Bind(s)
		}
	}

	return s
}

// Name returns the store name.
func (s *Store[S]) Name() string {
	return s.name
}

// GetState returns the current snapshot.
func (s *Store[S]) GetState() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version returns the number of commits so far.
func (s *Store[S]) Version() int64 {
	return s.clock.Current()
}

// SetState dispatches fn through the pipeline.
func (s *Store[S]) SetState(fn Mutator[S], opts ...SetOption) error {
	cfg := applySetOptions(opts)
	return s.Dispatch(Mutation[S]{Label: cfg.label, Replace: cfg.replace, Apply: fn})
}

// Replace dispatches a full replacement of the snapshot.
func (s *Store[S]) Replace(next S, opts ...SetOption) error {
	cfg := applySetOptions(opts)
	return s.Dispatch(Mutation[S]{
		Label:   cfg.label,
		Replace: true,
		Apply:   func(S) (S, error) { return next, nil },
	})
}

// Produce dispatches a draft recipe. The store must include the Draft middleware.
func (s *Store[S]) Produce(recipe func(*S) error, opts ...SetOption) error {
	cfg := applySetOptions(opts)
	return s.Dispatch(Mutation[S]{Label: cfg.label, Replace: cfg.replace, Recipe: recipe})
}

// Dispatch sends m through the pipeline and returns once its commit and
// fan-out have finished.
//
// If the store is already dispatching (a listener or mutator writing back
// into the same store), m is queued and Dispatch returns nil immediately;
// the in-flight dispatcher runs it after the current fan-out.
func (s *Store[S]) Dispatch(m Mutation[S]) error {
	s.mu.Lock()
	if s.dispatching {
		s.pending = append(s.pending, m)
		s.mu.Unlock()
		s.logger.Debug("mutation deferred",
			"store", s.name,
			"action", labelOf(m.Label))
		return nil
	}
	s.dispatching = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.dispatching = false
			s.pending = nil
			s.mu.Unlock()
			panic(r)
		}
	}()

	err := s.set(m)
	s.drain()
	return err
}

// drain runs queued mutations until none are left.
func (s *Store[S]) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending[0] = Mutation[S]{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		if err := s.runQueued(next); err != nil {
			s.logger.Warn("deferred mutation failed",
				"store", s.name,
				"action", labelOf(next.Label),
				"error", err)
			s.report(err)
		}
	}
}

// runQueued applies a deferred mutation. Its caller has already returned,
// so a panic is converted into a mutator error.
func (s *Store[S]) runQueued(m Mutation[S]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newMutatorError(s.name, m.Label, fmt.Errorf("panic: %v", r))
		}
	}()
	return s.set(m)
}

// Subscribe registers fn for every future commit and returns a function that
// removes it. Calling the returned function more than once is harmless.
func (s *Store[S]) Subscribe(fn Listener[S]) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry[S]{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(e listenerEntry[S]) bool {
			return e.id == id
		})
	}
}

// commit is the innermost pipeline stage.
func (s *Store[S]) commit(m Mutation[S]) error {
	if m.Apply == nil {
		if m.Recipe != nil {
			return &StoreError{
				Code:    ErrCodeDraftRequired,
				Store:   s.name,
				Label:   m.Label,
				Message: "recipe dispatched without the draft middleware",
			}
		}
		return &StoreError{
			Code:    ErrCodeNoMutator,
			Store:   s.name,
			Label:   m.Label,
			Message: "mutation has no mutator",
		}
	}

	prev := s.GetState()
	base := prev
	if m.Replace {
		var zero S
		base = zero
	}

	next, err := m.Apply(base)
	if err != nil {
		return newMutatorError(s.name, m.Label, err)
	}

	if s.equal(prev, next) {
		s.logger.Debug("mutation produced no change",
			"store", s.name,
			"action", labelOf(m.Label))
		return nil
	}

	s.mu.Lock()
	s.state = next
	version := s.clock.Next()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.logger.Debug("state committed",
		"store", s.name,
		"action", labelOf(m.Label),
		"version", version,
		"subscribers", len(listeners))

	for _, l := range listeners {
		s.notify(l, next, prev)
	}
	return nil
}

// notify calls one listener, isolating its panic from the others.
func (s *Store[S]) notify(l listenerEntry[S], next, prev S) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked",
				"store", s.name,
				"subscriber", l.id,
				"panic", r)
			s.report(&StoreError{
				Code:    ErrCodeSubscriberPanic,
				Store:   s.name,
				Message: fmt.Sprintf("subscriber %d panicked: %v", l.id, r),
			})
		}
	}()
	l.fn(next, prev)
}

func (s *Store[S]) report(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

func applySetOptions(opts []SetOption) setConfig {
	var cfg setConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func labelOf(label string) string {
	if label == "" {
		return "anonymous"
	}
	return label
}
