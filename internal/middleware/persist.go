package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/kanstore/internal/codec"
	"github.com/roach88/kanstore/internal/reactive"
	"github.com/roach88/kanstore/internal/storage"
)

// HydrateAction labels the synthetic commit made by Hydrate.
const HydrateAction = "persist/hydrate"

// ErrNotBound is returned by Hydrate before the persister is part of a store.
var ErrNotBound = errors.New("persist middleware is not bound to a store")

// PersistConfig configures a Persister.
//
// S is the store state and P the persisted projection. When P and S are the
// same type, Partialize and Merge may be left nil.
type PersistConfig[S, P any] struct {
	// Name is the storage key.
	Name string

	// Storage receives the serialized records.
	Storage storage.StateStorage

	// Partialize selects what to persist.
	Partialize func(S) P

	// Merge folds a decoded record into the current snapshot.
	Merge func(persisted P, current S) S

	// Validate checks a raw record before it is decoded. Optional.
	Validate func(name string, data []byte) error

	// WriteTimeout bounds each storage write. Default 10s.
	WriteTimeout time.Duration

	Logger  *slog.Logger
	OnError func(error)
}

// Persister is the persistence middleware for one store.
//
// Every commit is encoded synchronously (canonical JSON) and handed to a
// background writer, so SetState never waits on storage. When several
// snapshots are queued the writer stores only the newest. Write failures are
// logged and reported to OnError; the in-memory commit is never undone.
type Persister[S, P any] struct {
	name         string
	storage      storage.StateStorage
	partialize   func(S) P
	merge        func(P, S) S
	validate     func(string, []byte) error
	writeTimeout time.Duration
	logger       *slog.Logger
	onError      func(error)

	api       reactive.API[S]
	queue     *writeQueue
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	// Owned by the writer goroutine.
	sinceBarrier []error

	mu       sync.Mutex
	hydrated bool
	writes   int64
	lastErr  error
}

// Persist creates the persistence middleware.
func Persist[S, P any](cfg PersistConfig[S, P]) *Persister[S, P] {
	if cfg.Storage == nil {
		panic("middleware.Persist: storage is nil")
	}
	if cfg.Name == "" {
		panic("middleware.Persist: name is empty")
	}

	p := &Persister[S, P]{
		name:         cfg.Name,
		storage:      cfg.Storage,
		partialize:   cfg.Partialize,
		merge:        cfg.Merge,
		validate:     cfg.Validate,
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger,
		onError:      cfg.OnError,
		queue:        newWriteQueue(),
		done:         make(chan struct{}),
	}
	if p.writeTimeout <= 0 {
		p.writeTimeout = 10 * time.Second
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	if p.partialize == nil {
		var zero S
		if _, ok := any(zero).(P); !ok {
			panic("middleware.Persist: Partialize is required when the persisted type differs from the state type")
		}
		p.partialize = func(s S) P { return any(s).(P) }
	}
	if p.merge == nil {
		p.merge = func(persisted P, current S) S {
			if s, ok := any(persisted).(S); ok {
				return s
			}
			return current
		}
	}

	return p
}

// Name returns the storage key.
func (p *Persister[S, P]) Name() string {
	return p.name
}

// Wrap implements reactive.Middleware.
func (p *Persister[S, P]) Wrap(next reactive.SetFunc[S], api reactive.API[S]) reactive.SetFunc[S] {
	p.api = api
	return func(m reactive.Mutation[S]) error {
		before := api.Version()
		if err := next(m); err != nil {
			return err
		}
		if api.Version() == before || m.Label == HydrateAction {
			return nil
		}
		p.schedule(api.GetState())
		return nil
	}
}

// Bind implements reactive.Binder. It starts the background writer.
func (p *Persister[S, P]) Bind(reactive.API[S]) {
	p.ensureStarted()
}

// Hydrate loads the stored record and merges it into the store with one
// synthetic commit labelled HydrateAction. That commit is not written back.
//
// A missing record leaves the default snapshot and returns nil. A failed
// read, schema violation or undecodable record also leaves the default
// snapshot; the error is logged, reported and returned so the caller can
// decide whether to care.
func (p *Persister[S, P]) Hydrate(ctx context.Context) error {
	if p.api == nil {
		return ErrNotBound
	}

	raw, ok, err := p.storage.GetItem(ctx, p.name)
	if err != nil {
		return p.hydrateFailed(fmt.Errorf("hydrate %s: %w", p.name, err))
	}
	if !ok {
		p.logger.Debug("no persisted record, keeping default", "store", p.name)
		p.markHydrated()
		return nil
	}

	if p.validate != nil {
		if err := p.validate(p.name, []byte(raw)); err != nil {
			return p.hydrateFailed(&storage.AdapterError{
				Op:  "get",
				Key: p.name,
				Err: fmt.Errorf("%w: %w", storage.ErrMalformedBody, err),
			})
		}
	}

	err = p.api.Dispatch(reactive.Mutation[S]{
		Label: HydrateAction,
		Apply: func(current S) (S, error) {
			partial := p.partialize(current)
			if err := json.Unmarshal([]byte(raw), &partial); err != nil {
				return current, &storage.AdapterError{
					Op:  "get",
					Key: p.name,
					Err: fmt.Errorf("%w: %w", storage.ErrMalformedBody, err),
				}
			}
			return p.merge(partial, current), nil
		},
	})
	if err != nil {
		return p.hydrateFailed(err)
	}

	p.logger.Debug("store hydrated", "store", p.name, "bytes", len(raw))
	p.markHydrated()
	return nil
}

// Hydrated reports whether Hydrate has completed successfully.
func (p *Persister[S, P]) Hydrated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hydrated
}

// Flush waits until every write queued before the call has been attempted.
// It returns the errors of those writes, joined.
func (p *Persister[S, P]) Flush(ctx context.Context) error {
	p.ensureStarted()

	result := make(chan error, 1)
	if !p.queue.Enqueue(writeRequest{barrier: result}) {
		// Closed: Close already drained the queue.
		return nil
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and stops the writer.
func (p *Persister[S, P]) Close() error {
	p.closeOnce.Do(func() {
		p.ensureStarted()
		p.queue.Close()
		<-p.done
	})
	return nil
}

// ClearStorage removes the stored record.
func (p *Persister[S, P]) ClearStorage(ctx context.Context) error {
	if err := p.storage.RemoveItem(ctx, p.name); err != nil {
		return fmt.Errorf("clear %s: %w", p.name, err)
	}
	return nil
}

// Writes returns the number of successful storage writes.
func (p *Persister[S, P]) Writes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Err returns the most recent write error, if any.
func (p *Persister[S, P]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Persister[S, P]) schedule(state S) {
	data, err := codec.Marshal(p.partialize(state))
	if err != nil {
		p.fail(fmt.Errorf("encode %s: %w", p.name, err))
		return
	}

	p.ensureStarted()
	if !p.queue.Enqueue(writeRequest{data: string(data)}) {
		p.logger.Warn("persist queue closed, write dropped", "store", p.name)
	}
}

func (p *Persister[S, P]) ensureStarted() {
	p.startOnce.Do(func() {
		go p.run()
	})
}

// run is the writer loop. It exits once the queue is closed and drained.
func (p *Persister[S, P]) run() {
	defer close(p.done)

	for {
		if batch := p.queue.DrainAll(); len(batch) > 0 {
			p.process(batch)
			continue
		}

		if _, ok := <-p.queue.Wait(); !ok {
			// Closed: whatever was queued before Close still gets written.
			if batch := p.queue.DrainAll(); len(batch) > 0 {
				p.process(batch)
			}
			return
		}
	}
}

func (p *Persister[S, P]) process(batch []writeRequest) {
	var latest *string
	for _, r := range batch {
		if r.barrier == nil {
			data := r.data
			latest = &data
			continue
		}
		if latest != nil {
			p.write(*latest)
			latest = nil
		}
		r.barrier <- errors.Join(p.sinceBarrier...)
		close(r.barrier)
		p.sinceBarrier = nil
	}
	if latest != nil {
		p.write(*latest)
	}
}

func (p *Persister[S, P]) write(data string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	if err := p.storage.SetItem(ctx, p.name, data); err != nil {
		err = fmt.Errorf("persist %s: %w", p.name, err)
		p.sinceBarrier = append(p.sinceBarrier, err)
		p.fail(err)
		return
	}

	p.mu.Lock()
	p.writes++
	p.mu.Unlock()
	p.logger.Debug("snapshot persisted", "store", p.name, "bytes", len(data))
}

func (p *Persister[S, P]) hydrateFailed(err error) error {
	p.logger.Warn("hydration failed, keeping default snapshot",
		"store", p.name,
		"error", err)
	p.report(err)
	return err
}

func (p *Persister[S, P]) fail(err error) {
	p.logger.Warn("persistence failed", "store", p.name, "error", err)
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	p.report(err)
}

func (p *Persister[S, P]) markHydrated() {
	p.mu.Lock()
	p.hydrated = true
	p.mu.Unlock()
}

func (p *Persister[S, P]) report(err error) {
	if p.onError != nil {
		p.onError(err)
	}
}
