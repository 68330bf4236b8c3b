package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/roach88/kanstore/internal/reactive"
)

// InitAction is the type of the action sent when a store is bound.
const InitAction = "@@INIT"

// AnonymousAction is the type used for unlabelled mutations.
const AnonymousAction = "anonymous"

// Action is one entry in an inspector's timeline.
type Action struct {
	ID    string `json:"id"`
	Store string `json:"store"`
	Type  string `json:"type"`
	Seq   int64  `json:"seq"`
	State any    `json:"state"`
}

// Inspector receives actions from the Devtools middleware.
type Inspector interface {
	Send(ctx context.Context, a Action) error
}

// DevtoolsMiddleware publishes commits to an Inspector.
type DevtoolsMiddleware[S any] struct {
	inspector Inspector
	name      string
	timeout   time.Duration
	logger    *slog.Logger
}

// Devtools returns a middleware that sends one Action per commit to
// inspector. A nil inspector makes it a pass-through.
func Devtools[S any](inspector Inspector, name string) *DevtoolsMiddleware[S] {
	return &DevtoolsMiddleware[S]{
		inspector: inspector,
		name:      name,
		timeout:   2 * time.Second,
		logger:    slog.Default(),
	}
}

// Wrap implements reactive.Middleware.
func (d *DevtoolsMiddleware[S]) Wrap(next reactive.SetFunc[S], api reactive.API[S]) reactive.SetFunc[S] {
	if d.inspector == nil {
		return next
	}
	return func(m reactive.Mutation[S]) error {
		before := api.Version()
		if err := next(m); err != nil {
			return err
		}
		after := api.Version()
		if after == before {
			return nil
		}

		actionType := m.Label
		if actionType == "" {
			actionType = AnonymousAction
		}
		d.send(Action{
			ID:    ulid.Make().String(),
			Store: d.name,
			Type:  actionType,
			Seq:   after,
			State: api.GetState(),
		})
		return nil
	}
}

// Bind implements reactive.Binder. It announces the initial snapshot.
func (d *DevtoolsMiddleware[S]) Bind(api reactive.API[S]) {
	if d.inspector == nil {
		return
	}
	d.send(Action{
		ID:    ulid.Make().String(),
		Store: d.name,
		Type:  InitAction,
		Seq:   api.Version(),
		State: api.GetState(),
	})
}

func (d *DevtoolsMiddleware[S]) send(a Action) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.inspector.Send(ctx, a); err != nil {
		d.logger.Warn("devtools send failed",
			"store", d.name,
			"action", a.Type,
			"error", err)
	}
}

// RecordingInspector keeps every action in memory.
type RecordingInspector struct {
	mu      sync.Mutex
	actions []Action
}

// NewRecordingInspector creates an empty recorder.
func NewRecordingInspector() *RecordingInspector {
	return &RecordingInspector{}
}

// Send implements Inspector.
func (r *RecordingInspector) Send(_ context.Context, a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
	return nil
}

// Actions returns a copy of the recorded actions.
func (r *RecordingInspector) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Types returns the recorded action types, optionally limited to one store.
func (r *RecordingInspector) Types(store string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []string
	for _, a := range r.actions {
		if store == "" || a.Store == store {
			types = append(types, a.Type)
		}
	}
	return types
}

// Reset drops all recorded actions.
func (r *RecordingInspector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = nil
}
