// Package person implements the person store: a first and last name that
// other stores follow through a bridge.
package person

import (
	"slices"

	"github.com/roach88/kanstore/internal/reactive"
)

// StoreName is the storage key of the person record.
const StoreName = "person-storage"

// Action labels.
const (
	ActionSetFirstName = "setFirstName"
	ActionSetLastName  = "setLastName"
)

// State is the person snapshot. It is persisted as a whole.
type State struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// FullName joins the non-empty name parts with a space.
func (s State) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// NewStore creates a person store with mws as its pipeline.
func NewStore(initial State, mws []reactive.Middleware[State], opts ...reactive.Option[State]) *reactive.Store[State] {
	opts = append([]reactive.Option[State]{
		reactive.WithName[State](StoreName),
		reactive.WithMiddleware(slices.Clone(mws)...),
	}, opts...)
	return reactive.New(initial, opts...)
}

// Person exposes the person actions over a store.
type Person struct {
	store *reactive.Store[State]
}

// New wraps store.
func New(store *reactive.Store[State]) *Person {
	return &Person{store: store}
}

// Store returns the underlying store.
func (p *Person) Store() *reactive.Store[State] {
	return p.store
}

// State returns the current snapshot.
func (p *Person) State() State {
	return p.store.GetState()
}

// SetFirstName replaces the first name.
func (p *Person) SetFirstName(v string) error {
	return p.store.SetState(func(s State) (State, error) {
		s.FirstName = v
		return s, nil
	}, reactive.Label(ActionSetFirstName))
}

// SetLastName replaces the last name.
func (p *Person) SetLastName(v string) error {
	return p.store.SetState(func(s State) (State, error) {
		s.LastName = v
		return s, nil
	}, reactive.Label(ActionSetLastName))
}
