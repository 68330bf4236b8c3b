// Package wedding implements the wedding store, composed of four slices:
// the couple's names, the guest count, the event date and the confirmation
// flag. Each slice owns its own fields and actions; the store persists them
// together as one flat record.
package wedding

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/kanstore/internal/reactive"
)

// StoreName is the storage key of the wedding record.
const StoreName = "wedding-store"

// Action labels.
const (
	ActionSetFirstName   = "setFirstName"
	ActionSetLastName    = "setLastName"
	ActionSetGuestCount  = "setGuestCount"
	ActionSetEventDate   = "setEventDate"
	ActionSetEventTime   = "setEventTime"
	ActionSetIsConfirmed = "setIsConfirmed"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// PersonSlice holds the names mirrored from the person store.
type PersonSlice struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// GuestSlice holds the guest count. It is never negative.
type GuestSlice struct {
	GuestCount int `json:"guestCount"`
}

// DateSlice holds the event instant in Unix milliseconds, UTC.
type DateSlice struct {
	EventDate int64 `json:"eventDate"`
}

// ConfirmationSlice records whether the event is confirmed.
type ConfirmationSlice struct {
	IsConfirmed bool `json:"isConfirmed"`
}

// State is the wedding snapshot.
type State struct {
	PersonSlice
	GuestSlice
	DateSlice
	ConfirmationSlice
}

// DefaultState returns an empty wedding scheduled at now.
func DefaultState(now time.Time) State {
	return State{DateSlice: DateSlice{EventDate: now.UTC().UnixMilli()}}
}

// EventTime returns the event instant.
func (s DateSlice) EventTime() time.Time {
	return time.UnixMilli(s.EventDate).UTC()
}

// EventYYYYMMDD formats the event day as YYYY-MM-DD.
func (s DateSlice) EventYYYYMMDD() string {
	return s.EventTime().Format(dateLayout)
}

// EventHHMM formats the event time of day as HH:MM.
func (s DateSlice) EventHHMM() string {
	return s.EventTime().Format(timeLayout)
}

// NewStore creates a wedding store with mws as its pipeline.
func NewStore(initial State, mws []reactive.Middleware[State], opts ...reactive.Option[State]) *reactive.Store[State] {
	opts = append([]reactive.Option[State]{
		reactive.WithName[State](StoreName),
		reactive.WithMiddleware(slices.Clone(mws)...),
	}, opts...)
	return reactive.New(initial, opts...)
}

// Wedding exposes the slice actions over a store.
type Wedding struct {
	store *reactive.Store[State]
}

// New wraps store.
func New(store *reactive.Store[State]) *Wedding {
	return &Wedding{store: store}
}

// Store returns the underlying store.
func (w *Wedding) Store() *reactive.Store[State] {
	return w.store
}

// State returns the current snapshot.
func (w *Wedding) State() State {
	return w.store.GetState()
}

// SetFirstName replaces the first name.
func (w *Wedding) SetFirstName(v string) error {
	return w.store.SetState(func(s State) (State, error) {
		s.FirstName = v
		return s, nil
	}, reactive.Label(ActionSetFirstName))
}

// SetLastName replaces the last name.
func (w *Wedding) SetLastName(v string) error {
	return w.store.SetState(func(s State) (State, error) {
		s.LastName = v
		return s, nil
	}, reactive.Label(ActionSetLastName))
}

// SetGuestCount sets the guest count, clamping negative values to zero.
func (w *Wedding) SetGuestCount(n int) error {
	return w.store.SetState(func(s State) (State, error) {
		s.GuestCount = max(n, 0)
		return s, nil
	}, reactive.Label(ActionSetGuestCount))
}

// SetEventDate moves the event to day (YYYY-MM-DD), keeping the time of day.
func (w *Wedding) SetEventDate(day string) error {
	d, err := time.Parse(dateLayout, day)
	if err != nil {
		return fmt.Errorf("parse event date %q: %w", day, err)
	}
	return w.store.SetState(func(s State) (State, error) {
		cur := s.EventTime()
		at := time.Date(d.Year(), d.Month(), d.Day(), cur.Hour(), cur.Minute(), 0, 0, time.UTC)
		s.EventDate = at.UnixMilli()
		return s, nil
	}, reactive.Label(ActionSetEventDate))
}

// SetEventTime moves the event to clock (HH:MM), keeping the day.
func (w *Wedding) SetEventTime(clock string) error {
	c, err := time.Parse(timeLayout, clock)
	if err != nil {
		return fmt.Errorf("parse event time %q: %w", clock, err)
	}
	return w.store.SetState(func(s State) (State, error) {
		cur := s.EventTime()
		at := time.Date(cur.Year(), cur.Month(), cur.Day(), c.Hour(), c.Minute(), 0, 0, time.UTC)
		s.EventDate = at.UnixMilli()
		return s, nil
	}, reactive.Label(ActionSetEventTime))
}

// SetIsConfirmed sets the confirmation flag.
func (w *Wedding) SetIsConfirmed(v bool) error {
	return w.store.SetState(func(s State) (State, error) {
		s.IsConfirmed = v
		return s, nil
	}, reactive.Label(ActionSetIsConfirmed))
}
