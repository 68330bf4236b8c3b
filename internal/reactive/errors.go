package reactive

import (
	"errors"
	"fmt"
)

// StoreError represents a failure detected while dispatching a mutation.
//
// Store errors include:
//   - Mutator failure: the mutation function returned an error
//   - Draft required: a recipe was dispatched without the Draft middleware
//   - No mutator: the mutation carried neither a mutator nor a recipe
//   - Subscriber panic: a listener panicked during fan-out (reported, never returned)
type StoreError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Store is the name of the store that rejected the mutation.
	Store string

	// Label is the action label of the mutation, if any.
	Label string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeMutatorFailed indicates the mutation function returned an error.
	ErrCodeMutatorFailed ErrorCode = "MUTATOR_FAILED"

	// ErrCodeDraftRequired indicates a recipe reached the core without a draft layer.
	ErrCodeDraftRequired ErrorCode = "DRAFT_REQUIRED"

	// ErrCodeNoMutator indicates an empty mutation.
	ErrCodeNoMutator ErrorCode = "NO_MUTATOR"

	// ErrCodeSubscriberPanic indicates a subscriber panicked during notification.
	ErrCodeSubscriberPanic ErrorCode = "SUBSCRIBER_PANIC"
)

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s: %s (store=%s", e.Code, e.Message, e.Store)
	if e.Label != "" {
		msg += ", action=" + e.Label
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsMutatorError reports whether err is a mutator failure.
// Uses errors.As to handle wrapped errors.
func IsMutatorError(err error) bool {
	return hasCode(err, ErrCodeMutatorFailed)
}

// IsDraftRequired reports whether err was caused by a recipe dispatched
// to a store without the Draft middleware.
func IsDraftRequired(err error) bool {
	return hasCode(err, ErrCodeDraftRequired)
}

// IsSubscriberPanic reports whether err describes a recovered subscriber panic.
func IsSubscriberPanic(err error) bool {
	return hasCode(err, ErrCodeSubscriberPanic)
}

func hasCode(err error, code ErrorCode) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func newMutatorError(store, label string, err error) *StoreError {
	return &StoreError{
		Code:    ErrCodeMutatorFailed,
		Store:   store,
		Label:   label,
		Message: "mutator failed, snapshot unchanged",
		Err:     err,
	}
}
