package tasks

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the column a task sits in.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists every status in board order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusDone}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", &ValidationError{Field: "status", Value: s, Err: ErrInvalidStatus}
	}
	return status, nil
}

// Task is one card on the board.
type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`
}

var (
	// ErrInvalidStatus indicates a status outside open, in-progress and done.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrEmptyTitle indicates a blank task title.
	ErrEmptyTitle = errors.New("task title is empty")
)

// ValidationError reports rejected caller input.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateTitle rejects blank titles. The board itself accepts any title;
// this is for the input layer.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Value: title, Err: ErrEmptyTitle}
	}
	return nil
}

func checkStatus(s Status) error {
	if !s.Valid() {
		return &ValidationError{Field: "status", Value: string(s), Err: ErrInvalidStatus}
	}
	return nil
}
