// Package tasks implements the task board store and its drag-and-drop
// state machine.
//
// Each task is in exactly one of open, in-progress or done. Any status can
// move to any other. At most one task is being dragged at a time; a drop
// moves it to the target column and always ends the drag.
package tasks

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/kanstore/internal/reactive"
)

// StoreName is the storage key of the board record.
const StoreName = "task-store"

// Action labels.
const (
	ActionAddTask              = "addTask"
	ActionChangeTaskStatus     = "changeTaskStatus"
	ActionSetDraggingTaskID    = "setDraggingTaskId"
	ActionRemoveDraggingTaskID = "removeDraggingTaskId"
	ActionOnTaskDrop           = "onTaskDrop"
)

// State is the board snapshot.
type State struct {
	DraggingTaskID string                     `json:"draggingTaskId,omitempty"`
	Tasks          reactive.Map[string, Task] `json:"tasks"`
}

// Record is the persisted part of State. Drag state is transient.
type Record struct {
	Tasks reactive.Map[string, Task] `json:"tasks"`
}

// Partialize selects the persisted fields.
func Partialize(s State) Record {
	return Record{Tasks: s.Tasks}
}

// Merge applies a persisted record to the current state.
func Merge(r Record, s State) State {
	s.Tasks = r.Tasks
	return s
}

// DefaultState returns the seeded board.
func DefaultState() State {
	return State{
		Tasks: reactive.MapOf(map[string]Task{
			"ABC-1": {ID: "ABC-1", Title: "Task 1", Status: StatusOpen},
			"ABC-2": {ID: "ABC-2", Title: "Task 2", Status: StatusInProgress},
			"ABC-3": {ID: "ABC-3", Title: "Task 3", Status: StatusOpen},
			"ABC-4": {ID: "ABC-4", Title: "Task 4", Status: StatusOpen},
		}),
	}
}

// NewStore creates a board store. mws wrap the draft layer, which is always
// innermost.
func NewStore(initial State, mws []reactive.Middleware[State], opts ...reactive.Option[State]) *reactive.Store[State] {
	chain := append(slices.Clone(mws), reactive.Draft[State]())
	opts = append([]reactive.Option[State]{
		reactive.WithName[State](StoreName),
		reactive.WithMiddleware(chain...),
	}, opts...)
	return reactive.New(initial, opts...)
}

// Board exposes the task board actions over a store.
type Board struct {
	store *reactive.Store[State]
	ids   IDGenerator
}

// NewBoard wraps store. A nil ids uses UUIDv7Generator.
func NewBoard(store *reactive.Store[State], ids IDGenerator) *Board {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Board{store: store, ids: ids}
}

// Store returns the underlying store.
func (b *Board) Store() *reactive.Store[State] {
	return b.store
}

// AddTask creates a task with a fresh id and returns the id.
func (b *Board) AddTask(title string, status Status) (string, error) {
	if err := checkStatus(status); err != nil {
		return "", err
	}

	id := b.ids.Generate()
	err := b.store.Produce(func(s *State) error {
		if s.Tasks.Has(id) {
			return fmt.Errorf("task id %q already exists", id)
		}
		s.Tasks.Set(id, Task{ID: id, Title: title, Status: status})
		return nil
	}, reactive.Label(ActionAddTask))
	if err != nil {
		return "", err
	}
	return id, nil
}

// ChangeTaskStatus moves a task to status. A missing task is a no-op.
func (b *Board) ChangeTaskStatus(id string, status Status) error {
	if err := checkStatus(status); err != nil {
		return err
	}
	return b.store.Produce(func(s *State) error {
		moveTask(s, id, status)
		return nil
	}, reactive.Label(ActionChangeTaskStatus))
}

// SetDraggingTaskID records id as the task being dragged, replacing any
// previous one.
func (b *Board) SetDraggingTaskID(id string) error {
	return b.store.SetState(func(s State) (State, error) {
		s.DraggingTaskID = id
		return s, nil
	}, reactive.Label(ActionSetDraggingTaskID))
}

// RemoveDraggingTaskID cancels the drag.
func (b *Board) RemoveDraggingTaskID() error {
	return b.store.SetState(func(s State) (State, error) {
		s.DraggingTaskID = ""
		return s, nil
	}, reactive.Label(ActionRemoveDraggingTaskID))
}

// OnTaskDrop moves the dragged task to status and ends the drag in one
// commit. Without a drag it does nothing. A dragged task that no longer
// exists only ends the drag.
func (b *Board) OnTaskDrop(status Status) error {
	if err := checkStatus(status); err != nil {
		return err
	}
	return b.store.Produce(func(s *State) error {
		if s.DraggingTaskID == "" {
			return nil
		}
		moveTask(s, s.DraggingTaskID, status)
		s.DraggingTaskID = ""
		return nil
	}, reactive.Label(ActionOnTaskDrop))
}

func moveTask(s *State, id string, status Status) {
	t, ok := s.Tasks.Get(id)
	if !ok || t.Status == status {
		return
	}
	t.Status = status
	s.Tasks.Set(id, t)
}

// TasksByStatus returns the tasks in status, ordered by id.
func (b *Board) TasksByStatus(status Status) []Task {
	var out []Task
	for _, t := range b.store.GetState().Tasks.All() {
		if t.Status == status {
			out = append(out, t)
		}
	}
	sortTasks(out)
	return out
}

// Tasks returns every task, ordered by id.
func (b *Board) Tasks() []Task {
	out := b.store.GetState().Tasks.Values()
	sortTasks(out)
	return out
}

// Task returns one task.
func (b *Board) Task(id string) (Task, bool) {
	return b.store.GetState().Tasks.Get(id)
}

// DraggingTaskID returns the dragged task id, or "".
func (b *Board) DraggingTaskID() string {
	return b.store.GetState().DraggingTaskID
}

// IsDragging reports whether a drag is in progress.
func (b *Board) IsDragging() bool {
	return b.DraggingTaskID() != ""
}

// TotalTasks returns the number of tasks.
func (b *Board) TotalTasks() int {
	return b.store.GetState().Tasks.Len()
}

func sortTasks(ts []Task) {
	slices.SortFunc(ts, func(a, b Task) int {
		return strings.Compare(a.ID, b.ID)
	})
}
