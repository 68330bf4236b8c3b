package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/kanstore/internal/tasks"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			mark := " "
			if event.Committed {
				mark = "*"
			}
			fmt.Fprintf(&buf, "  [%d]%s %s %v\n", event.Seq, mark, event.Action, event.Args)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCommitCount:
		return assertCommitCount(result, a)
	case AssertActionOrder:
		return assertActionOrder(result, a)
	case AssertTaskStatus:
		return assertTaskStatus(result, a)
	case AssertDragging:
		return assertDragging(result, a)
	case AssertTasksInStatus:
		return assertTasksInStatus(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertCommitCount checks how many steps committed.
func assertCommitCount(result *Result, a Assertion) error {
	count := len(result.Commits)
	if count != a.Count {
		return &AssertionError{
			Type:     AssertCommitCount,
			Expected: fmt.Sprintf("%d commits", a.Count),
			Actual:   fmt.Sprintf("%d commits", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertActionOrder checks the exact sequence of committed labels.
func assertActionOrder(result *Result, a Assertion) error {
	if !slices.Equal(result.Commits, a.Actions) {
		return &AssertionError{
			Type:     AssertActionOrder,
			Expected: fmt.Sprintf("commits %v", a.Actions),
			Actual:   fmt.Sprintf("commits %v", result.Commits),
			Trace:    result.Trace,
		}
	}
	return nil
}

func findTask(result *Result, id string) (tasks.Task, bool) {
	for _, t := range result.Final.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return tasks.Task{}, false
}

// assertTaskStatus checks the final status of one task.
func assertTaskStatus(result *Result, a Assertion) error {
	id := result.resolve(a.Task)
	task, ok := findTask(result, id)
	if !ok {
		return &AssertionError{
			Type:     AssertTaskStatus,
			Expected: fmt.Sprintf("task %s with status %s", id, a.Status),
			Actual:   "task not found",
		}
	}
	if string(task.Status) != a.Status {
		return &AssertionError{
			Type:     AssertTaskStatus,
			Expected: fmt.Sprintf("task %s with status %s", id, a.Status),
			Actual:   fmt.Sprintf("status %s", task.Status),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertDragging checks the dragged task; an empty Task means no drag.
func assertDragging(result *Result, a Assertion) error {
	want := ""
	if a.Task != "" {
		want = result.resolve(a.Task)
	}
	if result.Final.Dragging != want {
		return &AssertionError{
			Type:     AssertDragging,
			Expected: describeDrag(want),
			Actual:   describeDrag(result.Final.Dragging),
			Trace:    result.Trace,
		}
	}
	return nil
}

func describeDrag(id string) string {
	if id == "" {
		return "no drag in progress"
	}
	return "dragging " + id
}

// assertTasksInStatus checks the exact column contents, in id order.
func assertTasksInStatus(result *Result, a Assertion) error {
	want := make([]string, 0, len(a.Tasks))
	for _, ref := range a.Tasks {
		want = append(want, result.resolve(ref))
	}
	slices.Sort(want)

	got := []string{}
	for _, t := range result.Final.Tasks {
		if string(t.Status) == a.Status {
			got = append(got, t.ID)
		}
	}

	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertTasksInStatus,
			Expected: fmt.Sprintf("%s: %v", a.Status, want),
			Actual:   fmt.Sprintf("%s: %v", a.Status, got),
			Trace:    result.Trace,
		}
	}
	return nil
}
