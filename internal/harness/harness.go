package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/roach88/kanstore/internal/middleware"
	"github.com/roach88/kanstore/internal/reactive"
	"github.com/roach88/kanstore/internal/tasks"
)

// Harness executes one scenario against a fresh board.
type Harness struct {
	board     *tasks.Board
	inspector *middleware.RecordingInspector
	logger    *slog.Logger
}

// newHarness builds the board for s: the seed, sequential ids and a
// recording inspector.
func newHarness(s *Scenario) *Harness {
	initial := tasks.State{}
	if s.Seed == SeedDefault {
		initial = tasks.DefaultState()
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	inspector := middleware.NewRecordingInspector()
	store := tasks.NewStore(initial,
		[]reactive.Middleware[tasks.State]{middleware.Devtools[tasks.State](inspector, tasks.StoreName)},
		reactive.WithLogger[tasks.State](logger))

	return &Harness{
		board:     tasks.NewBoard(store, tasks.NewSequenceGenerator("T")),
		inspector: inspector,
		logger:    logger,
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build a fresh board from the scenario seed
//  2. Dispatch each flow step, checking its expect clause
//  3. Capture the committed actions and final board
//  4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("scenario is nil")
	}
	h := newHarness(scenario)
	result := NewResult()

	for i, step := range scenario.Flow {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute flow: %w", err)
		}
	}

	for _, typ := range h.inspector.Types(tasks.StoreName) {
		if typ != middleware.InitAction {
			result.Commits = append(result.Commits, typ)
		}
	}
	result.Final = FinalState{
		Dragging: h.board.DraggingTaskID(),
		Tasks:    h.board.Tasks(),
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

var errUnknownAction = errors.New("unknown action")

// executeStep dispatches one step and records it in the trace. Action
// errors are recorded; an action the board does not know aborts the run.
func (h *Harness) executeStep(index int, step FlowStep, result *Result) error {
	args := make(map[string]string, len(step.Args))
	maps.Copy(args, step.Args)
	if ref, ok := args["id"]; ok {
		args["id"] = result.resolve(ref)
	}

	store := h.board.Store()
	before := store.Version()
	createdID, err := h.dispatch(step.Action, args)
	if errors.Is(err, errUnknownAction) {
		return fmt.Errorf("step %d: %w", index+1, err)
	}
	after := store.Version()

	event := TraceEvent{
		Seq:       index + 1,
		Action:    step.Action,
		ID:        createdID,
		Committed: after != before,
		Version:   after,
	}
	if len(args) > 0 {
		event.Args = args
	}
	if err != nil {
		event.Error = err.Error()
	}
	result.Trace = append(result.Trace, event)

	if step.As != "" && createdID != "" {
		result.aliases[step.As] = createdID
	}

	h.logger.Debug("step executed",
		"seq", event.Seq,
		"action", step.Action,
		"committed", event.Committed,
		"error", event.Error)

	checkExpect(index, step, event, result)
	return nil
}

func (h *Harness) dispatch(action string, args map[string]string) (string, error) {
	switch action {
	case tasks.ActionAddTask:
		return h.board.AddTask(args["title"], tasks.Status(args["status"]))
	case tasks.ActionChangeTaskStatus:
		return "", h.board.ChangeTaskStatus(args["id"], tasks.Status(args["status"]))
	case tasks.ActionSetDraggingTaskID:
		return "", h.board.SetDraggingTaskID(args["id"])
	case tasks.ActionRemoveDraggingTaskID:
		return "", h.board.RemoveDraggingTaskID()
	case tasks.ActionOnTaskDrop:
		return "", h.board.OnTaskDrop(tasks.Status(args["status"]))
	}
	return "", fmt.Errorf("%w %q", errUnknownAction, action)
}

// checkExpect compares a step's outcome with its expect clause.
func checkExpect(index int, step FlowStep, event TraceEvent, result *Result) {
	expect := step.Expect
	if expect == nil || expect.Error == "" {
		if event.Error != "" {
			result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %s", index, step.Action, event.Error))
		}
	} else {
		switch {
		case event.Error == "":
			result.AddError(fmt.Sprintf("flow[%d] %s: expected error containing %q, got success",
				index, step.Action, expect.Error))
		case !strings.Contains(event.Error, expect.Error):
			result.AddError(fmt.Sprintf("flow[%d] %s: expected error containing %q, got %q",
				index, step.Action, expect.Error, event.Error))
		}
	}

	if expect != nil && expect.Commit != nil && *expect.Commit != event.Committed {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected commit=%t, got commit=%t",
			index, step.Action, *expect.Commit, event.Committed))
	}
}
