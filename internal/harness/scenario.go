package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kanstore/internal/tasks"
)

// Scenario is a task board flow with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed selects the initial board: "empty" (default) or "default".
	Seed string `yaml:"seed,omitempty"`

	// Flow lists the actions to dispatch, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the commits and final board.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep dispatches one board action.
type FlowStep struct {
	// Action is one of the board action labels, e.g. "addTask".
	Action string `yaml:"action"`

	// Args holds the action's arguments: title, status, id.
	Args map[string]string `yaml:"args,omitempty"`

	// As binds the id created by addTask to an alias.
	As string `yaml:"as,omitempty"`

	// Expect checks the step's outcome. If nil, the step must not fail.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected step behavior.
type ExpectClause struct {
	// Commit, if set, requires the step to commit (true) or not (false).
	Commit *bool `yaml:"commit,omitempty"`

	// Error, if set, requires the step to fail with a message containing it.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the outcome of the whole flow.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number of commits (commit_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected commit sequence (action_order).
	Actions []string `yaml:"actions,omitempty"`

	// Task is a task id or alias (task_status, dragging).
	Task string `yaml:"task,omitempty"`

	// Status is a column (task_status, tasks_in_status).
	Status string `yaml:"status,omitempty"`

	// Tasks are ids or aliases (tasks_in_status).
	Tasks []string `yaml:"tasks,omitempty"`
}

// Assertion type constants.
const (
	AssertCommitCount   = "commit_count"
	AssertActionOrder   = "action_order"
	AssertTaskStatus    = "task_status"
	AssertDragging      = "dragging"
	AssertTasksInStatus = "tasks_in_status"
)

// Seeds.
const (
	SeedEmpty   = "empty"
	SeedDefault = "default"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Seed {
	case "", SeedEmpty, SeedDefault:
	default:
		return fmt.Errorf("unknown seed %q", s.Seed)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	aliases := map[string]bool{}
	for i, step := range s.Flow {
		if err := validateStep(i, step); err != nil {
			return err
		}
		if step.As != "" {
			if aliases[step.As] {
				return fmt.Errorf("flow[%d]: alias %q bound twice", i, step.As)
			}
			aliases[step.As] = true
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// requiredArgs lists the arguments each action needs.
var requiredArgs = map[string][]string{
	tasks.ActionAddTask:              {"title", "status"},
	tasks.ActionChangeTaskStatus:     {"id", "status"},
	tasks.ActionSetDraggingTaskID:    {"id"},
	tasks.ActionRemoveDraggingTaskID: nil,
	tasks.ActionOnTaskDrop:           {"status"},
}

func validateStep(index int, step FlowStep) error {
	if step.Action == "" {
		return fmt.Errorf("flow[%d]: action is required", index)
	}
	required, ok := requiredArgs[step.Action]
	if !ok {
		return fmt.Errorf("flow[%d]: unknown action %q", index, step.Action)
	}
	for _, arg := range required {
		if _, ok := step.Args[arg]; !ok {
			return fmt.Errorf("flow[%d]: %s requires arg %q", index, step.Action, arg)
		}
	}
	if step.As != "" && step.Action != tasks.ActionAddTask {
		return fmt.Errorf("flow[%d]: as is only valid on %s", index, tasks.ActionAddTask)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCommitCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for commit_count", index)
		}
	case AssertActionOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for action_order", index)
		}
	case AssertTaskStatus:
		if a.Task == "" || a.Status == "" {
			return fmt.Errorf("assertions[%d]: task and status are required for task_status", index)
		}
	case AssertDragging:
	case AssertTasksInStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for tasks_in_status", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
