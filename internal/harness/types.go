package harness

import "github.com/roach88/kanstore/internal/tasks"

// TraceEvent records one flow step.
type TraceEvent struct {
	Seq       int               `json:"seq"`
	Action    string            `json:"action"`
	Args      map[string]string `json:"args,omitempty"`
	ID        string            `json:"id,omitempty"` // created by addTask
	Committed bool              `json:"committed"`
	Version   int64             `json:"version"`
	Error     string            `json:"error,omitempty"`
}

// FinalState is the board after the flow.
type FinalState struct {
	Dragging string       `json:"dragging,omitempty"`
	Tasks    []tasks.Task `json:"tasks,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step met its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per flow step.
	Trace []TraceEvent `json:"trace"`

	// Commits lists the labels of committed actions, as seen by the inspector.
	Commits []string `json:"commits"`

	// Final is the board after the flow.
	Final FinalState `json:"final"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	aliases map[string]string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Commits: []string{},
		Errors:  []string{},
		aliases: map[string]string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// resolve maps an alias to its task id. Anything else is returned as is.
func (r *Result) resolve(ref string) string {
	if id, ok := r.aliases[ref]; ok {
		return id
	}
	return ref
}
