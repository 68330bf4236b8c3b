package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/kanstore/internal/codec"
)

// TraceSnapshot captures the complete outcome of a scenario execution.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
	Commits  []string     `json:"commits,omitempty"`
	Final    FinalState   `json:"final"`
}

// Snapshot returns the canonical JSON snapshot of result.
func Snapshot(name string, result *Result) ([]byte, error) {
	return codec.Marshal(TraceSnapshot{
		Scenario: name,
		Trace:    result.Trace,
		Commits:  result.Commits,
		Final:    result.Final,
	})
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
