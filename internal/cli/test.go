package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kanstore/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run task board scenarios",
		Long: `Run task board scenarios with the harness.

Each scenario file dispatches a flow of board actions against a fresh
store and checks its assertions. If <scenarios-dir>/golden/<name>.golden
exists, the trace must also match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  kanstore test ./scenarios
  kanstore test ./scenarios --filter "drag_*"
  kanstore test ./scenarios --update
  kanstore test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return exitf(ExitCommandError, "scenarios directory not found: %s", scenariosDir)
	}

	paths, err := harness.FindScenarios(scenariosDir, opts.Filter)
	if err != nil {
		return exitf(ExitCommandError, "failed to find scenarios: %w", err)
	}

	suite := &harness.SuiteResult{Scenarios: make([]harness.ScenarioOutcome, 0, len(paths))}
	if len(paths) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, suite)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	for _, path := range paths {
		outcome := runScenario(path, opts, cmd)
		suite.Scenarios = append(suite.Scenarios, outcome)
		suite.Total++
		if outcome.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, suite)
	}
	return outputTestText(cmd, suite)
}

// runScenario executes one scenario file, compares or updates its golden
// file and prints a line per scenario in text mode.
func runScenario(path string, opts *TestOptions, cmd *cobra.Command) harness.ScenarioOutcome {
	w := cmd.OutOrStdout()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	fail := func(errs ...string) harness.ScenarioOutcome {
		if opts.Format != "json" {
			fmt.Fprintf(w, "✗ %s\n", name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return harness.ScenarioOutcome{Name: name, Path: path, Errors: errs}
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return fail(fmt.Sprintf("failed to load scenario: %v", err))
	}
	name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return fail(fmt.Sprintf("execution failed: %v", err))
	}
	if !result.Pass {
		return fail(result.Errors...)
	}

	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return fail(fmt.Sprintf("failed to snapshot trace: %v", err))
	}

	goldenPath := goldenFilePath(filepath.Dir(path), scenario.Name)
	note := ""
	switch {
	case opts.Update:
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			return fail(fmt.Sprintf("failed to create golden directory: %v", err))
		}
		if err := os.WriteFile(goldenPath, snapshot, 0o644); err != nil {
			return fail(fmt.Sprintf("failed to write golden file: %v", err))
		}
		note = " (golden updated)"
	default:
		golden, err := os.ReadFile(goldenPath)
		switch {
		case os.IsNotExist(err):
			// No golden file - assertions only
		case err != nil:
			return fail(fmt.Sprintf("failed to read golden file: %v", err))
		case string(golden) != string(snapshot):
			return fail("trace does not match golden file (run with --update to regenerate)")
		}
	}

	if opts.Format != "json" {
		fmt.Fprintf(w, "✓ %s%s\n", scenario.Name, note)
	}
	return harness.ScenarioOutcome{Name: scenario.Name, Path: path, Pass: true, Result: result}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(dir, name string) string {
	return filepath.Join(dir, "golden", name+".golden")
}

// outputTestJSON outputs the suite result as JSON.
func outputTestJSON(cmd *cobra.Command, suite *harness.SuiteResult) error {
	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if suite.Failed == 0 {
		return f.Success(suite, nil)
	}

	msg := fmt.Sprintf("%d scenario(s) failed", suite.Failed)
	if err := f.Error(ErrCodeTestFails, msg, suite); err != nil {
		return err
	}
	// Test failures = exit code 1
	return exitf(ExitFailure, "%s", msg)
}

// outputTestText outputs the suite summary as text.
func outputTestText(cmd *cobra.Command, suite *harness.SuiteResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", suite.Passed, suite.Failed, suite.Total)

	if suite.Failed > 0 {
		// Test failures = exit code 1
		return exitf(ExitFailure, "%d scenario(s) failed", suite.Failed)
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
