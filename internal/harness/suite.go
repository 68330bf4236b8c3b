package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioOutcome is the result of one scenario file in a suite.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`

	Result *Result `json:"-"`
}

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// FindScenarios returns the .yaml and .yml files in dir, sorted. If filter
// is non-empty, only files whose base name (without extension) matches the
// glob are returned.
func FindScenarios(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !matched {
				continue
			}
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// RunDir loads and runs every scenario in dir. A file that fails to load is
// reported as a failed scenario rather than aborting the suite.
func RunDir(dir, filter string) (*SuiteResult, error) {
	paths, err := FindScenarios(dir, filter)
	if err != nil {
		return nil, err
	}

	suite := &SuiteResult{Scenarios: []ScenarioOutcome{}}
	for _, path := range paths {
		outcome := runFile(path)
		suite.Scenarios = append(suite.Scenarios, outcome)
		suite.Total++
		if outcome.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}
	return suite, nil
}

func runFile(path string) ScenarioOutcome {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outcome := ScenarioOutcome{Name: name, Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		outcome.Errors = []string{err.Error()}
		return outcome
	}
	outcome.Name = scenario.Name

	result, err := Run(scenario)
	if err != nil {
		outcome.Errors = []string{err.Error()}
		return outcome
	}
	outcome.Result = result
	outcome.Pass = result.Pass
	if !result.Pass {
		outcome.Errors = result.Errors
	}
	return outcome
}
