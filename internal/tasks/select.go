package tasks

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// taskEnv is the environment visible to Select expressions.
type taskEnv struct {
	ID     string `expr:"id"`
	Title  string `expr:"title"`
	Status string `expr:"status"`
}

// CompileFilter compiles a boolean expression over id, title and status,
// for example `status == "open" && title contains "spec"`.
func CompileFilter(where string) (*exprvm.Program, error) {
	program, err := exprlang.Compile(where, exprlang.Env(taskEnv{}), exprlang.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", where, err)
	}
	return program, nil
}

// Select returns the tasks matching where, ordered by id. An empty
// expression matches everything.
func (b *Board) Select(where string) ([]Task, error) {
	all := b.Tasks()
	if where == "" {
		return all, nil
	}

	program, err := CompileFilter(where)
	if err != nil {
		return nil, err
	}

	var out []Task
	for _, t := range all {
		result, err := exprlang.Run(program, taskEnv{ID: t.ID, Title: t.Title, Status: string(t.Status)})
		if err != nil {
			return nil, fmt.Errorf("evaluate filter on %s: %w", t.ID, err)
		}
		if matched, _ := result.(bool); matched {
			out = append(out, t)
		}
	}
	return out, nil
}
