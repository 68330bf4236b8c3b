package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/kanstore/internal/app"
	"github.com/roach88/kanstore/internal/tasks"
)

// BoardOptions holds flags for the board commands.
type BoardOptions struct {
	*RootOptions
	Where  string // list: expr filter
	Status string // add: initial column
}

// BoardView is the JSON payload of board commands.
type BoardView struct {
	Dragging string       `json:"dragging,omitempty"`
	Columns  []ColumnView `json:"columns"`
}

// ColumnView is one status column.
type ColumnView struct {
	Status tasks.Status `json:"status"`
	Tasks  []tasks.Task `json:"tasks"`
}

// NewBoardCommand creates the board command group.
func NewBoardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BoardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Inspect and edit the task board",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks by column",
		Long: `List tasks grouped by status column.

The --where flag filters with an expression over id, title and status.

Examples:
  kanstore board list
  kanstore board list --where 'status != "done" && title contains "spec"'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoardList(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Where, "where", "", "filter expression")

	add := &cobra.Command{
		Use:           "add <title>",
		Short:         "Add a task",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoardAdd(opts, args[0], cmd)
		},
	}
	add.Flags().StringVar(&opts.Status, "status", string(tasks.StatusOpen), "initial status (open|in-progress|done)")

	move := &cobra.Command{
		Use:           "move <id> <status>",
		Short:         "Change a task's status",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoardMove(opts, args[0], args[1], cmd)
		},
	}

	drag := &cobra.Command{
		Use:   "drag <id> <status>",
		Short: "Drag a task and drop it on a column",
		Long: `Start dragging a task and drop it on the given column.

The drop moves the task and ends the drag in a single commit. A drag of a
task that no longer exists only ends the drag.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoardDrag(opts, args[0], args[1], cmd)
		},
	}

	cmd.AddCommand(list, add, move, drag)
	return cmd
}

func runBoardList(opts *BoardOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app.App) error {
		selected, err := a.Board.Select(opts.Where)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeAction, "invalid filter", err)
		}
		view := newBoardView(a.Board.DraggingTaskID(), selected)
		return f.Success(view, view.render)
	})
}

func runBoardAdd(opts *BoardOptions, title string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if err := tasks.ValidateTitle(title); err != nil {
		return f.Fail(ExitFailure, ErrCodeAction, "cannot add task", err)
	}
	status, err := tasks.ParseStatus(opts.Status)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeAction, "cannot add task", err)
	}

	return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app.App) error {
		id, err := a.Board.AddTask(title, status)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeAction, "cannot add task", err)
		}
		task, _ := a.Board.Task(id)
		return f.Success(task, func(w io.Writer) {
			fmt.Fprintf(w, "Added %s [%s] %s\n", task.ID, task.Status, task.Title)
		})
	})
}

func runBoardMove(opts *BoardOptions, id, rawStatus string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	status, err := tasks.ParseStatus(rawStatus)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeAction, "cannot move task", err)
	}

	return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app.App) error {
		if _, ok := a.Board.Task(id); !ok {
			return f.Fail(ExitFailure, ErrCodeNotFound, "cannot move task", fmt.Errorf("task %q not found", id))
		}
		if err := a.Board.ChangeTaskStatus(id, status); err != nil {
			return f.Fail(ExitFailure, ErrCodeAction, "cannot move task", err)
		}
		task, _ := a.Board.Task(id)
		return f.Success(task, func(w io.Writer) {
			fmt.Fprintf(w, "Moved %s to %s\n", task.ID, task.Status)
		})
	})
}

func runBoardDrag(opts *BoardOptions, id, rawStatus string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	status, err := tasks.ParseStatus(rawStatus)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeAction, "cannot drop task", err)
	}

	return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app.App) error {
		if err := a.Board.SetDraggingTaskID(id); err != nil {
			return f.Fail(ExitFailure, ErrCodeAction, "cannot drag task", err)
		}
		f.VerboseLog("dragging %s", id)
		if err := a.Board.OnTaskDrop(status); err != nil {
			return f.Fail(ExitFailure, ErrCodeAction, "cannot drop task", err)
		}

		task, ok := a.Board.Task(id)
		if !ok {
			return f.Success(map[string]string{"dropped": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Task %s no longer exists; drag ended\n", id)
			})
		}
		return f.Success(task, func(w io.Writer) {
			fmt.Fprintf(w, "Dropped %s on %s\n", task.ID, task.Status)
		})
	})
}

func newBoardView(dragging string, selected []tasks.Task) BoardView {
	view := BoardView{Dragging: dragging, Columns: make([]ColumnView, 0, len(tasks.Statuses))}
	for _, status := range tasks.Statuses {
		col := ColumnView{Status: status, Tasks: []tasks.Task{}}
		for _, t := range selected {
			if t.Status == status {
				col.Tasks = append(col.Tasks, t)
			}
		}
		view.Columns = append(view.Columns, col)
	}
	return view
}

func (v BoardView) render(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, col := range v.Columns {
		fmt.Fprintf(tw, "%s (%d)\n", col.Status, len(col.Tasks))
		for _, t := range col.Tasks {
			mark := " "
			if t.ID == v.Dragging {
				mark = "*"
			}
			fmt.Fprintf(tw, "  %s %s\t%s\n", mark, t.ID, t.Title)
		}
	}
	_ = tw.Flush()
}
