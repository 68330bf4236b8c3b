package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/kanstore/internal/app"
	"github.com/roach88/kanstore/internal/person"
)

// PersonOptions holds flags for the person commands.
type PersonOptions struct {
	*RootOptions
	FirstName string
	LastName  string
}

// PersonView is the JSON payload of person commands.
type PersonView struct {
	person.State
	FullName string `json:"fullName"`
}

// NewPersonCommand creates the person command group.
func NewPersonCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PersonOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "person",
		Short: "Show or edit the person record",
	}

	show := &cobra.Command{
		Use:           "show",
		Short:         "Show the person record",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersonShow(opts, cmd)
		},
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Set the person's names",
		Long: `Set the first and/or last name.

Names are mirrored into the wedding record.

Examples:
  kanstore person set --first Ada --last Lovelace
  kanstore person set --last ""`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersonSet(opts, cmd)
		},
	}
	set.Flags().StringVar(&opts.FirstName, "first", "", "first name")
	set.Flags().StringVar(&opts.LastName, "last", "", "last name")

	cmd.AddCommand(show, set)
	return cmd
}

func runPersonShow(opts *PersonOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app.App) error {
		view := newPersonView(a.Person.State())
		return f.Success(view, view.render)
	})
}

func runPersonSet(opts *PersonOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	setFirst := cmd.Flags().Changed("first")
	setLast := cmd.Flags().Changed("last")
	if !setFirst && !setLast {
		return f.Fail(ExitCommandError, ErrCodeAction, "nothing to set", fmt.Errorf("pass --first and/or --last"))
	}

	return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app.App) error {
		if setFirst {
			if err := a.Person.SetFirstName(opts.FirstName); err != nil {
				return f.Fail(ExitFailure, ErrCodeAction, "cannot set first name", err)
			}
		}
		if setLast {
			if err := a.Person.SetLastName(opts.LastName); err != nil {
				return f.Fail(ExitFailure, ErrCodeAction, "cannot set last name", err)
			}
		}
		view := newPersonView(a.Person.State())
		return f.Success(view, view.render)
	})
}

func newPersonView(s person.State) PersonView {
	return PersonView{State: s, FullName: s.FullName()}
}

func (v PersonView) render(w io.Writer) {
	fmt.Fprintf(w, "First name: %s\n", v.FirstName)
	fmt.Fprintf(w, "Last name:  %s\n", v.LastName)
}
