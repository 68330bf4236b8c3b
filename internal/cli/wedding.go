package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/kanstore/internal/app"
	"github.com/roach88/kanstore/internal/wedding"
)

// WeddingOptions holds flags for the wedding commands.
type WeddingOptions struct {
	*RootOptions
	Time string // date: HH:MM
	Undo bool   // confirm: clear the flag
}

// WeddingView is the JSON payload of wedding commands.
type WeddingView struct {
	wedding.State
	Day  string `json:"day"`
	Time string `json:"time"`
}

// NewWeddingCommand creates the wedding command group.
func NewWeddingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WeddingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "wedding",
		Short: "Show or edit the wedding record",
	}

	show := &cobra.Command{
		Use:           "show",
		Short:         "Show the wedding record",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWedding(opts, cmd, func(w *wedding.Wedding) error { return nil })
		},
	}

	guests := &cobra.Command{
		Use:           "guests <count>",
		Short:         "Set the guest count (negative counts become zero)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return opts.formatter(cmd).Fail(ExitCommandError, ErrCodeAction, "invalid guest count", err)
			}
			return withWedding(opts, cmd, func(w *wedding.Wedding) error {
				return w.SetGuestCount(n)
			})
		},
	}

	date := &cobra.Command{
		Use:   "date <YYYY-MM-DD>",
		Short: "Set the event day, and optionally the time",
		Long: `Set the event day. The time of day is kept unless --time is given.

Examples:
  kanstore wedding date 2026-06-20
  kanstore wedding date 2026-06-20 --time 15:30`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWedding(opts, cmd, func(w *wedding.Wedding) error {
				if err := w.SetEventDate(args[0]); err != nil {
					return err
				}
				if opts.Time != "" {
					return w.SetEventTime(opts.Time)
				}
				return nil
			})
		},
	}
	date.Flags().StringVar(&opts.Time, "time", "", "event time of day (HH:MM, UTC)")

	confirm := &cobra.Command{
		Use:           "confirm",
		Short:         "Mark the event as confirmed",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWedding(opts, cmd, func(w *wedding.Wedding) error {
				return w.SetIsConfirmed(!opts.Undo)
			})
		},
	}
	confirm.Flags().BoolVar(&opts.Undo, "undo", false, "clear the confirmation")

	cmd.AddCommand(show, guests, date, confirm)
	return cmd
}

// withWedding applies edit to the wedding store and prints the result.
func withWedding(opts *WeddingOptions, cmd *cobra.Command, edit func(w *wedding.Wedding) error) error {
	f := opts.formatter(cmd)
	return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app.App) error {
		if err := edit(a.Wedding); err != nil {
			return f.Fail(ExitFailure, ErrCodeAction, "cannot update wedding", err)
		}
		view := newWeddingView(a.Wedding.State())
		return f.Success(view, view.render)
	})
}

func newWeddingView(s wedding.State) WeddingView {
	return WeddingView{State: s, Day: s.EventYYYYMMDD(), Time: s.EventHHMM()}
}

func (v WeddingView) render(w io.Writer) {
	fmt.Fprintf(w, "Couple:    %s %s\n", v.FirstName, v.LastName)
	fmt.Fprintf(w, "Guests:    %d\n", v.GuestCount)
	fmt.Fprintf(w, "When:      %s %s UTC\n", v.Day, v.Time)
	fmt.Fprintf(w, "Confirmed: %t\n", v.IsConfirmed)
}
