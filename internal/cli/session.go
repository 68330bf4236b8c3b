package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/kanstore/internal/app"
)

// withApp builds the application for one command, runs fn and closes the
// application, which flushes every pending write. Hydration failures are
// logged by the app and leave the affected store at its defaults.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app.App) error) (err error) {
	f := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, app.Options{
		Config:    cfg,
		LogOutput: cmd.ErrOrStderr(),
		IDs:       opts.IDs,
		Now:       opts.Now,
	})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "failed to start stores", err)
	}
	for _, herr := range a.HydrateErrors {
		f.VerboseLog("hydration: %v", herr)
	}

	defer func() {
		if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, exitf(ExitCommandError, "failed to persist state: %w", closeErr))
		}
	}()
	return fn(ctx, a)
}
