package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kanstore/internal/docserver"
	"github.com/roach88/kanstore/internal/storage"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr          string
	ActionBuffer  int
	ShutdownGrace time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured storage as a remote document store",
		Long: `Serve the configured storage backend over HTTP.

Records are read and written with GET and PUT on /<name>.json; a missing
record reads as null. When storage.auth_secret is set, every request must
carry an HS256 token in the auth query parameter.

Devtools inspectors may connect to /devtools over websocket; recent
actions are listed at /devtools/actions.

Examples:
  kanstore serve --backend sqlite --db ./kanstore.db
  kanstore serve --addr 127.0.0.1:9000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().IntVar(&opts.ActionBuffer, "action-buffer", 1000, "devtools actions kept in memory")
	cmd.Flags().DurationVar(&opts.ShutdownGrace, "shutdown-grace", 5*time.Second, "time allowed for in-flight requests on shutdown")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.loadConfig()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	if cfg.Storage.Backend == storage.BackendHTTP {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration",
			errors.New("serve needs a local backend, not http"))
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sopts := cfg.StorageOptions()
	sopts.Logger = logger
	backend, err := storage.Open(ctx, sopts)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "failed to open storage", err)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			logger.Error("error closing storage", "error", closeErr)
		}
	}()

	srvOpts := []docserver.Option{
		docserver.WithLogger(logger),
		docserver.WithActionBuffer(opts.ActionBuffer),
	}
	if cfg.Storage.AuthSecret != "" {
		srvOpts = append(srvOpts, docserver.WithAuthSecret([]byte(cfg.Storage.AuthSecret)))
	}
	srv := docserver.New(backend, srvOpts...)

	addr := opts.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s storage on %s. Press Ctrl-C to stop.\n", cfg.Storage.Backend, addr)

	select {
	case err := <-errCh:
		if err != nil {
			return exitf(ExitCommandError, "server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return exitf(ExitFailure, "shutdown error: %w", err)
	}
	if err := <-errCh; err != nil {
		return exitf(ExitCommandError, "server error: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
