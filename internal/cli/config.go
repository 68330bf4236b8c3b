package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration after defaults, file, environment and flags",
		Long: `Print the effective configuration as YAML.

The auth secret is redacted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
			}
			if cfg.Storage.AuthSecret != "" {
				cfg.Storage.AuthSecret = "REDACTED"
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			return f.Success(cfg, func(w io.Writer) {
				_, _ = w.Write(out)
			})
		},
	}

	cmd.AddCommand(show)
	return cmd
}
