package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kanstore/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Record string // record name; default is the file's base name
}

// RecordCheck is the outcome for one file.
type RecordCheck struct {
	File   string `json:"file"`
	Record string `json:"record"`
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
	Line   int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool          `json:"valid"`
	Records []RecordCheck `json:"records"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file.json>...",
		Short: "Check persisted records against their schema",
		Long: `Check JSON record files against the built-in record schemas.

The record name is taken from the file name (task-store.json is checked
as task-store) unless --record is given.

Examples:
  kanstore validate ./backup/task-store.json ./backup/wedding-store.json
  kanstore validate --record person-storage ./person.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Record, "record", "", "record name to validate against")
	return cmd
}

func runValidate(opts *ValidateOptions, files []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	validator, err := schema.New()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "failed to load schemas", err)
	}

	result := ValidationResult{Valid: true, Records: make([]RecordCheck, 0, len(files))}
	for _, file := range files {
		check := checkRecordFile(validator, file, opts.Record)
		f.VerboseLog("checked %s as %s: valid=%t", file, check.Record, check.Valid)
		if !check.Valid {
			result.Valid = false
		}
		result.Records = append(result.Records, check)
	}

	if err := f.Success(result, result.render); err != nil {
		return err
	}
	if !result.Valid {
		failed := 0
		for _, r := range result.Records {
			if !r.Valid {
				failed++
			}
		}
		return exitf(ExitFailure, "validation failed for %d record(s)", failed)
	}
	return nil
}

func checkRecordFile(v *schema.Validator, file, record string) RecordCheck {
	if record == "" {
		record = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}
	check := RecordCheck{File: file, Record: record}

	data, err := os.ReadFile(file)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	if err := v.Validate(record, data); err != nil {
		check.Error = err.Error()
		var recErr *schema.RecordError
		if errors.As(err, &recErr) && recErr.Pos.IsValid() {
			check.Line = recErr.Pos.Line()
		}
		return check
	}
	check.Valid = true
	return check
}

func (r ValidationResult) render(w io.Writer) {
	for _, c := range r.Records {
		if c.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", c.File, c.Record)
			continue
		}
		fmt.Fprintf(w, "✗ %s (%s)\n", c.File, c.Record)
		fmt.Fprintf(w, "  %s\n", c.Error)
	}
}
