package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsegrid/internal/schema"
	"github.com/roach88/pulsegrid/internal/store"
	"github.com/roach88/pulsegrid/internal/tableapi"
)

// Error codes for schema command failures.
const (
	ErrCodeSchemaLoad    = "E_SCHEMA_LOAD"
	ErrCodeSchemaInvalid = "E_SCHEMA_INVALID"
)

// TableValidation is the validation outcome of one table.
type TableValidation struct {
	Table   string                   `json:"table"`
	Columns int                      `json:"columns"`
	Errors  []schema.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results for a CUE file.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Tables []TableValidation `json:"tables"`
}

func (r ValidationResult) renderText(w io.Writer) error {
	for _, t := range r.Tables {
		if len(t.Errors) == 0 {
			fmt.Fprintf(w, "✓ %s (%d columns)\n", t.Table, t.Columns)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", t.Table)
		for _, e := range t.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}
	return nil
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Validate and publish CUE table schemas",
	}
	cmd.AddCommand(newSchemaValidateCommand(rootOpts))
	cmd.AddCommand(newSchemaPushCommand(rootOpts))
	return cmd
}

func newSchemaValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.cue>",
		Short: "Check table schemas without storing them",
		Long: `Compile every table declared under "table:" in a CUE file and check
the column rules: unique ids, one visible primary column, known kinds and
no reserved ids.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaValidate(rootOpts, args[0], cmd)
		},
	}
}

func runSchemaValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	defs, err := schema.LoadCUE(path)
	if err != nil {
		if outErr := formatter.Error(ErrCodeSchemaLoad, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	formatter.VerboseLog("Found %d table(s) in %s", len(defs), path)

	result := ValidationResult{Valid: true, Tables: make([]TableValidation, 0, len(defs))}
	for _, def := range defs {
		errs := schema.Validate(def)
		if len(errs) > 0 {
			result.Valid = false
		}
		result.Tables = append(result.Tables, TableValidation{
			Table:   def.ID,
			Columns: len(def.Columns),
			Errors:  errs,
		})
	}

	if !result.Valid {
		if err := formatter.Error(ErrCodeSchemaInvalid, "schema validation failed", result); err != nil {
			return err
		}
		if formatter.Format != "json" {
			_ = result.renderText(formatter.Writer)
		}
		return NewExitError(ExitFailure, "schema validation failed")
	}
	return formatter.Success(result)
}

// PushResult reports which tables were created.
type PushResult struct {
	Created []string `json:"created"`
	Existed []string `json:"existed,omitempty"`
}

func (r PushResult) renderText(w io.Writer) error {
	for _, id := range r.Created {
		fmt.Fprintf(w, "created %s\n", id)
	}
	for _, id := range r.Existed {
		fmt.Fprintf(w, "exists  %s\n", id)
	}
	return nil
}

func newSchemaPushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push <file.cue>",
		Short: "Create the tables of a CUE file",
		Long: `Validate a CUE file and create each of its tables through the
configured backend. Tables that already exist are left unchanged.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaPush(rootOpts, args[0], cmd)
		},
	}
}

func runSchemaPush(opts *RootOptions, path string, cmd *cobra.Command) error {
	defs, err := loadSchemas(path)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid schema", err)
	}

	backend, release, err := opts.openBackend()
	if err != nil {
		return err
	}
	defer release()

	ctx := commandContext(cmd)
	result := PushResult{Created: []string{}}
	for _, def := range defs {
		_, err := backend.CreateTable(ctx, def)
		switch {
		case err == nil:
			result.Created = append(result.Created, def.ID)
		case isTableConflict(err):
			result.Existed = append(result.Existed, def.ID)
		default:
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to create table %s", def.ID), err)
		}
	}
	return opts.formatter(cmd).Success(result)
}

// isTableConflict reports a taken table id from either backend.
func isTableConflict(err error) bool {
	if errors.Is(err, store.ErrTableExists) {
		return true
	}
	var httpErr *tableapi.HTTPError
	return errors.As(err, &httpErr) && httpErr.Code == tableapi.CodeConflict
}
