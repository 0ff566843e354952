package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/metrics"
)

// ImportFile is the YAML layout read by rows import:
//
//	rows:
//	  - {name: Alpha, budget: 120, labels: [infra]}
//	  - {name: Beta, done: true}
type ImportFile struct {
	Rows []map[string]any `yaml:"rows"`
}

// ImportOptions holds flags for rows import.
type ImportOptions struct {
	*RootOptions
	FailFast bool
}

// ImportResult summarizes an import.
type ImportResult struct {
	Table    string   `json:"table"`
	Inserted []string `json:"inserted"`
	Failed   []string `json:"failed,omitempty"` // "rows[i]: reason"
	Total    int      `json:"total"`
}

func (r ImportResult) String() string {
	return fmt.Sprintf("imported %d of %d row(s) into %s", len(r.Inserted), r.Total, r.Table)
}

func newRowsImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <table> <file.yaml>",
		Short: "Insert rows from a YAML file",
		Long: `Insert every entry of a YAML file's "rows" list, in file order.

Each inserted row gets the next position after the current maximum.
Progress is reported on stderr with --verbose.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRowsImport(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first row that fails")

	return cmd
}

func runRowsImport(opts *ImportOptions, tableID, path string, cmd *cobra.Command) error {
	file, err := readImportFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read import file", err)
	}

	ctx := commandContext(cmd)
	t, release, err := opts.openTable(ctx, tableID)
	if err != nil {
		return err
	}
	defer release()

	formatter := opts.formatter(cmd)
	progress := t.Progress()
	unsubscribe := progress.Subscribe(func(p grid.ProgressState) {
		if p.Running {
			formatter.VerboseLog("%s: %d/%d (%d failed)", p.Label, p.Done+p.Failed, p.Total, p.Failed)
		}
	})
	defer unsubscribe()

	result := ImportResult{Table: tableID, Inserted: []string{}, Total: len(file.Rows)}
	progress.Start("import", len(file.Rows))
	for i, row := range file.Rows {
		rec, err := importRow(ctx, t, row)
		metrics.RecordImportedRow(err)
		progress.Advance(err)
		if err != nil {
			result.Failed = append(result.Failed, fmt.Sprintf("rows[%d]: %v", i, err))
			if opts.FailFast {
				break
			}
			continue
		}
		result.Inserted = append(result.Inserted, rec.ID)
	}
	progress.Finish()

	if err := formatter.Success(result); err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d row(s) failed to import", len(result.Failed)))
	}
	return nil
}

func importRow(ctx context.Context, t *grid.Table, row map[string]any) (grid.Record, error) {
	values, err := cell.ValuesFromMap(row)
	if err != nil {
		return grid.Record{}, err
	}
	return t.Insert(ctx, values)
}

func readImportFile(path string) (*ImportFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file ImportFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Rows) == 0 {
		return nil, fmt.Errorf("%s has no rows", path)
	}
	return &file, nil
}
