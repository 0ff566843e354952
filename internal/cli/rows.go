package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/schema"
	"github.com/roach88/pulsegrid/internal/tableapi"
)

// RowsListOptions holds flags for rows list.
type RowsListOptions struct {
	*RootOptions
	Filters []string
	Sort    string
}

// RowsResult is a rendered table view.
type RowsResult struct {
	Table   string          `json:"table"`
	Columns []schema.Column `json:"columns"`
	Rows    []grid.Record   `json:"rows"`
	Total   int             `json:"total"`
}

// MutationResult reports the outcome of a write command.
type MutationResult struct {
	Table   string   `json:"table"`
	Action  string   `json:"action"`
	IDs     []string `json:"ids,omitempty"`
	Failed  []string `json:"failed,omitempty"`
	Message string   `json:"message,omitempty"`
}

func (r MutationResult) renderText(w io.Writer) error {
	_, err := fmt.Fprintln(w, r.Message)
	return err
}

// NewRowsCommand creates the rows command group.
func NewRowsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Read and change table rows",
		Long: `Work with the rows of a table through the grid engine.

Rows are read from the table API when client.url is configured and from
the local database otherwise.`,
	}

	cmd.AddCommand(newRowsListCommand(rootOpts))
	cmd.AddCommand(newRowsEditCommand(rootOpts))
	cmd.AddCommand(newRowsMoveCommand(rootOpts))
	cmd.AddCommand(newRowsDeleteCommand(rootOpts))
	cmd.AddCommand(newRowsImportCommand(rootOpts))

	return cmd
}

func newRowsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RowsListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "Print the filtered and sorted view of a table",
		Example: `  pulsegrid rows list projects
  pulsegrid rows list projects --filter name:alpha --filter status:open
  pulsegrid rows list projects --sort budget:desc --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRowsList(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "column:value substring filter (repeatable, ANDed)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort column, optionally suffixed with :asc or :desc")

	return cmd
}

func runRowsList(opts *RowsListOptions, tableID string, cmd *cobra.Command) error {
	filters := make([]grid.Filter, 0, len(opts.Filters))
	for _, raw := range opts.Filters {
		f, err := tableapi.ParseFilterParam(raw)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --filter", err)
		}
		filters = append(filters, f)
	}
	sortState, err := parseSortFlag(opts.Sort)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --sort", err)
	}

	ctx := commandContext(cmd)
	t, release, err := opts.openTable(ctx, tableID)
	if err != nil {
		return err
	}
	defer release()

	for _, f := range filters {
		if err := t.AddFilter(f.Column, f.Value); err != nil {
			return WrapExitError(ExitCommandError, "invalid --filter", err)
		}
	}
	if err := t.SetSort(sortState); err != nil {
		return WrapExitError(ExitCommandError, "invalid --sort", err)
	}

	view := t.View()
	return opts.formatter(cmd).Success(RowsResult{
		Table:   tableID,
		Columns: t.Schema().Visible(),
		Rows:    view.Records,
		Total:   view.Total,
	})
}

// parseSortFlag parses "column[:asc|:desc]". Empty means base order.
func parseSortFlag(s string) (*grid.SortState, error) {
	if s == "" {
		return nil, nil
	}
	col, dir, _ := strings.Cut(s, ":")
	if col == "" {
		return nil, fmt.Errorf("sort %q has no column", s)
	}
	switch grid.Direction(dir) {
	case "", grid.Asc:
		return &grid.SortState{Key: col, Direction: grid.Asc}, nil
	case grid.Desc:
		return &grid.SortState{Key: col, Direction: grid.Desc}, nil
	default:
		return nil, fmt.Errorf("sort direction %q must be asc or desc", dir)
	}
}

func (r RowsResult) renderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"ID", "POS"}
	for _, c := range r.Columns {
		header = append(header, strings.ToUpper(c.Name))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, rec := range r.Rows {
		line := []string{rec.ID, strconv.FormatInt(rec.Position, 10)}
		for _, c := range r.Columns {
			line = append(line, cell.String(rec.Value(c.ID)))
		}
		fmt.Fprintln(tw, strings.Join(line, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d rows\n", len(r.Rows), r.Total)
	return err
}

func newRowsEditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <table> <row> <column> <value>",
		Short: "Set one cell",
		Long: `Set one cell the way an inline edit does: the value is persisted
only when it differs from the stored one.

Values are parsed by column kind: numbers as integers, checkboxes as
true/false, tags as a comma-separated list. An empty string clears the cell.`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRowsEdit(rootOpts, args, cmd)
		},
	}
}

func runRowsEdit(opts *RootOptions, args []string, cmd *cobra.Command) error {
	tableID, rowID, column, raw := args[0], args[1], args[2], args[3]

	ctx := commandContext(cmd)
	t, release, err := opts.openTable(ctx, tableID)
	if err != nil {
		return err
	}
	defer release()

	col, ok := t.Schema().Column(column)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("table %s has no column %q", tableID, column))
	}
	v, err := parseCellArg(col, raw)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid value", err)
	}

	if err := t.BeginEdit(ctx, rowID, column); err != nil {
		return WrapExitError(ExitCommandError, "cannot edit cell", err)
	}
	if err := t.SetDraft(v); err != nil {
		return WrapExitError(ExitCommandError, "cannot edit cell", err)
	}
	if err := t.StopEdit(ctx, grid.StopEnter); err != nil {
		return WrapExitError(ExitFailure, "edit was not saved", err)
	}

	rec, _ := t.Store().Get(rowID)
	return opts.formatter(cmd).Success(MutationResult{
		Table:   tableID,
		Action:  "edit",
		IDs:     []string{rowID},
		Message: fmt.Sprintf("%s.%s = %s", rowID, column, cell.String(rec.Value(column))),
	})
}

// parseCellArg converts a command-line string to a value of the column's
// kind.
func parseCellArg(col schema.Column, raw string) (cell.Value, error) {
	if raw == "" {
		return cell.Empty{}, nil
	}
	switch col.Kind {
	case cell.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q expects an integer: %w", col.ID, err)
		}
		return cell.Int(n), nil
	case cell.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q expects true or false: %w", col.ID, err)
		}
		return cell.Bool(b), nil
	case cell.KindTags:
		var tags cell.Tags
		for _, part := range strings.Split(raw, ",") {
			if name := strings.TrimSpace(part); name != "" {
				tags = append(tags, name)
			}
		}
		return tags, nil
	default:
		return cell.Text(raw), nil
	}
}

func newRowsMoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <table> <from> <to>",
		Short: "Drag a row to another index and persist positions",
		Long: `Move the row at view index <from> to view index <to> (both zero-based,
in base order), then drop it. Every row whose position changed is written
back with position = index + 1.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRowsMove(rootOpts, args, cmd)
		},
	}
}

func runRowsMove(opts *RootOptions, args []string, cmd *cobra.Command) error {
	tableID := args[0]
	from, err := strconv.Atoi(args[1])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid <from>", err)
	}
	to, err := strconv.Atoi(args[2])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid <to>", err)
	}

	ctx := commandContext(cmd)
	t, release, err := opts.openTable(ctx, tableID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := t.MoveRow(from, to); err != nil {
		return WrapExitError(ExitCommandError, "cannot move row", err)
	}
	dropErr := t.DropRow(ctx)

	result := MutationResult{Table: tableID, Action: "move", IDs: t.View().IDs()}
	var reorderErr *grid.ReorderError
	switch {
	case dropErr == nil:
		result.Message = fmt.Sprintf("order: %s", strings.Join(result.IDs, ", "))
	case errors.As(dropErr, &reorderErr):
		result.Failed = reorderErr.FailedIDs()
		result.Message = fmt.Sprintf("positions not saved for: %s", strings.Join(result.Failed, ", "))
	default:
		return WrapExitError(ExitFailure, "failed to save positions", dropErr)
	}

	if err := opts.formatter(cmd).Success(result); err != nil {
		return err
	}
	if dropErr != nil {
		return WrapExitError(ExitFailure, "move partially failed", dropErr)
	}
	return nil
}

func newRowsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <table> <row>...",
		Short:         "Select rows and delete them",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRowsDelete(rootOpts, args[0], args[1:], cmd)
		},
	}
}

func runRowsDelete(opts *RootOptions, tableID string, ids []string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	t, release, err := opts.openTable(ctx, tableID)
	if err != nil {
		return err
	}
	defer release()

	for _, id := range ids {
		selected, err := t.ToggleSelect(id)
		if err != nil {
			return WrapExitError(ExitCommandError, "cannot select row", err)
		}
		if !selected {
			// Listed twice; toggle back on.
			if _, err := t.ToggleSelect(id); err != nil {
				return WrapExitError(ExitCommandError, "cannot select row", err)
			}
		}
	}

	deleted, delErr := t.DeleteSelected(ctx)
	result := MutationResult{Table: tableID, Action: "delete", IDs: deleted}
	var bulkErr *grid.BulkDeleteError
	switch {
	case delErr == nil:
		result.Message = fmt.Sprintf("deleted %d row(s)", len(deleted))
	case errors.As(delErr, &bulkErr):
		result.Failed = bulkErr.FailedIDs()
		result.Message = fmt.Sprintf("deleted %d row(s), failed: %s", len(deleted), strings.Join(result.Failed, ", "))
	default:
		return WrapExitError(ExitFailure, "delete failed", delErr)
	}

	if err := opts.formatter(cmd).Success(result); err != nil {
		return err
	}
	if delErr != nil {
		return WrapExitError(ExitFailure, "delete partially failed", delErr)
	}
	return nil
}
