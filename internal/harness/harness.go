package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/schema"
	"github.com/roach88/pulsegrid/internal/testutil"
)

// scenarioRetry keeps position retries fast and their count fixed.
var scenarioRetry = grid.RetryPolicy{
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
	MaxInterval:     time.Millisecond,
}

// injectedError is a scripted backend failure.
type injectedError struct {
	msg       string
	permanent bool
}

func (e *injectedError) Error() string   { return e.msg }
func (e *injectedError) Temporary() bool { return !e.permanent }

// Harness executes one scenario against a fresh table and fake backend.
type Harness struct {
	table   *grid.Table
	backend *testutil.FakeBackend
	calls   []testutil.Call
	logger  *slog.Logger
}

// Run executes a scenario and returns the result. An error is returned only
// when the scenario cannot be set up; step and assertion failures are
// reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	def, err := loadTable(scenario.Schema, scenario.Table)
	if err != nil {
		return nil, err
	}

	backend, err := seedBackend(scenario)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios
	h := &Harness{
		table: grid.NewTable(def.ID, def, backend,
			grid.WithLogger(logger),
			grid.WithRetry(scenarioRetry),
		),
		backend: backend,
		logger:  logger,
	}

	result := NewResult()
	if err := h.table.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}
	backend.ResetCalls()

	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	for _, msg := range h.evaluateAssertions(scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func loadTable(path, table string) (*schema.Schema, error) {
	tables, err := schema.LoadCUE(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	for _, def := range tables {
		if def.ID != table {
			continue
		}
		if errs := schema.Validate(def); len(errs) > 0 {
			return nil, fmt.Errorf("invalid schema %s: %w", table, errs[0])
		}
		return def, nil
	}
	return nil, fmt.Errorf("table %q not declared in %s", table, path)
}

func seedBackend(scenario *Scenario) (*testutil.FakeBackend, error) {
	rows := make([]grid.Record, 0, len(scenario.Rows))
	for i, r := range scenario.Rows {
		values, err := cell.ValuesFromMap(r.Values)
		if err != nil {
			return nil, fmt.Errorf("rows[%d]: %w", i, err)
		}
		rows = append(rows, grid.Record{ID: r.ID, Position: r.Position, Values: values})
	}

	backend := testutil.NewFakeBackend(rows...)
	for _, f := range scenario.Failures {
		err := &injectedError{msg: f.Message, permanent: f.Permanent}
		if f.Times == 0 {
			backend.FailOn(f.Op, f.Record, err)
		} else {
			backend.FailTimes(f.Op, f.Record, f.Times, err)
		}
	}
	return backend, nil
}

// executeStep runs one step and records its trace entry.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	h.backend.ResetCalls()
	err := h.apply(ctx, step)
	calls := h.backend.Calls()
	h.calls = append(h.calls, calls...)

	trace := StepTrace{
		Index: index,
		Do:    step.Do,
		Calls: callTraces(calls),
		View:  h.table.View().IDs(),
		Error: errorCode(err),
	}
	result.Trace = append(result.Trace, trace)

	if step.Expect == nil {
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", index, step.Do, err))
		}
		return
	}
	if step.Expect.Error != trace.Error {
		result.AddError(fmt.Sprintf("steps[%d] %s: error code = %q, want %q (%v)",
			index, step.Do, trace.Error, step.Expect.Error, err))
	}
	if step.Expect.View != nil && !equalStrings(step.Expect.View, trace.View) {
		result.AddError(fmt.Sprintf("steps[%d] %s: view = %v, want %v", index, step.Do, trace.View, step.Expect.View))
	}
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := grid.CodeOf(err); code != "" {
		return string(code)
	}
	var argErr *argError
	if errors.As(err, &argErr) {
		return "BAD_STEP"
	}
	return "ERROR"
}

// apply dispatches a step to the table.
func (h *Harness) apply(ctx context.Context, step Step) error {
	a := args(step.Args)
	t := h.table

	switch step.Do {
	case StepLoad:
		return t.Load(ctx)
	case StepAddFilter:
		column, value := a.text("column"), a.text("value")
		if a.err != nil {
			return a.err
		}
		return t.AddFilter(column, value)
	case StepRemoveFilter:
		index := a.integer("index")
		if a.err != nil {
			return a.err
		}
		return t.RemoveFilter(index)
	case StepClearFilters:
		t.ClearFilters()
		return nil
	case StepToggleSort:
		column := a.text("column")
		if a.err != nil {
			return a.err
		}
		t.ToggleSort(column)
		return nil
	case StepBeginEdit:
		record, column := a.text("record"), a.text("column")
		if a.err != nil {
			return a.err
		}
		return t.BeginEdit(ctx, record, column)
	case StepSetDraft:
		v := a.value("value")
		if a.err != nil {
			return a.err
		}
		return t.SetDraft(v)
	case StepStopEdit:
		reason := a.text("reason")
		if a.err != nil {
			return a.err
		}
		r, err := grid.ParseStopReason(reason)
		if err != nil {
			return err
		}
		return t.StopEdit(ctx, r)
	case StepEdit:
		return h.edit(ctx, a)
	case StepMove:
		from, to := a.integer("from"), a.integer("to")
		if a.err != nil {
			return a.err
		}
		_, err := t.MoveRow(from, to)
		return err
	case StepDrop:
		return t.DropRow(ctx)
	case StepToggleSelect:
		id := a.text("id")
		if a.err != nil {
			return a.err
		}
		_, err := t.ToggleSelect(id)
		return err
	case StepClearSelection:
		t.ClearSelection()
		return nil
	case StepDeleteSelected:
		_, err := t.DeleteSelected(ctx)
		return err
	case StepInsert:
		values := a.values("values")
		if a.err != nil {
			return a.err
		}
		_, err := t.Insert(ctx, values)
		return err
	default:
		return &argError{msg: fmt.Sprintf("unknown step %q", step.Do)}
	}
}

// edit opens a cell, types a value and stops editing.
func (h *Harness) edit(ctx context.Context, a *argReader) error {
	record, column, v, reason := a.text("record"), a.text("column"), a.value("value"), a.text("reason")
	if a.err != nil {
		return a.err
	}
	r, err := grid.ParseStopReason(reason)
	if err != nil {
		return err
	}
	if err := h.table.BeginEdit(ctx, record, column); err != nil {
		return err
	}
	if err := h.table.SetDraft(v); err != nil {
		return err
	}
	return h.table.StopEdit(ctx, r)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
