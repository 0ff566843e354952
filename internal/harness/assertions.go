package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/pulsegrid/internal/cell"
)

// AssertionError is returned when an assertion fails. It includes the
// final view to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	View     []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "  View: %v\n", e.View)
	return buf.String()
}

// evaluateAssertions runs every assertion and returns the failure messages.
func (h *Harness) evaluateAssertions(assertions []Assertion) []string {
	var msgs []string
	for _, a := range assertions {
		if err := h.evaluate(a); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func (h *Harness) evaluate(a Assertion) error {
	view := h.table.View().IDs()
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, View: view}
	}

	switch a.Type {
	case AssertView:
		if !equalStrings(a.IDs, view) {
			return fail(fmt.Sprint(a.IDs), fmt.Sprint(view))
		}
	case AssertSelected:
		got := h.table.Selected()
		if !equalStrings(a.IDs, got) {
			return fail(fmt.Sprint(a.IDs), fmt.Sprint(got))
		}
	case AssertCallCount:
		if got := h.totalCalls(a.Op); got != a.Count {
			return fail(fmt.Sprintf("%d %s calls", a.Count, opLabel(a.Op)), fmt.Sprintf("%d", got))
		}
	case AssertPositions:
		var wrong []string
		for _, id := range sortedKeys(a.Positions) {
			row, ok := h.backend.Row(id)
			switch {
			case !ok:
				wrong = append(wrong, fmt.Sprintf("%s: missing", id))
			case row.Position != a.Positions[id]:
				wrong = append(wrong, fmt.Sprintf("%s: %d", id, row.Position))
			}
		}
		if len(wrong) > 0 {
			return fail(fmt.Sprint(a.Positions), strings.Join(wrong, ", "))
		}
	case AssertRow:
		row, ok := h.backend.Row(a.Record)
		if !ok {
			return fail(fmt.Sprintf("row %s", a.Record), "missing")
		}
		want, err := cell.ValuesFromMap(a.Expect)
		if err != nil {
			return fail(fmt.Sprint(a.Expect), err.Error())
		}
		for _, col := range want.Keys() {
			if got := row.Value(col); !cell.Equal(got, want[col]) {
				return fail(fmt.Sprintf("%s.%s = %q", a.Record, col, cell.String(want[col])),
					fmt.Sprintf("%q", cell.String(got)))
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// totalCalls counts op requests over all steps. An empty op counts every
// request.
func (h *Harness) totalCalls(op string) int {
	n := 0
	for _, c := range h.calls {
		if op == "" || c.Op == op {
			n++
		}
	}
	return n
}

func opLabel(op string) string {
	if op == "" {
		return "backend"
	}
	return op
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
