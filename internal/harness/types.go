package harness

import (
	"sort"

	"github.com/roach88/pulsegrid/internal/testutil"
)

// CallTrace is one backend request as recorded in a trace.
type CallTrace struct {
	Op       string `json:"op"`
	RecordID string `json:"record,omitempty"`
	Column   string `json:"column,omitempty"`
	Value    any    `json:"value,omitempty"`
	Position int64  `json:"position,omitempty"`
}

// StepTrace records what one step did.
type StepTrace struct {
	Index int         `json:"index"`
	Do    string      `json:"do"`
	Calls []CallTrace `json:"calls"`
	View  []string    `json:"view"`
	Error string      `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace has one entry per executed step.
	Trace []StepTrace `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// callTraces converts recorded calls into a deterministic order.
func callTraces(calls []testutil.Call) []CallTrace {
	out := make([]CallTrace, len(calls))
	for i, c := range calls {
		out[i] = CallTrace{Op: c.Op, RecordID: c.RecordID, Column: c.Column, Position: c.Position}
		if c.Value != nil {
			out[i].Value = c.Value
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Op != out[j].Op {
			return out[i].Op < out[j].Op
		}
		return out[i].RecordID < out[j].RecordID
	})
	return out
}
