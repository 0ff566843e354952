package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pulsegrid/internal/cell"
)

// TraceSnapshot captures the complete trace of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Trace        []StepTrace `json:"trace"`
}

// toCanonicalMap converts the snapshot to the generic shape accepted by
// cell.MarshalCanonical.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Trace))
	for i, st := range s.Trace {
		calls := make([]any, len(st.Calls))
		for j, c := range st.Calls {
			m := map[string]any{"op": c.Op}
			if c.RecordID != "" {
				m["record"] = c.RecordID
			}
			if c.Column != "" {
				m["column"] = c.Column
			}
			if c.Value != nil {
				m["value"] = c.Value
			}
			if c.Position != 0 {
				m["position"] = c.Position
			}
			calls[j] = m
		}
		step := map[string]any{
			"index": st.Index,
			"do":    st.Do,
			"calls": calls,
			"view":  append([]string{}, st.View...),
		}
		if st.Error != "" {
			step["error"] = st.Error
		}
		steps[i] = step
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         steps,
	}
}

// MarshalSnapshot renders a result's trace as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace}
	return cell.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
