package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsegrid/internal/grid"
)

const projectsSchema = "testdata/schemas/projects.cue"

// abcScenario returns a scenario over rows A, B, C with the given steps.
func abcScenario(name string, steps ...Step) *Scenario {
	return &Scenario{
		Name:        name,
		Description: "inline scenario",
		Schema:      projectsSchema,
		Table:       "projects",
		Rows: []RowSpec{
			{ID: "1", Position: 1, Values: map[string]any{"name": "A", "status": "open"}},
			{ID: "2", Position: 2, Values: map[string]any{"name": "B", "status": "closed"}},
			{ID: "3", Position: 3, Values: map[string]any{"name": "C", "status": "open"}},
		},
		Steps: steps,
	}
}

func TestScenarioFiles_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Steps))
		})
	}
}

func TestRun_EmptyDeleteMakesNoCalls(t *testing.T) {
	s := abcScenario("empty_delete",
		Step{Do: StepDeleteSelected, Expect: &ExpectClause{Error: string(grid.ErrCodeNoSelection)}},
	)
	s.Assertions = []Assertion{{Type: AssertCallCount, Count: 0}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Trace[0].Calls)
	assert.Equal(t, []string{"1", "2", "3"}, result.Trace[0].View)
}

func TestRun_EscapeDiscardsWithoutCall(t *testing.T) {
	s := abcScenario("escape",
		Step{Do: StepBeginEdit, Args: map[string]any{"record": "1", "column": "name"}},
		Step{Do: StepSetDraft, Args: map[string]any{"value": "Changed"}},
		Step{Do: StepStopEdit, Args: map[string]any{"reason": "escape"}},
	)
	s.Assertions = []Assertion{
		{Type: AssertCallCount, Count: 0},
		{Type: AssertRow, Record: "1", Expect: map[string]any{"name": "A"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnchangedEnterMakesNoCall(t *testing.T) {
	s := abcScenario("unchanged",
		Step{Do: StepEdit, Args: map[string]any{"record": "2", "column": "name", "value": "B", "reason": "enter"}},
	)
	s.Assertions = []Assertion{{Type: AssertCallCount, Op: grid.OpCell, Count: 0}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InsertAppendsRow(t *testing.T) {
	s := abcScenario("insert",
		Step{Do: StepInsert, Args: map[string]any{"values": map[string]any{"name": "D"}}},
	)
	s.Assertions = []Assertion{
		{Type: AssertView, IDs: []string{"1", "2", "3", "row-001"}},
		{Type: AssertPositions, Positions: map[string]int64{"row-001": 4}},
		{Type: AssertCallCount, Op: grid.OpInsert, Count: 1},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	s := abcScenario("wrong",
		Step{Do: StepAddFilter, Args: map[string]any{"column": "name", "value": "a"}, Expect: &ExpectClause{View: []string{"2"}}},
	)
	s.Assertions = []Assertion{
		{Type: AssertSelected, IDs: []string{"1"}},
		{Type: AssertCallCount, Count: 5},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "view = [1], want [2]")
}

func TestRun_UnexpectedErrorFailsStep(t *testing.T) {
	s := abcScenario("missing_row",
		Step{Do: StepToggleSelect, Args: map[string]any{"id": "nope"}},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, string(grid.ErrCodeNotFound), result.Trace[0].Error)
}

func TestRun_BadArgIsReportedAsStepError(t *testing.T) {
	s := abcScenario("bad_arg",
		Step{Do: StepMove, Args: map[string]any{"from": "zero", "to": 1}, Expect: &ExpectClause{Error: "BAD_STEP"}},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SetupErrors(t *testing.T) {
	s := abcScenario("unknown_table", Step{Do: StepLoad})
	s.Table = "missing"
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `table "missing" not declared`)

	s = abcScenario("bad_schema", Step{Do: StepLoad})
	s.Schema = filepath.Join(t.TempDir(), "absent.cue")
	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load schema")

	s = abcScenario("failing_fetch", Step{Do: StepLoad})
	s.Failures = []FailureSpec{{Op: grid.OpFetch, Message: "offline", Permanent: true}}
	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load table")
}

func TestMarshalSnapshot_IsDeterministic(t *testing.T) {
	result := NewResult()
	result.Trace = append(result.Trace, StepTrace{
		Index: 0,
		Do:    StepDrop,
		Calls: []CallTrace{{Op: grid.OpPosition, RecordID: "1", Position: 2}},
		View:  []string{"2", "1"},
	})

	data, err := MarshalSnapshot("snap", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"snap","trace":[{"calls":[{"op":"update_position","position":2,"record":"1"}],"do":"drop","index":0,"view":["2","1"]}]}`,
		string(data))
}

func TestGoldenFilesExistForEveryScenario(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join("testdata/golden", scenario.Name+".golden"))
		assert.NoError(t, err, "missing golden for %s", scenario.Name)
	}
}
