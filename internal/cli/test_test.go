package cli

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

func TestTestCommand_MissingArgs(t *testing.T) {
	_, err := execute("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestTestCommand_MissingPath(t *testing.T) {
	_, err := execute("test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestTestCommand_EmptyDir(t *testing.T) {
	out, err := execute("test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommand_RunsScenariosAgainstGolden(t *testing.T) {
	out, err := execute("test", scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ filter_sort")
	assert.Contains(t, out, "✓ drag_edit_delete")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_FilterJSON(t *testing.T) {
	out, err := execute("--format", "json", "test", scenariosDir, "--filter", "drag_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, "drag_edit_delete", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_UpdateThenMismatch(t *testing.T) {
	golden := t.TempDir()
	scenario := filepath.Join(scenariosDir, "filter_sort.yaml")

	_, err := execute("test", scenario, "--update", "--golden-dir", golden)
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(golden, "filter_sort.golden"))
	require.NoError(t, err)
	committed, err := os.ReadFile("../harness/testdata/golden/filter_sort.golden")
	require.NoError(t, err)
	assert.Equal(t, string(committed), string(written))

	require.NoError(t, os.WriteFile(filepath.Join(golden, "filter_sort.golden"), []byte("{}"), 0o644))
	out, err := execute("test", scenario, "--golden-dir", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_BadScenarioFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\n"), 0o644))

	out, err := execute("test", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ bad.yaml")
	assert.Contains(t, out, "failed to load scenario")
}
