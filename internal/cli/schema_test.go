package cli

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invalidCUE = `table: broken: {
	name: "Broken"
	columns: [
		{id: "a", name: "A", primary: true},
		{id: "b", name: "B", primary: true},
	]
}
`

func writeCUE(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.cue")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSchemaValidate_Valid(t *testing.T) {
	out, err := execute("schema", "validate", projectsCUE)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ projects (4 columns)")
}

func TestSchemaValidate_InvalidJSON(t *testing.T) {
	out, err := execute("--format", "json", "schema", "validate", writeCUE(t, invalidCUE))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSchemaInvalid, resp.Error.Code)
	assert.Contains(t, out, "E206")
}

func TestSchemaValidate_InvalidText(t *testing.T) {
	out, err := execute("schema", "validate", writeCUE(t, invalidCUE))
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "[E206]")
}

func TestSchemaValidate_LoadError(t *testing.T) {
	_, err := execute("schema", "validate", writeCUE(t, "table: x: {"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSchemaPush(t *testing.T) {
	env := newTestEnv(t)
	path := writeCUE(t, `table: tasks: {
	name: "Tasks"
	columns: [{id: "title", name: "Title", primary: true}]
}
table: projects: {
	name: "Projects"
	columns: [{id: "name", name: "Name", primary: true}]
}
`)

	out, err := env.run("schema", "push", path)
	require.NoError(t, err)
	assert.Contains(t, out, "created tasks")
	assert.Contains(t, out, "exists  projects")

	out, err = env.run("rows", "list", "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "0 of 0 rows")
}

func TestSchemaPush_RejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("schema", "push", writeCUE(t, invalidCUE))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid schema")
}
