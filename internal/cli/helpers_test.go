package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/store"
	"github.com/roach88/pulsegrid/internal/testutil"
)

const projectsCUE = "../harness/testdata/schemas/projects.cue"

// testEnv is a config file pointing at a seeded temp database.
type testEnv struct {
	dir    string
	db     string
	config string
}

// newTestEnv creates the projects table with rows A, B, C stored as
// row-001, row-002 and row-003.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:    dir,
		db:     filepath.Join(dir, "grid.db"),
		config: filepath.Join(dir, "pulsegrid.yaml"),
	}

	body := fmt.Sprintf("database:\n  path: %s\nlog:\n  level: error\n", env.db)
	require.NoError(t, os.WriteFile(env.config, []byte(body), 0o644))

	st, err := store.Open(env.db, store.WithIDGenerator(testutil.NewSequentialIDGenerator("row")))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	_, err = st.CreateTable(ctx, testutil.ProjectsSchema())
	require.NoError(t, err)
	for _, r := range testutil.ABCRecords() {
		_, err := st.InsertRow(ctx, "projects", r.Values)
		require.NoError(t, err)
	}
	return env
}

// rows reads the projects rows straight from the database.
func (e *testEnv) rows(t *testing.T) []grid.Record {
	t.Helper()
	st, err := store.Open(e.db)
	require.NoError(t, err)
	defer st.Close()
	rows, err := st.ListRows(context.Background(), "projects")
	require.NoError(t, err)
	return rows
}

// run executes the root command with --config prepended.
func (e *testEnv) run(args ...string) (string, error) {
	return execute(append([]string{"--config", e.config}, args...)...)
}

func execute(args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
