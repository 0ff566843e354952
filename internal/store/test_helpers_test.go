package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/testutil"
)

// createTestStore creates a new store in a temp dir with sequential ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDGenerator("row")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedProjects creates the projects table and inserts A, B, C.
func seedProjects(t *testing.T, s *Store) []grid.Record {
	t.Helper()
	ctx := context.Background()
	if _, err := s.CreateTable(ctx, testutil.ProjectsSchema()); err != nil {
		t.Fatalf("CreateTable() failed: %v", err)
	}
	var out []grid.Record
	for _, r := range testutil.ABCRecords() {
		rec, err := s.InsertRow(ctx, "projects", r.Values)
		if err != nil {
			t.Fatalf("InsertRow() failed: %v", err)
		}
		out = append(out, rec)
	}
	return out
}
