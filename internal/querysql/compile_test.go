package querysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/queryir"
)

func TestCompile_SelectAll(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{Table: "projects"})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, position, values_json FROM grid_rows WHERE table_id = ? ORDER BY position ASC, id COLLATE BINARY ASC",
		sql)
	assert.Equal(t, []any{"projects"}, params)
}

func TestCompile_SelectPointer(t *testing.T) {
	sql, _, err := NewSQLCompiler().Compile(&queryir.Select{Table: "projects", Limit: 5})
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY position ASC")
	assert.True(t, strings.HasSuffix(sql, " LIMIT 5"), sql)
}

func TestCompile_FiltersAreParameterized(t *testing.T) {
	q := queryir.FromFilters("projects", []grid.Filter{
		{Column: "name", Value: "'; DROP TABLE grid_rows; --"},
		{Column: "status", Value: "open"},
	})

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE table_id = ? AND (grid_contains(values_json, ?, ?) AND grid_contains(values_json, ?, ?))")
	assert.NotContains(t, sql, "DROP")
	assert.NotContains(t, sql, "open")
	assert.Equal(t, []any{"projects", "name", "'; DROP TABLE grid_rows; --", "status", "open"}, params)
	assert.Contains(t, sql, "COLLATE BINARY")
}

func TestCompile_IDEquals(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		Table:  "projects",
		Filter: &queryir.IDEquals{ID: "row-1"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "AND id = ?")
	assert.Equal(t, []any{"projects", "row-1"}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Count{Table: "t", Filter: queryir.And{}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM grid_rows WHERE table_id = ? AND 1 = 1", sql)
	assert.Equal(t, []any{"t"}, params)
}

func TestCompile_MaxPosition(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.MaxPosition{Table: "t"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COALESCE(MAX(position), 0) FROM grid_rows WHERE table_id = ?", sql)
	assert.Equal(t, []any{"t"}, params)
}

func TestCompile_Errors(t *testing.T) {
	c := NewSQLCompiler()

	_, _, err := c.Compile(nil)
	assert.Error(t, err)

	_, _, err = c.Compile(queryir.Select{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query")

	_, _, err = c.Compile(queryir.Select{Table: "t", Filter: queryir.Contains{Column: "name"}})
	assert.Error(t, err)
}

func TestCompile_PointerForms(t *testing.T) {
	c := NewSQLCompiler()

	sql, params, err := c.Compile(&queryir.Select{Table: "projects", Filter: &queryir.IDEquals{ID: "row-1"}})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, position, values_json FROM grid_rows WHERE table_id = ? AND id = ? ORDER BY position ASC, id COLLATE BINARY ASC",
		sql)
	assert.Equal(t, []any{"projects", "row-1"}, params)

	sql, params, err = c.Compile(&queryir.Count{Table: "projects", Filter: &queryir.And{Predicates: []queryir.Predicate{
		&queryir.Contains{Column: "name", Needle: "a"},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM grid_rows WHERE table_id = ? AND (grid_contains(values_json, ?, ?))", sql)
	assert.Equal(t, []any{"projects", "name", "a"}, params)

	_, _, err = c.Compile(&queryir.MaxPosition{Table: "projects"})
	require.NoError(t, err)

	_, _, err = c.Compile(&queryir.Select{Table: "projects", Filter: &queryir.IDEquals{}})
	assert.Error(t, err)
}
