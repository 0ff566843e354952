// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/pulsegrid/internal/queryir"
)

// ContainsFunc is the SQL function the store registers on every
// connection. grid_contains(values_json, column, needle) reports whether
// needle is a case-insensitive substring of the cell's display text.
const ContainsFunc = "grid_contains"

// RowsTable is the table holding the rows of every grid table.
const RowsTable = "grid_rows"

// SQLCompiler compiles queryir queries to parameterized SQL for SQLite.
//
// Every row query ends in a deterministic ORDER BY and every value is
// bound as a parameter.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to a (sql, params) pair.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Count:
		return c.compileCount(query)
	case *queryir.Count:
		return c.compileCount(*query)
	case queryir.MaxPosition:
		return c.compileMaxPosition(query)
	case *queryir.MaxPosition:
		return c.compileMaxPosition(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	where, params, err := c.compileWhere(q.Table, q.Filter)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT id, position, values_json FROM ")
	b.WriteString(RowsTable)
	b.WriteString(where)
	b.WriteString(" ORDER BY ")
	b.WriteString(stableOrderKey())
	if q.Limit > 0 {
		// Limit is an int, never user text.
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	return b.String(), params, nil
}

func (c *SQLCompiler) compileCount(q queryir.Count) (string, []any, error) {
	where, params, err := c.compileWhere(q.Table, q.Filter)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + RowsTable + where, params, nil
}

func (c *SQLCompiler) compileMaxPosition(q queryir.MaxPosition) (string, []any, error) {
	return "SELECT COALESCE(MAX(position), 0) FROM " + RowsTable + " WHERE table_id = ?",
		[]any{q.Table}, nil
}

// compileWhere scopes the query to one table and appends the filter.
func (c *SQLCompiler) compileWhere(table string, filter queryir.Predicate) (string, []any, error) {
	where := " WHERE table_id = ?"
	params := []any{table}
	if filter == nil {
		return where, params, nil
	}
	sql, filterParams, err := c.compilePredicate(filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return where + " AND " + sql, append(params, filterParams...), nil
}

// stableOrderKey is the ORDER BY of every row query. Positions can tie
// after a partial reorder failure, so id breaks ties byte-wise.
func stableOrderKey() string {
	return "position ASC, id COLLATE BINARY ASC"
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Contains:
		return c.compileContains(pred)
	case *queryir.Contains:
		return c.compileContains(*pred)
	case queryir.IDEquals:
		return "id = ?", []any{pred.ID}, nil
	case *queryir.IDEquals:
		return "id = ?", []any{pred.ID}, nil
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileContains(p queryir.Contains) (string, []any, error) {
	return ContainsFunc + "(values_json, ?, ?)", []any{p.Column, p.Needle}, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}
