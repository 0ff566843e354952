package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/queryir"
	"github.com/roach88/pulsegrid/internal/schema"
)

var _ grid.Backend = (*Store)(nil)

// ListRows returns every row of a table in position order.
func (s *Store) ListRows(ctx context.Context, table string) ([]grid.Record, error) {
	return s.ListRowsFiltered(ctx, table, nil)
}

// ListRowsFiltered returns the rows matching every filter, in position
// order. A filter on a column the table lacks matches nothing.
func (s *Store) ListRowsFiltered(ctx context.Context, table string, filters []grid.Filter) ([]grid.Record, error) {
	def, err := getTable(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	return s.selectRows(ctx, s.db, def, queryir.FromFilters(table, filters))
}

// CountRows returns the number of rows matching every filter.
func (s *Store) CountRows(ctx context.Context, table string, filters []grid.Filter) (int, error) {
	if _, err := getTable(ctx, s.db, table); err != nil {
		return 0, err
	}
	sel := queryir.FromFilters(table, filters)
	sqlText, params, err := s.compiler.Compile(queryir.Count{Table: table, Filter: sel.Filter})
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, sqlText, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// GetRow returns one row.
func (s *Store) GetRow(ctx context.Context, table, rowID string) (grid.Record, error) {
	def, err := getTable(ctx, s.db, table)
	if err != nil {
		return grid.Record{}, err
	}
	return s.getRow(ctx, s.db, def, rowID)
}

// InsertRow appends a row after the last position of the table and returns
// it with its generated id.
func (s *Store) InsertRow(ctx context.Context, table string, values cell.Values) (grid.Record, error) {
	var out grid.Record
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		def, err := getTable(ctx, tx, table)
		if err != nil {
			return err
		}
		if err := checkValues(def, values); err != nil {
			return err
		}

		sqlText, params, err := s.compiler.Compile(queryir.MaxPosition{Table: table})
		if err != nil {
			return err
		}
		var maxPos int64
		if err := tx.QueryRowContext(ctx, sqlText, params...).Scan(&maxPos); err != nil {
			return fmt.Errorf("max position: %w", err)
		}

		rec := grid.Record{ID: s.ids.Generate(), Position: maxPos + 1, Values: values.Clone()}
		data, err := rec.Values.MarshalJSON()
		if err != nil {
			return fmt.Errorf("marshal values: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO grid_rows (table_id, id, position, values_json)
			VALUES (?, ?, ?, ?)
		`, table, rec.ID, rec.Position, string(data)); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
		out = fillColumns(def, rec)
		return nil
	})
	if err != nil {
		return grid.Record{}, err
	}
	s.logger.Debug("row inserted", "table", table, "row", out.ID, "position", out.Position)
	return out, nil
}

// UpdateCell sets one cell and returns the stored row.
func (s *Store) UpdateCell(ctx context.Context, table, rowID, column string, v cell.Value) (grid.Record, error) {
	return s.UpdateCells(ctx, table, rowID, cell.Values{column: v})
}

// UpdateCells merges values into a row and returns the stored row.
// Columns absent from values keep their stored value.
func (s *Store) UpdateCells(ctx context.Context, table, rowID string, values cell.Values) (grid.Record, error) {
	var out grid.Record
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		def, err := getTable(ctx, tx, table)
		if err != nil {
			return err
		}
		if err := checkValues(def, values); err != nil {
			return err
		}
		rec, err := s.getRow(ctx, tx, def, rowID)
		if err != nil {
			return err
		}
		for col, v := range values {
			rec.Values[col] = cell.Clone(v)
		}
		data, err := rec.Values.MarshalJSON()
		if err != nil {
			return fmt.Errorf("marshal values: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE grid_rows SET values_json = ? WHERE table_id = ? AND id = ?
		`, string(data), table, rowID); err != nil {
			return fmt.Errorf("update row: %w", err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return grid.Record{}, err
	}
	s.logger.Debug("row updated", "table", table, "row", rowID, "columns", len(values))
	return out, nil
}

// UpdatePosition moves a row to a new position. Positions must be
// positive; ties with other rows are allowed.
func (s *Store) UpdatePosition(ctx context.Context, table, rowID string, position int64) error {
	if position < 1 {
		return fmt.Errorf("update position: %w: position must be positive, got %d", ErrInvalid, position)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTable(ctx, tx, table); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE grid_rows SET position = ? WHERE table_id = ? AND id = ?
		`, position, table, rowID)
		if err != nil {
			return fmt.Errorf("update position: %w", err)
		}
		return requireAffected(res, table, rowID)
	})
}

// DeleteRow removes a row.
func (s *Store) DeleteRow(ctx context.Context, table, rowID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTable(ctx, tx, table); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM grid_rows WHERE table_id = ? AND id = ?`, table, rowID)
		if err != nil {
			return fmt.Errorf("delete row: %w", err)
		}
		return requireAffected(res, table, rowID)
	})
}

func (s *Store) selectRows(ctx context.Context, q querier, def *schema.Schema, sel queryir.Select) ([]grid.Record, error) {
	sqlText, params, err := s.compiler.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	rows, err := q.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	out := []grid.Record{}
	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fillColumns(def, rec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *Store) getRow(ctx context.Context, q querier, def *schema.Schema, rowID string) (grid.Record, error) {
	recs, err := s.selectRows(ctx, q, def, queryir.Select{
		Table:  def.ID,
		Filter: queryir.IDEquals{ID: rowID},
		Limit:  1,
	})
	if err != nil {
		return grid.Record{}, err
	}
	if len(recs) == 0 {
		return grid.Record{}, fmt.Errorf("row %q in table %q: %w", rowID, def.ID, ErrRowNotFound)
	}
	return recs[0], nil
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (grid.Record, error) {
	var (
		rec  grid.Record
		data string
	)
	if err := sc.Scan(&rec.ID, &rec.Position, &data); err != nil {
		return grid.Record{}, fmt.Errorf("scan row: %w", err)
	}
	if err := rec.Values.UnmarshalJSON([]byte(data)); err != nil {
		return grid.Record{}, fmt.Errorf("row %q: unmarshal values: %w", rec.ID, err)
	}
	return rec, nil
}

func requireAffected(res sql.Result, table, rowID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("row %q in table %q: %w", rowID, table, ErrRowNotFound)
	}
	return nil
}

// fillColumns gives rec an explicit Empty for every schema column it lacks.
func fillColumns(def *schema.Schema, rec grid.Record) grid.Record {
	if rec.Values == nil {
		rec.Values = cell.Values{}
	}
	for _, col := range def.Columns {
		if _, ok := rec.Values[col.ID]; !ok {
			rec.Values[col.ID] = cell.Empty{}
		}
	}
	return rec
}

// checkValues rejects unknown columns and values whose kind does not match
// the column. Empty is valid for every column.
func checkValues(def *schema.Schema, values cell.Values) error {
	var problems []string
	for _, colID := range values.Keys() {
		col, ok := def.Column(colID)
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown column %q", colID))
			continue
		}
		v := values[colID]
		if cell.IsEmpty(v) {
			continue
		}
		if kind := cell.KindOf(v); kind != col.Kind {
			problems = append(problems, fmt.Sprintf("column %q expects %s, got %s", colID, col.Kind, kind))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
