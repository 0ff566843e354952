package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/roach88/pulsegrid/internal/schema"
)

// CreateTable stores a new table definition. The definition is normalized
// first; the stored copy is returned.
func (s *Store) CreateTable(ctx context.Context, def *schema.Schema) (*schema.Schema, error) {
	if def == nil {
		return nil, fmt.Errorf("create table: %w: nil definition", ErrInvalid)
	}
	def = def.Clone()
	if err := def.Normalize(); err != nil {
		return nil, fmt.Errorf("create table: %w: %w", ErrInvalid, err)
	}

	data, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("create table: marshal definition: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO grid_tables (id, name, definition)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, def.ID, def.Name, string(data))
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("create table %q: %w", def.ID, ErrTableExists)
	}

	s.logger.Info("table created", "table", def.ID, "columns", len(def.Columns))
	return def, nil
}

// GetTable returns a table definition.
func (s *Store) GetTable(ctx context.Context, id string) (*schema.Schema, error) {
	return getTable(ctx, s.db, id)
}

// ListTables returns every table definition ordered by id.
func (s *Store) ListTables(ctx context.Context) ([]*schema.Schema, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT definition FROM grid_tables
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	out := []*schema.Schema{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		def, err := unmarshalDefinition(data)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return out, nil
}

// DeleteTable removes a table and all of its rows.
func (s *Store) DeleteTable(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM grid_tables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete table: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete table %q: %w", id, ErrTableNotFound)
	}
	s.logger.Info("table deleted", "table", id)
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getTable(ctx context.Context, q querier, id string) (*schema.Schema, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT definition FROM grid_tables WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %q: %w", id, ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get table %q: %w", id, err)
	}
	return unmarshalDefinition(data)
}

func unmarshalDefinition(data string) (*schema.Schema, error) {
	var def schema.Schema
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return nil, fmt.Errorf("unmarshal table definition: %w", err)
	}
	return &def, nil
}
