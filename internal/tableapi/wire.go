// Package tableapi is the JSON wire contract of the REST table API and a
// client for it.
//
// Routes:
//
//	POST   /tables                      create a table schema
//	GET    /tables/{table}              read a table schema
//	GET    /tables/{table}/rows         list rows; ?filter=col:value, repeatable
//	POST   /tables/{table}/rows         insert a row {"values": {...}}
//	PATCH  /tables/{table}/rows/{row}   {"<column>": value} or {"position": n}
//	DELETE /tables/{table}/rows/{row}
//
// Rows travel as {"id", "position", "values"}. Errors travel as
// {"error": {"code", "message"}}.
package tableapi

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/schema"
)

// Error codes carried in error bodies.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// InsertRequest is the body of POST /tables/{table}/rows.
type InsertRequest struct {
	Values cell.Values `json:"values"`
}

// TableDefinition is the body of POST /tables and the response of
// GET /tables/{table}.
type TableDefinition = schema.Schema

// Row is the wire form of one row.
type Row = grid.Record

// Patch is a decoded PATCH body: either a set of cell values or a single
// position.
type Patch struct {
	Values   cell.Values
	Position *int64
}

// IsPosition reports whether the patch moves the row.
func (p Patch) IsPosition() bool {
	return p.Position != nil
}

// CellPatchBody encodes a single-cell PATCH body.
func CellPatchBody(column string, v cell.Value) ([]byte, error) {
	return json.Marshal(cell.Values{column: v})
}

// PositionPatchBody encodes a position PATCH body.
func PositionPatchBody(position int64) ([]byte, error) {
	return json.Marshal(map[string]int64{schema.ReservedPosition: position})
}

// DecodePatch parses a PATCH body. A body whose only key is "position"
// moves the row; any other body sets cells and may not mention "position"
// or "id".
func DecodePatch(data []byte) (Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Patch{}, fmt.Errorf("patch body must be a JSON object: %w", err)
	}
	if len(raw) == 0 {
		return Patch{}, fmt.Errorf("patch body is empty")
	}

	if posRaw, ok := raw[schema.ReservedPosition]; ok {
		if len(raw) != 1 {
			return Patch{}, fmt.Errorf("position cannot be combined with cell values")
		}
		v, err := cell.Decode(posRaw)
		if err != nil {
			return Patch{}, fmt.Errorf("position: %w", err)
		}
		n, ok := v.(cell.Int)
		if !ok {
			return Patch{}, fmt.Errorf("position must be an integer")
		}
		pos := int64(n)
		return Patch{Position: &pos}, nil
	}
	if _, ok := raw[schema.ReservedID]; ok {
		return Patch{}, fmt.Errorf("id cannot be patched")
	}

	values := make(cell.Values, len(raw))
	for col, r := range raw {
		v, err := cell.Decode(r)
		if err != nil {
			return Patch{}, fmt.Errorf("column %q: %w", col, err)
		}
		values[col] = v
	}
	return Patch{Values: values}, nil
}

// FilterParam renders a filter as a query parameter value.
func FilterParam(f grid.Filter) string {
	return f.Column + ":" + f.Value
}

// ParseFilterParam parses a "column:value" query parameter. The value may
// itself contain colons.
func ParseFilterParam(s string) (grid.Filter, error) {
	col, val, ok := strings.Cut(s, ":")
	if !ok || col == "" || val == "" {
		return grid.Filter{}, fmt.Errorf("filter %q must be column:value", s)
	}
	return grid.Filter{Column: col, Value: val}, nil
}
