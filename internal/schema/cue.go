package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pulsegrid/internal/cell"
)

// CompileError is a schema compilation failure with an optional CUE
// source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCUE reads a CUE file and compiles every table declared under the
// top-level "table" struct:
//
//	table: invoices: {
//		name: "Invoices"
//		columns: [
//			{id: "name", name: "Name", primary: true, sortable: true},
//			{id: "labels", name: "Labels", kind: "tags", sortable: true},
//		]
//	}
//
// Tables are returned in declaration order, defaults applied, not yet
// validated.
func LoadCUE(path string) ([]*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return CompileCUE(data, path)
}

// CompileCUE compiles CUE source into table schemas. filename is used for
// error positions only.
func CompileCUE(src []byte, filename string) ([]*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, &CompileError{Field: "table", Message: "no table declarations found", Pos: v.Pos()}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []*Schema
	for iter.Next() {
		s, err := CompileTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileTable parses a single table struct.
func CompileTable(id string, v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &Schema{ID: id, Name: id}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		s.Name = name
	}

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{Field: "columns", Message: "columns are required", Pos: v.Pos()}
	}

	colIter, err := colsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for colIter.Next() {
		col, err := compileColumn(colIter.Value())
		if err != nil {
			return nil, err
		}
		s.Columns = append(s.Columns, col)
	}

	s.applyDefaults()
	return s, nil
}

func compileColumn(v cue.Value) (Column, error) {
	var col Column

	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return col, &CompileError{Field: "id", Message: "column id is required", Pos: v.Pos()}
	}
	id, err := idVal.String()
	if err != nil {
		return col, formatCUEError(err)
	}
	col.ID = id

	if col.Name, err = optionalString(v, "name"); err != nil {
		return col, err
	}
	kind, err := optionalString(v, "kind")
	if err != nil {
		return col, err
	}
	col.Kind = cell.Kind(kind)

	if col.Sortable, err = optionalBool(v, "sortable"); err != nil {
		return col, err
	}
	if col.Hidden, err = optionalBool(v, "hidden"); err != nil {
		return col, err
	}
	if col.Primary, err = optionalBool(v, "primary"); err != nil {
		return col, err
	}

	if widthVal := v.LookupPath(cue.ParsePath("width")); widthVal.Exists() {
		w, err := widthVal.Int64()
		if err != nil {
			return col, formatCUEError(err)
		}
		col.Width = int(w)
	}

	return col, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
