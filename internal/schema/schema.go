// Package schema defines table column metadata and compiles table schemas
// authored in CUE.
//
// A schema is read-only from the grid's perspective except for two local
// presentation toggles: column width and column visibility.
package schema

import (
	"fmt"

	"github.com/roach88/pulsegrid/internal/cell"
)

// Reserved column ids. They collide with record fields in the REST payloads.
const (
	ReservedID       = "id"
	ReservedPosition = "position"
)

// DefaultWidth is the pixel width given to columns that declare none.
const DefaultWidth = 160

// Column is one field definition of a generic table.
type Column struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     cell.Kind `json:"kind"`
	Sortable bool      `json:"sortable"`
	Hidden   bool      `json:"hidden"`
	Primary  bool      `json:"primary"`
	Width    int       `json:"width"`
}

// Schema is the column layout of one table.
type Schema struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column returns the column with the given id.
func (s *Schema) Column(id string) (Column, bool) {
	for _, c := range s.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// Primary returns the primary (name) column. ok is false when the schema
// has none, which Validate reports as an error.
func (s *Schema) Primary() (Column, bool) {
	for _, c := range s.Columns {
		if c.Primary {
			return c, true
		}
	}
	return Column{}, false
}

// Visible returns the non-hidden columns in declaration order.
func (s *Schema) Visible() []Column {
	out := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	return out
}

// IsTags reports whether the column holds tag lists.
func (s *Schema) IsTags(id string) bool {
	c, ok := s.Column(id)
	return ok && c.Kind == cell.KindTags
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	cp := &Schema{ID: s.ID, Name: s.Name, Columns: make([]Column, len(s.Columns))}
	copy(cp.Columns, s.Columns)
	return cp
}

// SetWidth changes a column's display width.
func (s *Schema) SetWidth(id string, width int) error {
	if width <= 0 {
		return fmt.Errorf("column %q: width must be positive, got %d", id, width)
	}
	for i := range s.Columns {
		if s.Columns[i].ID == id {
			s.Columns[i].Width = width
			return nil
		}
	}
	return fmt.Errorf("column %q not found", id)
}

// SetHidden toggles a column's visibility. The primary column cannot be
// hidden.
func (s *Schema) SetHidden(id string, hidden bool) error {
	for i := range s.Columns {
		if s.Columns[i].ID != id {
			continue
		}
		if s.Columns[i].Primary && hidden {
			return fmt.Errorf("column %q is the primary column and cannot be hidden", id)
		}
		s.Columns[i].Hidden = hidden
		return nil
	}
	return fmt.Errorf("column %q not found", id)
}

// applyDefaults fills zero-valued presentation fields.
func (s *Schema) applyDefaults() {
	for i := range s.Columns {
		if s.Columns[i].Kind == "" {
			s.Columns[i].Kind = cell.KindText
		}
		if s.Columns[i].Width == 0 {
			s.Columns[i].Width = DefaultWidth
		}
		if s.Columns[i].Name == "" {
			s.Columns[i].Name = s.Columns[i].ID
		}
	}
}

// Normalize applies defaults and validates the schema.
// It returns the first validation error, if any.
func (s *Schema) Normalize() error {
	s.applyDefaults()
	if errs := Validate(s); len(errs) > 0 {
		return errs[0]
	}
	return nil
}
