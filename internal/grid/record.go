package grid

import (
	"github.com/roach88/pulsegrid/internal/cell"
)

// Record is one row of a generic table.
//
// Position orders records manually; gaps are allowed and ties break by id.
// Selected is transient view state and is never sent to the backend.
type Record struct {
	ID       string      `json:"id"`
	Position int64       `json:"position"`
	Values   cell.Values `json:"values"`
	Selected bool        `json:"-"`
}

// Value returns the cell for a column, Empty when absent.
func (r Record) Value(column string) cell.Value {
	return r.Values.Get(column)
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	cp := r
	cp.Values = r.Values.Clone()
	return cp
}

// IDs returns the ids of records in slice order.
func IDs(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
