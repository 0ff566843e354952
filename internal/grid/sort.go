package grid

import (
	"sort"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/schema"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortState is the single active sort. A nil *SortState means base order.
type SortState struct {
	Key       string    `json:"key" yaml:"key"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// NextSort returns the sort state after a click on column's header.
//
// Clicking the active column cycles asc, desc, none. Clicking another
// column starts at asc. Unknown and non-sortable columns leave the state
// unchanged.
func NextSort(current *SortState, column string, s *schema.Schema) *SortState {
	col, ok := s.Column(column)
	if !ok || !col.Sortable {
		return current
	}
	if current == nil || current.Key != column {
		return &SortState{Key: column, Direction: Asc}
	}
	if current.Direction == Asc {
		return &SortState{Key: column, Direction: Desc}
	}
	return nil
}

// SortRecords returns a sorted copy of records. The sort is stable: records
// that compare equal keep their input order in both directions. A nil state
// returns the input unchanged.
func SortRecords(records []Record, state *SortState) []Record {
	if state == nil {
		return records
	}
	out := append([]Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		c := cell.Compare(out[i].Value(state.Key), out[j].Value(state.Key))
		if state.Direction == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}
