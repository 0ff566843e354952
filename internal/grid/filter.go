package grid

import (
	"fmt"

	"github.com/roach88/pulsegrid/internal/cell"
)

// Filter keeps records whose Column value contains Value as a
// case-insensitive substring.
type Filter struct {
	Column string `json:"column" yaml:"column"`
	Value  string `json:"value" yaml:"value"`
}

// Matches reports whether r satisfies the filter. A column the record does
// not carry reads as empty, so it never matches a non-empty needle.
func (f Filter) Matches(r Record) bool {
	return cell.Contains(r.Value(f.Column), f.Value)
}

func (f Filter) String() string {
	return fmt.Sprintf("%s~%q", f.Column, f.Value)
}

// ApplyFilters returns the records matching every filter, in input order.
// With no filters the input is returned as is.
func ApplyFilters(records []Record, filters []Filter) []Record {
	if len(filters) == 0 {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if matchesAll(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func matchesAll(r Record, filters []Filter) bool {
	for _, f := range filters {
		if !f.Matches(r) {
			return false
		}
	}
	return true
}

// FilterSet is the ordered list of active filters. The zero value is an
// empty set. FilterSet is not safe for concurrent use; Table guards it.
type FilterSet struct {
	filters []Filter
}

// Add appends a filter. An empty column or value is rejected with a
// validation error and leaves the set unchanged.
func (fs *FilterSet) Add(column, value string) error {
	if column == "" {
		return newValidationError("filter column is empty")
	}
	if value == "" {
		return newValidationError("filter value is empty")
	}
	fs.filters = append(fs.filters, Filter{Column: column, Value: value})
	return nil
}

// Remove deletes the filter at index.
func (fs *FilterSet) Remove(index int) error {
	if index < 0 || index >= len(fs.filters) {
		return newNotFoundError(fmt.Sprintf("filter index %d out of range [0,%d)", index, len(fs.filters)))
	}
	fs.filters = append(fs.filters[:index:index], fs.filters[index+1:]...)
	return nil
}

// Clear removes every filter.
func (fs *FilterSet) Clear() {
	fs.filters = nil
}

// Len returns the number of filters.
func (fs *FilterSet) Len() int {
	return len(fs.filters)
}

// Filters returns a copy of the active filters.
func (fs *FilterSet) Filters() []Filter {
	return append([]Filter(nil), fs.filters...)
}
