package queryir

import "github.com/roach88/pulsegrid/internal/grid"

// Query is a request for rows of one table.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate is a row condition.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select returns the rows of Table matching Filter in position order.
//
//	SELECT id, position, values FROM rows
//	WHERE table = <Table> AND <Filter>
//	ORDER BY position, id
//
// A nil Filter selects every row. Limit 0 means no limit.
type Select struct {
	Table  string
	Filter Predicate
	Limit  int
}

func (Select) queryNode() {}

// Count returns the number of rows of Table matching Filter.
type Count struct {
	Table  string
	Filter Predicate
}

func (Count) queryNode() {}

// MaxPosition returns the largest position in Table, 0 when empty.
type MaxPosition struct {
	Table string
}

func (MaxPosition) queryNode() {}

// Contains holds when Needle is a case-insensitive substring of the
// display text of the Column cell. A missing cell reads as empty.
type Contains struct {
	Column string
	Needle string
}

func (Contains) predicateNode() {}

// IDEquals holds for the row with the given id.
type IDEquals struct {
	ID string
}

func (IDEquals) predicateNode() {}

// And holds when every predicate holds. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// FromFilters builds the Select equivalent of grid filters.
func FromFilters(table string, filters []grid.Filter) Select {
	sel := Select{Table: table}
	if len(filters) == 0 {
		return sel
	}
	preds := make([]Predicate, len(filters))
	for i, f := range filters {
		preds[i] = Contains{Column: f.Column, Needle: f.Value}
	}
	if len(preds) == 1 {
		sel.Filter = preds[0]
	} else {
		sel.Filter = And{Predicates: preds}
	}
	return sel
}
