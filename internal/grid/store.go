package grid

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/schema"
)

// Store is the in-memory record collection of one table.
//
// It keeps records in a canonical base order: the order the user arranged
// by dragging, independent of any filter or sort. Reads return copies, so
// callers can never mutate stored records through a snapshot.
//
// Thread-safety: Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	schema  *schema.Schema
	records map[string]*Record
	order   []string
}

// NewStore creates an empty store for the given schema. The schema is
// copied.
func NewStore(s *schema.Schema) *Store {
	return &Store{
		schema:  s.Clone(),
		records: make(map[string]*Record),
	}
}

// Load replaces the store contents. Records are ordered by position, then
// id, and every schema column missing from a record is filled with Empty.
func (s *Store) Load(records []Record) error {
	loaded := make(map[string]*Record, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return newValidationError("record without id")
		}
		if _, dup := loaded[r.ID]; dup {
			return newValidationError(fmt.Sprintf("duplicate record id %q", r.ID))
		}
		cp := r.Clone()
		cp.Selected = false
		loaded[r.ID] = &cp
		order = append(order, r.ID)
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := loaded[order[i]], loaded[order[j]]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range loaded {
		s.fillColumnsLocked(r)
	}
	s.records = loaded
	s.order = order
	return nil
}

func (s *Store) fillColumnsLocked(r *Record) {
	if r.Values == nil {
		r.Values = make(cell.Values, len(s.schema.Columns))
	}
	for _, c := range s.schema.Columns {
		if _, ok := r.Values[c.ID]; !ok {
			r.Values[c.ID] = cell.Empty{}
		}
	}
}

// Schema returns a copy of the table schema.
func (s *Store) Schema() *schema.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema.Clone()
}

// UpdateSchema applies fn to the stored schema. fn's error aborts the
// change.
func (s *Store) UpdateSchema(fn func(*schema.Schema) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.schema.Clone()
	if err := fn(cp); err != nil {
		return err
	}
	s.schema = cp
	return nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns copies of all records in base order.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.order))
	for i, id := range s.order {
		out[i] = s.records[id].Clone()
	}
	return out
}

// Order returns the record ids in base order.
func (s *Store) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Get returns a copy of one record.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return r.Clone(), true
}

// SetValue writes one cell and returns the value it replaced.
func (s *Store) SetValue(id, column string, v cell.Value) (cell.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, newNotFoundError(fmt.Sprintf("record %q not found", id))
	}
	if _, ok := s.schema.Column(column); !ok {
		return nil, newNotFoundError(fmt.Sprintf("column %q not found", column))
	}
	prev := r.Values.Get(column)
	r.Values[column] = cell.Clone(v)
	return prev, nil
}

// SetOrder replaces the base order. ids must be a permutation of the
// stored record ids.
func (s *Store) SetOrder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) != len(s.order) {
		return newValidationError(fmt.Sprintf("order has %d ids, store has %d records", len(ids), len(s.order)))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.records[id]; !ok {
			return newNotFoundError(fmt.Sprintf("record %q not found", id))
		}
		if seen[id] {
			return newValidationError(fmt.Sprintf("duplicate id %q in order", id))
		}
		seen[id] = true
	}
	s.order = append(s.order[:0:0], ids...)
	return nil
}

// Renumber assigns position index+1 to every record in base order and
// returns the new positions of the records that changed.
func (s *Store) Renumber() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := make(map[string]int64)
	for i, id := range s.order {
		pos := int64(i + 1)
		if r := s.records[id]; r.Position != pos {
			r.Position = pos
			changed[id] = pos
		}
	}
	return changed
}

// Append adds a record at the end of the base order.
func (s *Store) Append(r Record) error {
	if r.ID == "" {
		return newValidationError("record without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.records[r.ID]; dup {
		return newValidationError(fmt.Sprintf("duplicate record id %q", r.ID))
	}
	cp := r.Clone()
	cp.Selected = false
	s.fillColumnsLocked(&cp)
	s.records[r.ID] = &cp
	s.order = append(s.order, r.ID)
	return nil
}

// Remove deletes records from the store and the base order. It returns the
// ids that were present.
func (s *Store) Remove(ids ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	var removed []string
	for _, id := range ids {
		if _, ok := s.records[id]; ok && !drop[id] {
			drop[id] = true
			removed = append(removed, id)
			delete(s.records, id)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return removed
}
