package grid

// Selection is the set of record ids marked for bulk actions. It never
// touches persisted data. Not safe for concurrent use; Table guards it.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Remove unselects ids.
func (s *Selection) Remove(ids ...string) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// Clear unselects everything.
func (s *Selection) Clear() {
	clear(s.ids)
}

// InOrder returns the selected ids that appear in order, in that order.
// Selected ids missing from order are dropped from the selection.
func (s *Selection) InOrder(order []string) []string {
	out := make([]string, 0, len(s.ids))
	present := make(map[string]bool, len(order))
	for _, id := range order {
		present[id] = true
		if s.Has(id) {
			out = append(out, id)
		}
	}
	for id := range s.ids {
		if !present[id] {
			delete(s.ids, id)
		}
	}
	return out
}
