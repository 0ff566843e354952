package grid

// View is the derived, displayable list of records.
//
// Records are filtered first and then sorted. Index i of the view always
// refers to Records[i]; drag gestures translate view indices back to base
// order through IDs.
type View struct {
	Records []Record
	Filters []Filter
	Sort    *SortState
	Total   int
}

// BuildView derives a view from records in base order.
func BuildView(base []Record, filters []Filter, state *SortState) View {
	records := SortRecords(ApplyFilters(base, filters), state)
	return View{
		Records: records,
		Filters: filters,
		Sort:    state,
		Total:   len(base),
	}
}

// IDs returns the record ids in view order.
func (v View) IDs() []string {
	return IDs(v.Records)
}

// Len returns the number of visible records.
func (v View) Len() int {
	return len(v.Records)
}

// At returns the record at view index i.
func (v View) At(i int) (Record, bool) {
	if i < 0 || i >= len(v.Records) {
		return Record{}, false
	}
	return v.Records[i], true
}
