package grid

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/schema"
)

// Table is the controller of one generic record table. It composes the
// record store, filters, sort, editor, drag-reorder and selection, and
// routes persistence through its Syncer.
//
// Thread-safety: Table is safe for concurrent use. Backend calls happen
// outside the table lock.
type Table struct {
	id     string
	store  *Store
	syncer *Syncer
	opts   options

	mu        sync.Mutex
	filters   FilterSet
	sort      *SortState
	editor    *Editor
	reorder   Reorderer
	selection *Selection
}

// NewTable creates an empty table. Call Load to fetch its rows.
func NewTable(id string, s *schema.Schema, backend Backend, opts ...Option) *Table {
	o := buildOptions(opts)
	store := NewStore(s)
	return &Table{
		id:        id,
		store:     store,
		syncer:    newSyncer(backend, id, store, o),
		opts:      o,
		editor:    NewEditor(o.logger),
		selection: NewSelection(),
	}
}

// ID returns the table id.
func (t *Table) ID() string {
	return t.id
}

// Store returns the underlying record store.
func (t *Table) Store() *Store {
	return t.store
}

// Syncer returns the table's sync layer.
func (t *Table) Syncer() *Syncer {
	return t.syncer
}

// Progress returns the progress value updated by bulk operations.
func (t *Table) Progress() *Progress {
	return t.opts.progress
}

// Schema returns a copy of the column layout.
func (t *Table) Schema() *schema.Schema {
	return t.store.Schema()
}

// Load fetches all rows from the backend, replacing the store contents.
// Selected ids that no longer exist are unselected.
func (t *Table) Load(ctx context.Context) error {
	if err := t.syncer.Fetch(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selection.InOrder(t.store.Order())
	t.reorder.Drop()
	return nil
}

// View derives the visible records: filters first, then sort.
func (t *Table) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewLocked()
}

func (t *Table) viewLocked() View {
	v := BuildView(t.store.Snapshot(), t.filters.Filters(), t.sort)
	for i := range v.Records {
		v.Records[i].Selected = t.selection.Has(v.Records[i].ID)
	}
	return v
}

// AddFilter appends a filter. Empty input is rejected with a validation
// error that callers are expected to swallow.
func (t *Table) AddFilter(column, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reorder.Reset()
	return t.filters.Add(column, value)
}

// RemoveFilter removes the filter at index.
func (t *Table) RemoveFilter(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reorder.Reset()
	return t.filters.Remove(index)
}

// ClearFilters removes every filter.
func (t *Table) ClearFilters() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reorder.Reset()
	t.filters.Clear()
}

// Filters returns the active filters.
func (t *Table) Filters() []Filter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filters.Filters()
}

// ToggleSort advances the sort cycle for column and returns the new state.
func (t *Table) ToggleSort(column string) *SortState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reorder.Reset()
	t.sort = NextSort(t.sort, column, t.store.Schema())
	return copySort(t.sort)
}

// SetSort sets the sort state directly. nil restores base order.
func (t *Table) SetSort(state *SortState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reorder.Reset()
	if state == nil {
		t.sort = nil
		return nil
	}
	sch := t.store.Schema()
	col, ok := sch.Column(state.Key)
	if !ok {
		return newNotFoundError(fmt.Sprintf("column %q not found", state.Key))
	}
	if !col.Sortable {
		return newValidationError(fmt.Sprintf("column %q is not sortable", state.Key))
	}
	if state.Direction != Asc && state.Direction != Desc {
		return newValidationError(fmt.Sprintf("unknown sort direction %q", state.Direction))
	}
	t.sort = copySort(state)
	return nil
}

// Sort returns the active sort, nil for base order.
func (t *Table) Sort() *SortState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copySort(t.sort)
}

func copySort(s *SortState) *SortState {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// BeginEdit opens a cell for editing. A cell that is already open is first
// closed as if it lost focus, which may persist it; that persist error is
// returned, but the new cell is open either way.
func (t *Table) BeginEdit(ctx context.Context, recordID, column string) error {
	t.mu.Lock()
	rec, ok := t.store.Get(recordID)
	if !ok {
		t.mu.Unlock()
		return newNotFoundError(fmt.Sprintf("record %q not found", recordID))
	}
	if _, ok := t.store.Schema().Column(column); !ok {
		t.mu.Unlock()
		return newNotFoundError(fmt.Sprintf("column %q not found", column))
	}

	var previous EditOutcome
	if t.editor.State() == EditorEditing {
		out, err := t.editor.Stop(ctx, StopBlur)
		if err != nil {
			t.mu.Unlock()
			return err
		}
		previous = out
	}
	err := t.editor.Begin(ctx, recordID, column, rec.Value(column))
	t.mu.Unlock()
	if err != nil {
		return err
	}

	return t.persist(ctx, previous)
}

// SetDraft updates the draft of the open cell.
func (t *Table) SetDraft(v cell.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.editor.SetDraft(v)
}

// Editing returns the open cell, if any.
func (t *Table) Editing() (EditState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.editor.Current()
}

// StopEdit closes the open cell. Blur and Enter persist a changed draft;
// Escape discards it without touching the store or the backend.
func (t *Table) StopEdit(ctx context.Context, reason StopReason) error {
	t.mu.Lock()
	out, err := t.editor.Stop(ctx, reason)
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return t.persist(ctx, out)
}

func (t *Table) persist(ctx context.Context, out EditOutcome) error {
	if !out.Persist {
		return nil
	}
	return t.syncer.UpdateCell(ctx, out.Cell.RecordID, out.Cell.ColumnID, out.Cell.Draft)
}

// MoveRow moves the row at view index drag to view index hover within the
// base order. It is meant to be called on every hover event of a drag;
// repeated calls with the same indices move nothing. moved reports whether
// the order changed.
func (t *Table) MoveRow(drag, hover int) (moved bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	view := t.viewLocked().IDs()
	base := t.store.Order()
	order, moved, err := t.reorder.Move(base, view, drag, hover)
	if err != nil || !moved {
		return false, err
	}
	if err := t.store.SetOrder(order); err != nil {
		return false, err
	}
	return true, nil
}

// DropRow ends a drag. Every record gets position index+1 in base order,
// and each record whose position changed is persisted independently.
func (t *Table) DropRow(ctx context.Context) error {
	t.mu.Lock()
	t.reorder.Drop()
	changed := t.store.Renumber()
	t.mu.Unlock()
	return t.syncer.Reorder(ctx, changed)
}

// ToggleSelect flips the selection of a record and reports whether it is
// now selected.
func (t *Table) ToggleSelect(id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.store.Get(id); !ok {
		return false, newNotFoundError(fmt.Sprintf("record %q not found", id))
	}
	return t.selection.Toggle(id), nil
}

// Selected returns the selected ids in base order.
func (t *Table) Selected() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selection.InOrder(t.store.Order())
}

// ClearSelection unselects everything.
func (t *Table) ClearSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selection.Clear()
}

// DeleteSelected deletes every selected record. With nothing selected it
// reports MsgNoSelection and makes no backend call. Records that were
// deleted leave the store and the selection; records that failed stay in
// both and are named by the returned *BulkDeleteError.
func (t *Table) DeleteSelected(ctx context.Context) ([]string, error) {
	t.mu.Lock()
	ids := t.selection.InOrder(t.store.Order())
	t.mu.Unlock()

	deleted, err := t.syncer.DeleteRecords(ctx, ids)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.selection.Remove(deleted...)
	if cur, ok := t.editor.Current(); ok && indexOf(deleted, cur.RecordID) >= 0 {
		if _, serr := t.editor.Stop(ctx, StopEscape); serr != nil {
			t.opts.logger.Warn("discard edit of deleted row", "record", cur.RecordID, "error", serr)
		}
	}
	return deleted, err
}

// Insert creates a row on the backend and appends it to the base order.
func (t *Table) Insert(ctx context.Context, values cell.Values) (Record, error) {
	return t.syncer.Insert(ctx, values)
}

// ResizeColumn changes a column's width. Local only.
func (t *Table) ResizeColumn(column string, width int) error {
	return t.store.UpdateSchema(func(s *schema.Schema) error {
		return s.SetWidth(column, width)
	})
}

// SetColumnHidden toggles a column's visibility. Local only.
func (t *Table) SetColumnHidden(column string, hidden bool) error {
	return t.store.UpdateSchema(func(s *schema.Schema) error {
		return s.SetHidden(column, hidden)
	})
}
