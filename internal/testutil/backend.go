package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/grid"
)

// Call is one request received by a FakeBackend.
type Call struct {
	Seq      int64      `json:"seq"`
	Op       string     `json:"op"`
	Table    string     `json:"table"`
	RecordID string     `json:"record,omitempty"`
	Column   string     `json:"column,omitempty"`
	Value    cell.Value `json:"value,omitempty"`
	Position int64      `json:"position,omitempty"`
}

// Hook runs before a call is served, outside the backend lock. A non-nil
// error fails the call. Hooks may block to control response ordering.
type Hook func(ctx context.Context, c Call) error

type failure struct {
	err       error
	remaining int // < 0 fails forever
}

// FakeBackend is an in-memory grid.Backend for one table with call
// recording and failure injection.
//
// Thread-safety: safe for concurrent use.
type FakeBackend struct {
	mu       sync.Mutex
	seq      int64
	rows     map[string]grid.Record
	calls    []Call
	failures map[string]*failure
	hook     Hook
	ids      *SequentialIDGenerator
}

// NewFakeBackend creates a backend holding records.
func NewFakeBackend(records ...grid.Record) *FakeBackend {
	b := &FakeBackend{
		rows:     make(map[string]grid.Record),
		failures: make(map[string]*failure),
		ids:      NewSequentialIDGenerator("row"),
	}
	for _, r := range records {
		b.rows[r.ID] = r.Clone()
	}
	return b
}

var _ grid.Backend = (*FakeBackend)(nil)

func failureKey(op, recordID string) string {
	return op + "/" + recordID
}

// FailOn makes every op call for recordID fail with err. An empty recordID
// matches all records.
func (b *FakeBackend) FailOn(op, recordID string, err error) {
	b.FailTimes(op, recordID, -1, err)
}

// FailTimes makes the next n op calls for recordID fail with err.
func (b *FakeBackend) FailTimes(op, recordID string, n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[failureKey(op, recordID)] = &failure{err: err, remaining: n}
}

// SetHook installs h; nil removes it.
func (b *FakeBackend) SetHook(h Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = h
}

// Calls returns every recorded call in arrival order.
func (b *FakeBackend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallCount returns how many op calls were received. An empty op counts
// all calls.
func (b *FakeBackend) CallCount(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if op == "" || c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls.
func (b *FakeBackend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// Rows returns the stored rows ordered by position, then id.
func (b *FakeBackend) Rows() []grid.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedLocked()
}

// Row returns one stored row.
func (b *FakeBackend) Row(id string) (grid.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rows[id]
	return r.Clone(), ok
}

func (b *FakeBackend) sortedLocked() []grid.Record {
	out := make([]grid.Record, 0, len(b.rows))
	for _, r := range b.rows {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// begin records c and returns the injected failure, if any. The hook runs
// after recording so tests can observe the call while it is in flight.
func (b *FakeBackend) begin(ctx context.Context, c Call) error {
	b.mu.Lock()
	b.seq++
	c.Seq = b.seq
	b.calls = append(b.calls, c)
	hook := b.hook
	b.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, c); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range []string{failureKey(c.Op, c.RecordID), failureKey(c.Op, "")} {
		f, ok := b.failures[key]
		if !ok || f.remaining == 0 {
			continue
		}
		if f.remaining > 0 {
			f.remaining--
		}
		return f.err
	}
	return nil
}

func (b *FakeBackend) ListRows(ctx context.Context, table string) ([]grid.Record, error) {
	if err := b.begin(ctx, Call{Op: grid.OpFetch, Table: table}); err != nil {
		return nil, err
	}
	return b.Rows(), nil
}

func (b *FakeBackend) InsertRow(ctx context.Context, table string, values cell.Values) (grid.Record, error) {
	if err := b.begin(ctx, Call{Op: grid.OpInsert, Table: table}); err != nil {
		return grid.Record{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var maxPos int64
	for _, r := range b.rows {
		maxPos = max(maxPos, r.Position)
	}
	rec := grid.Record{ID: b.ids.Generate(), Position: maxPos + 1, Values: values.Clone()}
	b.rows[rec.ID] = rec
	return rec.Clone(), nil
}

func (b *FakeBackend) UpdateCell(ctx context.Context, table, rowID, column string, v cell.Value) (grid.Record, error) {
	if err := b.begin(ctx, Call{Op: grid.OpCell, Table: table, RecordID: rowID, Column: column, Value: v}); err != nil {
		return grid.Record{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rows[rowID]
	if !ok {
		return grid.Record{}, fmt.Errorf("row %q not found", rowID)
	}
	r = r.Clone()
	if r.Values == nil {
		r.Values = cell.Values{}
	}
	r.Values[column] = cell.Clone(v)
	b.rows[rowID] = r
	return r.Clone(), nil
}

func (b *FakeBackend) UpdatePosition(ctx context.Context, table, rowID string, position int64) error {
	if err := b.begin(ctx, Call{Op: grid.OpPosition, Table: table, RecordID: rowID, Position: position}); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rows[rowID]
	if !ok {
		return fmt.Errorf("row %q not found", rowID)
	}
	r.Position = position
	b.rows[rowID] = r
	return nil
}

func (b *FakeBackend) DeleteRow(ctx context.Context, table, rowID string) error {
	if err := b.begin(ctx, Call{Op: grid.OpDelete, Table: table, RecordID: rowID}); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.rows[rowID]; !ok {
		return fmt.Errorf("row %q not found", rowID)
	}
	delete(b.rows, rowID)
	return nil
}
