package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/metrics"
)

// Backend is the REST table API as seen by the sync layer.
type Backend interface {
	ListRows(ctx context.Context, table string) ([]Record, error)
	InsertRow(ctx context.Context, table string, values cell.Values) (Record, error)
	// UpdateCell writes one cell and returns the row as stored.
	UpdateCell(ctx context.Context, table, rowID, column string, v cell.Value) (Record, error)
	UpdatePosition(ctx context.Context, table, rowID string, position int64) error
	DeleteRow(ctx context.Context, table, rowID string) error
}

// Sync operation names, used in logs and metrics.
const (
	OpFetch    = "fetch"
	OpInsert   = "insert"
	OpCell     = "update_cell"
	OpPosition = "update_position"
	OpDelete   = "delete"
)

// temporary is implemented by backend errors that know whether a retry can
// help.
type temporary interface {
	Temporary() bool
}

// IsTemporary reports whether err is worth retrying. Errors that do not say
// otherwise are treated as transient.
func IsTemporary(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}

// Syncer pushes local mutations to a Backend and reconciles the store with
// the results. It is the only grid component that performs I/O.
//
// Every call is fire-and-confirm: the store is updated first where possible
// and corrected when the backend answers. There is no queue; cancelling
// ctx abandons a call and the failure path runs as for any other error.
type Syncer struct {
	backend Backend
	table   string
	store   *Store
	seq     *Sequencer
	opts    options

	// applyMu makes the optimistic write and its sequence number atomic
	// per cell, so the latest number always belongs to the latest value.
	applyMu sync.Mutex
}

// NewSyncer creates a sync layer for one table.
func NewSyncer(backend Backend, table string, store *Store, opts ...Option) *Syncer {
	return newSyncer(backend, table, store, buildOptions(opts))
}

func newSyncer(backend Backend, table string, store *Store, o options) *Syncer {
	return &Syncer{
		backend: backend,
		table:   table,
		store:   store,
		seq:     NewSequencer(),
		opts:    o,
	}
}

// Sequencer exposes the per-cell sequencer, mainly for diagnostics.
func (s *Syncer) Sequencer() *Sequencer {
	return s.seq
}

func (s *Syncer) logger() *slog.Logger {
	return s.opts.logger
}

func (s *Syncer) fail(err error) error {
	s.opts.notifier.Notify(noticeFor(err))
	return err
}

// Fetch loads every row of the table into the store.
func (s *Syncer) Fetch(ctx context.Context) error {
	start := time.Now()
	rows, err := s.backend.ListRows(ctx, s.table)
	metrics.RecordSyncOperation(OpFetch, metrics.ResultOf(err), time.Since(start))
	if err != nil {
		return s.fail(newPersistenceError("failed to load rows", "", "", err))
	}
	if err := s.store.Load(rows); err != nil {
		return fmt.Errorf("load rows: %w", err)
	}
	s.logger().Debug("rows fetched", "table", s.table, "count", len(rows))
	return nil
}

// Insert creates a row on the backend and appends the stored result.
// Inserts are not optimistic: the backend assigns id and position.
func (s *Syncer) Insert(ctx context.Context, values cell.Values) (Record, error) {
	start := time.Now()
	rec, err := s.backend.InsertRow(ctx, s.table, values)
	metrics.RecordSyncOperation(OpInsert, metrics.ResultOf(err), time.Since(start))
	if err != nil {
		return Record{}, s.fail(newPersistenceError("failed to insert row", "", "", err))
	}
	if err := s.store.Append(rec); err != nil {
		return Record{}, fmt.Errorf("append inserted row: %w", err)
	}
	stored, _ := s.store.Get(rec.ID)
	return stored, nil
}

// UpdateCell writes v to the store immediately and then persists it.
//
// When the backend answers, the answer is applied only if no newer edit of
// the same cell was issued meanwhile. A failure of the latest edit reverts
// the cell to the last value the backend confirmed, which is the value it
// had before the first edit still in flight unless one of those edits
// succeeded since. A stale failure leaves the store alone.
func (s *Syncer) UpdateCell(ctx context.Context, recordID, column string, v cell.Value) error {
	key := CellKey{RecordID: recordID, ColumnID: column}

	s.applyMu.Lock()
	prev, err := s.store.SetValue(recordID, column, v)
	if err != nil {
		s.applyMu.Unlock()
		return err
	}
	seq := s.seq.IssueFrom(key, prev)
	s.applyMu.Unlock()

	start := time.Now()
	stored, err := s.backend.UpdateCell(ctx, s.table, recordID, column, v)

	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	defer s.seq.Release(key)

	confirmed := v
	if err == nil {
		if c, ok := stored.Values[column]; ok {
			confirmed = c
		}
		s.seq.Confirm(key, confirmed)
	}

	if !s.seq.Settle(key, seq) {
		metrics.RecordStaleResponse(OpCell)
		metrics.RecordSyncOperation(OpCell, metrics.ResultStale, time.Since(start))
		s.logger().Debug("stale cell response discarded",
			"record", recordID, "column", column, "seq", seq, "error", err)
		if err != nil {
			return newPersistenceError("failed to save cell", recordID, column, err)
		}
		return nil
	}

	metrics.RecordSyncOperation(OpCell, metrics.ResultOf(err), time.Since(start))
	if err != nil {
		base, ok := s.seq.Baseline(key)
		if !ok {
			base = prev
		}
		if _, rerr := s.store.SetValue(recordID, column, base); rerr != nil {
			s.logger().Warn("revert failed", "record", recordID, "column", column, "error", rerr)
		}
		return s.fail(newPersistenceError("failed to save cell", recordID, column, err))
	}

	if !cell.Equal(confirmed, v) {
		// The backend normalised the value; the stored form wins.
		if _, err := s.store.SetValue(recordID, column, confirmed); err != nil {
			s.logger().Warn("reconcile failed", "record", recordID, "column", column, "error", err)
		}
	}
	return nil
}

// Reorder persists new positions. Each record is written independently with
// bounded retry, so one failing record never holds back the others. The
// store is expected to hold the new positions already and is not reverted.
func (s *Syncer) Reorder(ctx context.Context, positions map[string]int64) error {
	if len(positions) == 0 {
		return nil
	}
	ids := sortedPositionIDs(positions)

	progress := s.opts.progress
	progress.Start("reorder", len(ids))
	defer progress.Finish()

	var (
		mu      sync.Mutex
		updated []string
		failed  = make(map[string]error)
	)

	var g errgroup.Group
	g.SetLimit(s.opts.concurrency)
	for _, id := range ids {
		id := id
		pos := positions[id]
		g.Go(func() error {
			err := s.writePosition(ctx, id, pos)
			mu.Lock()
			if err != nil {
				failed[id] = err
			} else {
				updated = append(updated, id)
			}
			mu.Unlock()
			progress.Advance(err)
			return nil
		})
	}
	// Workers always return nil; failures are collected per record.
	g.Wait()

	if len(failed) == 0 {
		s.logger().Debug("positions persisted", "table", s.table, "count", len(updated))
		return nil
	}
	for _, id := range sortedKeys(failed) {
		s.opts.notifier.Notify(Notice{
			Level:    slog.LevelError,
			Code:     ErrCodePersistence,
			Message:  "failed to save row position",
			RecordID: id,
		})
	}
	return &ReorderError{Updated: sortedStrings(updated), Failed: failed}
}

func (s *Syncer) writePosition(ctx context.Context, id string, pos int64) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.retry.InitialInterval
	policy.MaxInterval = s.opts.retry.MaxInterval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, s.opts.retry.MaxRetries), ctx)

	start := time.Now()
	err := backoff.RetryNotify(func() error {
		err := s.backend.UpdatePosition(ctx, s.table, id, pos)
		if err != nil && !IsTemporary(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		metrics.RecordRetry(OpPosition)
		s.logger().Debug("retrying position write", "record", id, "wait", wait, "error", err)
	})
	metrics.RecordSyncOperation(OpPosition, metrics.ResultOf(err), time.Since(start))
	if err != nil {
		return newPersistenceError("failed to save row position", id, "", err)
	}
	return nil
}

// DeleteRecords deletes ids concurrently and waits for all of them. Deleted
// ids leave the store. When some deletes fail, a *BulkDeleteError names
// them and their records stay in the store.
func (s *Syncer) DeleteRecords(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, s.fail(&GridError{Code: ErrCodeNoSelection, Message: MsgNoSelection})
	}

	progress := s.opts.progress
	progress.Start("delete", len(ids))
	defer progress.Finish()

	var (
		mu      sync.Mutex
		deleted []string
		failed  = make(map[string]error)
	)

	var g errgroup.Group
	g.SetLimit(s.opts.concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			start := time.Now()
			err := s.backend.DeleteRow(ctx, s.table, id)
			metrics.RecordSyncOperation(OpDelete, metrics.ResultOf(err), time.Since(start))
			mu.Lock()
			if err != nil {
				failed[id] = newPersistenceError("failed to delete row", id, "", err)
			} else {
				deleted = append(deleted, id)
			}
			mu.Unlock()
			progress.Advance(err)
			return nil
		})
	}
	// Workers always return nil; failures are collected per record.
	g.Wait()

	s.store.Remove(deleted...)
	deleted = sortedStrings(deleted)

	if len(failed) == 0 {
		s.logger().Info("rows deleted", "table", s.table, "count", len(deleted))
		return deleted, nil
	}
	return deleted, s.fail(&BulkDeleteError{Deleted: deleted, Failed: failed})
}
