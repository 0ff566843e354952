package grid_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/testutil"
)

var fastRetry = grid.RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []grid.Notice
}

func (r *noticeRecorder) Notify(n grid.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) all() []grid.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]grid.Notice(nil), r.notices...)
}

func newSyncer(t *testing.T, backend *testutil.FakeBackend, notes *noticeRecorder) (*grid.Syncer, *grid.Store) {
	t.Helper()
	store := grid.NewStore(testutil.ProjectsSchema())
	s := grid.NewSyncer(backend, "projects", store, grid.WithNotifier(notes), grid.WithRetry(fastRetry))
	require.NoError(t, s.Fetch(context.Background()))
	return s, store
}

func TestSyncerFetch(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	_, store := newSyncer(t, backend, &noticeRecorder{})
	assert.Equal(t, []string{"1", "2", "3"}, store.Order())
}

func TestSyncerFetchFailure(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.FailOn(grid.OpFetch, "", errors.New("503"))
	notes := &noticeRecorder{}
	s := grid.NewSyncer(backend, "projects", grid.NewStore(testutil.ProjectsSchema()), grid.WithNotifier(notes))

	err := s.Fetch(context.Background())
	assert.True(t, grid.IsPersistenceError(err))
	assert.Len(t, notes.all(), 1)
}

func TestSyncerUpdateCellSuccess(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	s, store := newSyncer(t, backend, &noticeRecorder{})

	require.NoError(t, s.UpdateCell(context.Background(), "2", "status", cell.Text("review")))

	r, _ := store.Get("2")
	assert.Equal(t, cell.Text("review"), r.Value("status"))
	row, _ := backend.Row("2")
	assert.Equal(t, cell.Text("review"), row.Value("status"))
	assert.Equal(t, 0, s.Sequencer().Pending())
}

func TestSyncerUpdateCellFailureReverts(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	backend.FailOn(grid.OpCell, "2", errors.New("500"))
	notes := &noticeRecorder{}
	s, store := newSyncer(t, backend, notes)

	err := s.UpdateCell(context.Background(), "2", "status", cell.Text("review"))
	require.Error(t, err)
	assert.True(t, grid.IsPersistenceError(err))

	r, _ := store.Get("2")
	assert.Equal(t, cell.Text("closed"), r.Value("status"), "reverted to the value before the edit")

	got := notes.all()
	require.Len(t, got, 1)
	assert.Equal(t, grid.ErrCodePersistence, got[0].Code)
	assert.Equal(t, "2", got[0].RecordID)
	assert.Equal(t, "status", got[0].ColumnID)
}

func TestSyncerUpdateCellIsOptimistic(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	s, store := newSyncer(t, backend, &noticeRecorder{})

	entered := make(chan struct{})
	release := make(chan struct{})
	backend.SetHook(func(_ context.Context, c testutil.Call) error {
		close(entered)
		<-release
		return nil
	})

	done := make(chan error)
	go func() { done <- s.UpdateCell(context.Background(), "1", "name", cell.Text("A!")) }()

	<-entered
	r, _ := store.Get("1")
	assert.Equal(t, cell.Text("A!"), r.Value("name"), "applied before the backend answers")

	close(release)
	require.NoError(t, <-done)
}

// An older request failing after a newer one succeeded must not revert the
// newer value.
func TestSyncerStaleFailureIsDiscarded(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	notes := &noticeRecorder{}
	s, store := newSyncer(t, backend, notes)

	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})
	backend.SetHook(func(_ context.Context, c testutil.Call) error {
		if c.Value == cell.Text("first") {
			close(firstEntered)
			<-releaseFirst
			return errors.New("timeout")
		}
		return nil
	})

	firstDone := make(chan error)
	go func() { firstDone <- s.UpdateCell(context.Background(), "1", "notes", cell.Text("first")) }()
	<-firstEntered

	require.NoError(t, s.UpdateCell(context.Background(), "1", "notes", cell.Text("second")))

	close(releaseFirst)
	err := <-firstDone
	assert.True(t, grid.IsPersistenceError(err), "the caller still learns its request failed")

	r, _ := store.Get("1")
	assert.Equal(t, cell.Text("second"), r.Value("notes"))
	assert.Empty(t, notes.all(), "stale failures are not surfaced")
	assert.Equal(t, 0, s.Sequencer().Pending())
}

// Two overlapping edits that both fail leave the cell at the value it had
// before either edit, not at the first draft.
func TestSyncerOverlappingFailuresRevertToConfirmedValue(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	notes := &noticeRecorder{}
	s, store := newSyncer(t, backend, notes)

	before, _ := store.Get("1")
	original := before.Value("notes")

	entered := map[string]chan struct{}{"first": make(chan struct{}), "second": make(chan struct{})}
	release := map[string]chan struct{}{"first": make(chan struct{}), "second": make(chan struct{})}
	backend.SetHook(func(_ context.Context, c testutil.Call) error {
		name := cell.String(c.Value)
		close(entered[name])
		<-release[name]
		return errors.New("timeout")
	})

	firstDone := make(chan error)
	go func() { firstDone <- s.UpdateCell(context.Background(), "1", "notes", cell.Text("first")) }()
	<-entered["first"]

	secondDone := make(chan error)
	go func() { secondDone <- s.UpdateCell(context.Background(), "1", "notes", cell.Text("second")) }()
	<-entered["second"]

	close(release["first"])
	require.Error(t, <-firstDone)
	r, _ := store.Get("1")
	assert.Equal(t, cell.Text("second"), r.Value("notes"), "stale failure leaves the newer draft")

	close(release["second"])
	require.Error(t, <-secondDone)
	r, _ = store.Get("1")
	assert.Equal(t, original, r.Value("notes"))
	assert.Len(t, notes.all(), 1, "only the latest failure is surfaced")
	assert.Equal(t, 0, s.Sequencer().Pending())
}

// An older request succeeding while a newer one is in flight becomes the
// value a later failure reverts to.
func TestSyncerFailureRevertsToStaleSuccess(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	s, store := newSyncer(t, backend, &noticeRecorder{})

	entered := map[string]chan struct{}{"first": make(chan struct{}), "second": make(chan struct{})}
	release := map[string]chan struct{}{"first": make(chan struct{}), "second": make(chan struct{})}
	backend.SetHook(func(_ context.Context, c testutil.Call) error {
		name := cell.String(c.Value)
		close(entered[name])
		<-release[name]
		if name == "second" {
			return errors.New("500")
		}
		return nil
	})

	firstDone := make(chan error)
	go func() { firstDone <- s.UpdateCell(context.Background(), "1", "notes", cell.Text("first")) }()
	<-entered["first"]

	secondDone := make(chan error)
	go func() { secondDone <- s.UpdateCell(context.Background(), "1", "notes", cell.Text("second")) }()
	<-entered["second"]

	close(release["first"])
	require.NoError(t, <-firstDone)
	close(release["second"])
	require.Error(t, <-secondDone)

	r, _ := store.Get("1")
	assert.Equal(t, cell.Text("first"), r.Value("notes"))
}

// A newer request failing after an older one succeeded reverts to the
// older value, which is what the backend holds.
func TestSyncerLatestFailureRevertsToPreviousEdit(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	s, store := newSyncer(t, backend, &noticeRecorder{})

	backend.SetHook(func(_ context.Context, c testutil.Call) error {
		if c.Value == cell.Text("second") {
			return errors.New("500")
		}
		return nil
	})

	require.NoError(t, s.UpdateCell(context.Background(), "1", "notes", cell.Text("first")))
	require.Error(t, s.UpdateCell(context.Background(), "1", "notes", cell.Text("second")))

	r, _ := store.Get("1")
	assert.Equal(t, cell.Text("first"), r.Value("notes"))
}

func TestSyncerUpdateCellCancelledContextReverts(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	s, store := newSyncer(t, backend, &noticeRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.UpdateCell(ctx, "1", "name", cell.Text("never"))
	assert.ErrorIs(t, err, context.Canceled)

	r, _ := store.Get("1")
	assert.Equal(t, cell.Text("A"), r.Value("name"))
}

func TestSyncerUpdateCellUnknownRecord(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	s, _ := newSyncer(t, backend, &noticeRecorder{})
	backend.ResetCalls()

	err := s.UpdateCell(context.Background(), "nope", "name", cell.Text("x"))
	assert.True(t, grid.IsNotFound(err))
	assert.Equal(t, 0, backend.CallCount(""))
}

func TestSyncerReorderRetriesTransientFailures(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	s, _ := newSyncer(t, backend, &noticeRecorder{})
	backend.ResetCalls()
	backend.FailTimes(grid.OpPosition, "1", 2, errors.New("flaky"))

	require.NoError(t, s.Reorder(context.Background(), map[string]int64{"1": 3, "3": 1}))

	assert.Equal(t, 4, backend.CallCount(grid.OpPosition), "two failures plus one success for 1, one call for 3")
	row, _ := backend.Row("1")
	assert.Equal(t, int64(3), row.Position)
}

type permanentErr struct{}

func (permanentErr) Error() string   { return "404 not found" }
func (permanentErr) Temporary() bool { return false }

func TestSyncerReorderReportsPerRecordFailures(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	notes := &noticeRecorder{}
	s, _ := newSyncer(t, backend, notes)
	backend.ResetCalls()
	backend.FailOn(grid.OpPosition, "2", permanentErr{})

	err := s.Reorder(context.Background(), map[string]int64{"1": 2, "2": 3, "3": 1})
	require.Error(t, err)

	var rerr *grid.ReorderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{"2"}, rerr.FailedIDs())
	assert.Equal(t, []string{"1", "3"}, rerr.Updated)
	assert.Equal(t, 3, backend.CallCount(grid.OpPosition), "permanent errors are not retried")

	row, _ := backend.Row("3")
	assert.Equal(t, int64(1), row.Position, "other records are written despite the failure")
	require.Len(t, notes.all(), 1)
	assert.Equal(t, "2", notes.all()[0].RecordID)
}

func TestSyncerReorderNothingToDo(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	s, _ := newSyncer(t, backend, &noticeRecorder{})
	backend.ResetCalls()

	require.NoError(t, s.Reorder(context.Background(), nil))
	assert.Equal(t, 0, backend.CallCount(""))
}

func TestSyncerDeleteRecordsEmpty(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	notes := &noticeRecorder{}
	s, _ := newSyncer(t, backend, notes)
	backend.ResetCalls()

	_, err := s.DeleteRecords(context.Background(), nil)
	assert.True(t, grid.IsNoSelection(err))
	assert.Contains(t, err.Error(), grid.MsgNoSelection)
	assert.Equal(t, 0, backend.CallCount(""))
	require.Len(t, notes.all(), 1)
	assert.Equal(t, grid.MsgNoSelection, notes.all()[0].Message)
}

func TestSyncerDeleteRecordsPartialFailure(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	s, store := newSyncer(t, backend, &noticeRecorder{})
	backend.FailOn(grid.OpDelete, "2", errors.New("500"))

	deleted, err := s.DeleteRecords(context.Background(), []string{"1", "2", "3"})
	assert.Equal(t, []string{"1", "3"}, deleted)

	var bulk *grid.BulkDeleteError
	require.ErrorAs(t, err, &bulk)
	assert.Equal(t, []string{"2"}, bulk.FailedIDs())
	assert.Equal(t, []string{"2"}, store.Order())
}

func TestSyncerInsert(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	s, store := newSyncer(t, backend, &noticeRecorder{})

	r, err := s.Insert(context.Background(), cell.Values{"name": cell.Text("D")})
	require.NoError(t, err)
	assert.Equal(t, "row-001", r.ID)
	assert.Equal(t, int64(4), r.Position)
	assert.Equal(t, cell.Empty{}, r.Value("status"), "missing columns are filled")
	assert.Equal(t, []string{"1", "2", "3", "row-001"}, store.Order())
}

func TestSyncerProgress(t *testing.T) {
	backend := testutil.NewFakeBackend(testutil.ABCRecords()...)
	progress := grid.NewProgress()
	store := grid.NewStore(testutil.ProjectsSchema())
	s := grid.NewSyncer(backend, "projects", store, grid.WithProgress(progress), grid.WithNotifier(&noticeRecorder{}))
	require.NoError(t, s.Fetch(context.Background()))

	_, err := s.DeleteRecords(context.Background(), []string{"1", "2"})
	require.NoError(t, err)

	snap := progress.Snapshot()
	assert.Equal(t, grid.ProgressState{Label: "delete", Total: 2, Done: 2}, snap)
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, grid.IsTemporary(errors.New("plain")))
	assert.False(t, grid.IsTemporary(permanentErr{}))
	assert.False(t, grid.IsTemporary(context.Canceled))
}
