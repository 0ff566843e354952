package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/store"
	"github.com/roach88/pulsegrid/internal/tableapi"
	"github.com/roach88/pulsegrid/internal/testutil"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "grid.db"),
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("row")),
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// seeded returns a server over a store holding the projects table with
// rows A, B, C (row-001..row-003).
func seeded(t *testing.T, opts ...Option) (*Server, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.CreateTable(ctx, testutil.ProjectsSchema())
	require.NoError(t, err)
	for _, r := range testutil.ABCRecords() {
		_, err := st.InsertRow(ctx, "projects", r.Values)
		require.NoError(t, err)
	}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(st, opts...), st
}

func do(t *testing.T, srv *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := seeded(t)
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := seeded(t)
	do(t, srv, http.MethodGet, "/tables/projects/rows", "")

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pulsegrid_server_requests_total")

	off := New(newTestStore(t), WithMetrics(false))
	assert.Equal(t, http.StatusNotFound, do(t, off, http.MethodGet, "/metrics", "").Code)
}

func TestListRows(t *testing.T) {
	srv, _ := seeded(t)

	rec := do(t, srv, http.MethodGet, "/tables/projects/rows", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"id":"row-001","position":1`)

	rec = do(t, srv, http.MethodGet, "/tables/projects/rows?filter=status:OPEN&filter=name:c", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"row-003"`)
	assert.NotContains(t, rec.Body.String(), `"row-001"`)
}

func TestListRowsErrors(t *testing.T) {
	srv, _ := seeded(t)

	rec := do(t, srv, http.MethodGet, "/tables/projects/rows?filter=nocolon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"BAD_REQUEST"`)

	rec = do(t, srv, http.MethodGet, "/tables/ghost/rows", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}

func TestPatchCell(t *testing.T) {
	srv, st := seeded(t)

	rec := do(t, srv, http.MethodPatch, "/tables/projects/rows/row-002", `{"name":"Bee"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Bee"`)

	row, err := st.GetRow(context.Background(), "projects", "row-002")
	require.NoError(t, err)
	assert.Equal(t, cell.Text("Bee"), row.Value("name"))
}

func TestPatchPosition(t *testing.T) {
	srv, st := seeded(t)

	rec := do(t, srv, http.MethodPatch, "/tables/projects/rows/row-001", `{"position":9}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"position":9`)

	row, err := st.GetRow(context.Background(), "projects", "row-001")
	require.NoError(t, err)
	assert.Equal(t, int64(9), row.Position)
}

func TestPatchErrors(t *testing.T) {
	srv, _ := seeded(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"not json", "/tables/projects/rows/row-001", `nope`, http.StatusBadRequest},
		{"mixed position", "/tables/projects/rows/row-001", `{"position":1,"name":"x"}`, http.StatusBadRequest},
		{"id", "/tables/projects/rows/row-001", `{"id":"x"}`, http.StatusBadRequest},
		{"unknown column", "/tables/projects/rows/row-001", `{"ghost":"x"}`, http.StatusBadRequest},
		{"kind mismatch", "/tables/projects/rows/row-001", `{"budget":"lots"}`, http.StatusBadRequest},
		{"zero position", "/tables/projects/rows/row-001", `{"position":0}`, http.StatusBadRequest},
		{"missing row", "/tables/projects/rows/row-404", `{"name":"x"}`, http.StatusNotFound},
		{"missing row position", "/tables/projects/rows/row-404", `{"position":2}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestDeleteRow(t *testing.T) {
	srv, _ := seeded(t)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/tables/projects/rows/row-002", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/tables/projects/rows/row-002", "").Code)
}

func TestCreateAndGetTable(t *testing.T) {
	srv, _ := seeded(t)

	body := `{"id":"people","columns":[{"id":"name","primary":true}]}`
	rec := do(t, srv, http.MethodPost, "/tables", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"kind":"text"`)

	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/tables", body).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/tables", `{"id":"x"}`).Code)

	rec = do(t, srv, http.MethodGet, "/tables/people", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"people"`)
}

func TestInsertRow(t *testing.T) {
	srv, _ := seeded(t)

	rec := do(t, srv, http.MethodPost, "/tables/projects/rows", `{"values":{"name":"D","budget":5}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"id":"row-004","position":4`)
}

func TestAuthentication(t *testing.T) {
	srv, _ := seeded(t, WithToken("s3cret"))

	assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodGet, "/tables/projects/rows", "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, srv, http.MethodGet, "/tables/projects/rows", "", "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK,
		do(t, srv, http.MethodGet, "/tables/projects/rows", "", "Authorization", "Bearer s3cret").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code, "health is public")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv, _ := seeded(t)

	rec := do(t, srv, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), tableapi.CodeNotFound)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodPut, "/tables/projects/rows/row-001", "").Code)
}
