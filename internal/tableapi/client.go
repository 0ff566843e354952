package tableapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/metrics"
	"github.com/roach88/pulsegrid/internal/schema"
)

// DefaultTimeout bounds each request when no HTTP client is supplied.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to the REST table API. It implements grid.Backend.
//
// Thread-safety: Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	logger  *slog.Logger
}

var _ grid.Backend = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithClientLogger sets the logger. Defaults to slog.Default().
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

func tablePath(table string, rest ...string) string {
	parts := append([]string{"tables", url.PathEscape(table)}, rest...)
	return "/" + strings.Join(parts, "/")
}

func rowPath(table, row string) string {
	return tablePath(table, "rows", url.PathEscape(row))
}

// do sends a request with an optional JSON body and decodes a 2xx JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordClientRequest(method, 0, time.Since(start))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.RecordClientRequest(method, resp.StatusCode, time.Since(start))

	c.logger.Debug("table api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= 300 {
		return decodeError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func decodeError(method, path string, resp *http.Response) error {
	he := &HTTPError{Method: method, URL: path, StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return he
	}
	var body ErrorBody
	if json.Unmarshal(data, &body) == nil && body.Error.Code != "" {
		he.Code = body.Error.Code
		he.Message = body.Error.Message
		return he
	}
	he.Message = strings.TrimSpace(string(data))
	return he
}

// ListRows fetches every row of a table.
func (c *Client) ListRows(ctx context.Context, table string) ([]grid.Record, error) {
	return c.ListRowsFiltered(ctx, table, nil)
}

// ListRowsFiltered fetches the rows matching every filter. Matching is the
// same case-insensitive substring rule the grid applies locally.
func (c *Client) ListRowsFiltered(ctx context.Context, table string, filters []grid.Filter) ([]grid.Record, error) {
	var query url.Values
	if len(filters) > 0 {
		query = url.Values{}
		for _, f := range filters {
			query.Add("filter", FilterParam(f))
		}
	}
	var rows []Row
	if err := c.do(ctx, http.MethodGet, tablePath(table, "rows"), query, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertRow creates a row. The server assigns id and position.
func (c *Client) InsertRow(ctx context.Context, table string, values cell.Values) (grid.Record, error) {
	body, err := json.Marshal(InsertRequest{Values: values})
	if err != nil {
		return grid.Record{}, fmt.Errorf("encode insert: %w", err)
	}
	var row Row
	if err := c.do(ctx, http.MethodPost, tablePath(table, "rows"), nil, body, &row); err != nil {
		return grid.Record{}, err
	}
	return row, nil
}

// UpdateCell patches one cell and returns the stored row.
func (c *Client) UpdateCell(ctx context.Context, table, rowID, column string, v cell.Value) (grid.Record, error) {
	body, err := CellPatchBody(column, v)
	if err != nil {
		return grid.Record{}, fmt.Errorf("encode cell patch: %w", err)
	}
	var row Row
	if err := c.do(ctx, http.MethodPatch, rowPath(table, rowID), nil, body, &row); err != nil {
		return grid.Record{}, err
	}
	return row, nil
}

// UpdatePosition patches a row's position.
func (c *Client) UpdatePosition(ctx context.Context, table, rowID string, position int64) error {
	body, err := PositionPatchBody(position)
	if err != nil {
		return fmt.Errorf("encode position patch: %w", err)
	}
	return c.do(ctx, http.MethodPatch, rowPath(table, rowID), nil, body, nil)
}

// DeleteRow deletes a row.
func (c *Client) DeleteRow(ctx context.Context, table, rowID string) error {
	return c.do(ctx, http.MethodDelete, rowPath(table, rowID), nil, nil, nil)
}

// CreateTable registers a table schema.
func (c *Client) CreateTable(ctx context.Context, def *schema.Schema) (*schema.Schema, error) {
	body, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encode table: %w", err)
	}
	var out TableDefinition
	if err := c.do(ctx, http.MethodPost, "/tables", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTable fetches a table schema.
func (c *Client) GetTable(ctx context.Context, table string) (*schema.Schema, error) {
	var out TableDefinition
	if err := c.do(ctx, http.MethodGet, tablePath(table), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}
