// Package server exposes grid tables over the REST table API using gin.
//
// The wire contract lives in package tableapi; this package maps it onto a
// Repository, normally the SQLite store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/schema"
)

// Repository is the storage the server serves. *store.Store implements it.
type Repository interface {
	CreateTable(ctx context.Context, def *schema.Schema) (*schema.Schema, error)
	GetTable(ctx context.Context, id string) (*schema.Schema, error)
	ListRowsFiltered(ctx context.Context, table string, filters []grid.Filter) ([]grid.Record, error)
	GetRow(ctx context.Context, table, rowID string) (grid.Record, error)
	InsertRow(ctx context.Context, table string, values cell.Values) (grid.Record, error)
	UpdateCells(ctx context.Context, table, rowID string, values cell.Values) (grid.Record, error)
	UpdatePosition(ctx context.Context, table, rowID string, position int64) error
	DeleteRow(ctx context.Context, table, rowID string) error
	Ping(ctx context.Context) error
}

// DefaultShutdownTimeout bounds graceful shutdown in Run.
const DefaultShutdownTimeout = 5 * time.Second

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithToken requires "Authorization: Bearer <token>" on every table route.
// An empty token disables authentication.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithMetrics toggles the /metrics endpoint. Enabled by default.
func WithMetrics(enabled bool) Option {
	return func(s *Server) {
		s.metrics = enabled
	}
}

// Server is the REST front end of a Repository.
type Server struct {
	repo    Repository
	router  *gin.Engine
	logger  *slog.Logger
	token   string
	metrics bool
}

// New builds a server and its routes.
func New(repo Repository, opts ...Option) *Server {
	s := &Server{
		repo:    repo,
		logger:  slog.Default(),
		metrics: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(s.recovery(), s.observe())
	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, errRouteNotFound)
	})
	router.NoMethod(func(c *gin.Context) {
		writeError(c, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})

	router.GET("/healthz", s.handleHealth)
	if s.metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/tables", s.authenticate())
	{
		api.POST("", s.handleCreateTable)
		api.GET("/:table", s.handleGetTable)
		api.GET("/:table/rows", s.handleListRows)
		api.POST("/:table/rows", s.handleInsertRow)
		api.PATCH("/:table/rows/:row", s.handlePatchRow)
		api.DELETE("/:table/rows/:row", s.handleDeleteRow)
	}

	s.router = router
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("table api listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	s.logger.Info("table api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
