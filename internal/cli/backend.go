package cli

import (
	"context"
	"fmt"

	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/schema"
	"github.com/roach88/pulsegrid/internal/store"
	"github.com/roach88/pulsegrid/internal/tableapi"
)

// tableBackend is what the row and schema commands need: row sync plus
// table definitions. Both the local store and the REST client provide it.
type tableBackend interface {
	grid.Backend
	CreateTable(ctx context.Context, def *schema.Schema) (*schema.Schema, error)
	GetTable(ctx context.Context, id string) (*schema.Schema, error)
}

var (
	_ tableBackend = (*store.Store)(nil)
	_ tableBackend = (*tableapi.Client)(nil)
)

// openBackend returns the REST client when client.url is configured and
// the local database otherwise. The returned func releases it.
func (o *RootOptions) openBackend() (tableBackend, func(), error) {
	cfg := o.Config
	logger := o.logger()

	if cfg.Client.URL != "" {
		logger.Debug("using remote table API", "url", cfg.Client.URL)
		c := tableapi.NewClient(cfg.Client.URL,
			tableapi.WithToken(cfg.Client.Token),
			tableapi.WithTimeout(cfg.Client.Timeout),
			tableapi.WithClientLogger(logger),
		)
		return c, func() {}, nil
	}

	logger.Debug("using local database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}, nil
}

// openTable loads a table through the configured backend.
func (o *RootOptions) openTable(ctx context.Context, id string, extra ...grid.Option) (*grid.Table, func(), error) {
	backend, release, err := o.openBackend()
	if err != nil {
		return nil, nil, err
	}

	def, err := backend.GetTable(ctx, id)
	if err != nil {
		release()
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to get table %s", id), err)
	}

	logger := o.logger()
	opts := o.Config.Sync.GridOptions(logger)
	opts = append(opts, grid.WithNotifier(grid.LogNotifier{Logger: logger}))
	opts = append(opts, extra...)

	t := grid.NewTable(id, def, backend, opts...)
	if err := t.Load(ctx); err != nil {
		release()
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load table %s", id), err)
	}
	return t, release, nil
}
