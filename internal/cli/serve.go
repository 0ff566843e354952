package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsegrid/internal/schema"
	"github.com/roach88/pulsegrid/internal/server"
	"github.com/roach88/pulsegrid/internal/store"
)

// ServeOptions holds flags for the serve command. Empty values fall back to
// the config file.
type ServeOptions struct {
	*RootOptions
	Addr     string
	Database string
	Token    string
	Schemas  []string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference table API",
		Long: `Serve the REST table API backed by a SQLite database.

Tables declared in --schema files are created at startup if missing.

Example:
  pulsegrid serve --addr :8080 --db ./pulsegrid.db --schema ./tables.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "bearer token required on /tables")
	cmd.Flags().StringArrayVar(&opts.Schemas, "schema", nil, "CUE schema file to create tables from (repeatable)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	if opts.Token != "" {
		cfg.Server.Token = opts.Token
	}
	logger := opts.logger()

	logger.Info("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, path := range opts.Schemas {
		if err := ensureTables(ctx, st, path, logger); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to create tables from %s", path), err)
		}
	}

	srv := server.New(st,
		server.WithLogger(logger),
		server.WithToken(cfg.Server.Token),
		server.WithMetrics(cfg.Server.Metrics),
	)
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// ensureTables creates every table of a CUE file that the store lacks.
func ensureTables(ctx context.Context, st *store.Store, path string, logger *slog.Logger) error {
	defs, err := loadSchemas(path)
	if err != nil {
		return err
	}
	for _, def := range defs {
		_, err := st.CreateTable(ctx, def)
		switch {
		case err == nil:
			logger.Info("table created", "table", def.ID)
		case errors.Is(err, store.ErrTableExists):
			logger.Debug("table exists", "table", def.ID)
		default:
			return err
		}
	}
	return nil
}

// loadSchemas compiles and validates every table of a CUE file.
func loadSchemas(path string) ([]*schema.Schema, error) {
	defs, err := schema.LoadCUE(path)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if errs := schema.Validate(def); len(errs) > 0 {
			return nil, fmt.Errorf("table %s: %w", def.ID, errs[0])
		}
	}
	return defs, nil
}

// commandContext returns the command's context, or Background when the
// command is executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
