// Package config loads pulsegrid settings from YAML with environment
// overrides.
//
// Precedence, lowest first: built-in defaults, the YAML file, PULSEGRID_*
// environment variables, command-line flags (applied by the CLI).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pulsegrid/internal/grid"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PULSEGRID_"

// Config is the complete settings tree.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Client   ClientConfig   `yaml:"client"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures `pulsegrid serve`.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Token   string `yaml:"token"`
	Metrics bool   `yaml:"metrics"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ClientConfig points the rows commands at a remote table API. An empty
// URL means the local database is used directly.
type ClientConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// SyncConfig tunes the grid sync layer.
type SyncConfig struct {
	Concurrency int         `yaml:"concurrency"`
	Retry       RetryConfig `yaml:"retry"`
}

// RetryConfig bounds position-write retries.
type RetryConfig struct {
	MaxRetries      uint64        `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:    ":8080",
			Metrics: true,
		},
		Database: DatabaseConfig{Path: "pulsegrid.db"},
		Client:   ClientConfig{Timeout: 10 * time.Second},
		Sync: SyncConfig{
			Concurrency: grid.DefaultConcurrency,
			Retry: RetryConfig{
				MaxRetries:      grid.DefaultRetryPolicy.MaxRetries,
				InitialInterval: grid.DefaultRetryPolicy.InitialInterval,
				MaxInterval:     grid.DefaultRetryPolicy.MaxInterval,
			},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without consulting the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from PULSEGRID_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("SERVER_ADDR", &c.Server.Addr)
	str("SERVER_TOKEN", &c.Server.Token)
	str("DATABASE_PATH", &c.Database.Path)
	str("CLIENT_URL", &c.Client.URL)
	str("CLIENT_TOKEN", &c.Client.Token)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup(EnvPrefix + "SERVER_METRICS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSERVER_METRICS: %w", EnvPrefix, err)
		}
		c.Server.Metrics = b
	}
	if v, ok := lookup(EnvPrefix + "CLIENT_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sCLIENT_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Client.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "SYNC_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSYNC_CONCURRENCY: %w", EnvPrefix, err)
		}
		c.Sync.Concurrency = n
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: must be text or json", c.Log.Format))
	}
	if c.Sync.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("sync.concurrency must be at least 1, got %d", c.Sync.Concurrency))
	}
	if c.Sync.Retry.InitialInterval <= 0 || c.Sync.Retry.MaxInterval < c.Sync.Retry.InitialInterval {
		errs = append(errs, fmt.Errorf("sync.retry: need 0 < initial_interval <= max_interval"))
	}
	if c.Client.Timeout < 0 {
		errs = append(errs, fmt.Errorf("client.timeout must not be negative"))
	}
	if c.Client.URL != "" && !strings.HasPrefix(c.Client.URL, "http://") && !strings.HasPrefix(c.Client.URL, "https://") {
		errs = append(errs, fmt.Errorf("client.url %q: must be an http(s) URL", c.Client.URL))
	}
	return errors.Join(errs...)
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", l.Level, err)
	}
	return lvl, nil
}

// NewLogger builds the slog logger described by l. verbose forces debug.
func (l LogConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// RetryPolicy converts the retry settings for the grid.
func (s SyncConfig) RetryPolicy() grid.RetryPolicy {
	return grid.RetryPolicy{
		MaxRetries:      s.Retry.MaxRetries,
		InitialInterval: s.Retry.InitialInterval,
		MaxInterval:     s.Retry.MaxInterval,
	}
}

// GridOptions returns the grid options implied by the sync settings.
func (s SyncConfig) GridOptions(logger *slog.Logger) []grid.Option {
	return []grid.Option{
		grid.WithLogger(logger),
		grid.WithRetry(s.RetryPolicy()),
		grid.WithConcurrency(s.Concurrency),
	}
}
