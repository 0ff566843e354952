package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsegrid/internal/grid"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, grid.DefaultRetryPolicy, cfg.Sync.RetryPolicy())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  addr: ":9090"
client:
  url: http://localhost:9090
  timeout: 3s
sync:
  retry:
    max_retries: 5
log:
  level: debug
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Server.Metrics, "unset fields keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Client.Timeout)
	assert.Equal(t, uint64(5), cfg.Sync.Retry.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Sync.Retry.InitialInterval)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("server:\n  adress: \":1\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adress")
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	cfg.Sync.Concurrency = 0
	cfg.Client.URL = "ftp://x"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"log.level", "log.format", "sync.concurrency", "client.url"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PULSEGRID_DATABASE_PATH":    "/tmp/x.db",
		"PULSEGRID_CLIENT_URL":       "http://api",
		"PULSEGRID_CLIENT_TIMEOUT":   "1s",
		"PULSEGRID_SERVER_METRICS":   "false",
		"PULSEGRID_SYNC_CONCURRENCY": "2",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, "http://api", cfg.Client.URL)
	assert.Equal(t, time.Second, cfg.Client.Timeout)
	assert.False(t, cfg.Server.Metrics)
	assert.Equal(t, 2, cfg.Sync.Concurrency)

	env["PULSEGRID_SYNC_CONCURRENCY"] = "many"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulsegrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: file.db\n"), 0o644))

	t.Setenv("PULSEGRID_LOG_LEVEL", "warn")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file.db", cfg.Database.Path)
	assert.Equal(t, "warn", cfg.Log.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf, false)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"k":"v"`)

	buf.Reset()
	LogConfig{Level: "error", Format: "text"}.NewLogger(&buf, true).Debug("debug on")
	assert.Contains(t, buf.String(), "debug on")
}
