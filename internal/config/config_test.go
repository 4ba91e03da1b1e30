package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
observability:
  log_level: debug
  metrics_addr: ":9090"
rules:
  - limit: 3
    window_ms: 5000
  - limit: 10
    window_ms: 60000
demo:
  calls: 50
  concurrency: 8
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, ":9090", cfg.Observability.MetricsAddr)
	require.Len(t, cfg.Rules, 2)
	assert.Equal(t, 3, cfg.Rules[0].Limit)
	assert.Equal(t, 5*time.Second, cfg.Rules[0].Window())
	assert.Equal(t, time.Minute, cfg.Rules[1].Window())
	assert.Equal(t, 50, cfg.Demo.Calls)
	assert.Equal(t, 8, cfg.Demo.Concurrency)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Empty(t, cfg.Observability.MetricsAddr)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, 60, cfg.Rules[0].Limit)
	assert.Equal(t, time.Minute, cfg.Rules[0].Window())
	assert.Equal(t, 20, cfg.Demo.Calls)
	assert.Equal(t, 4, cfg.Demo.Concurrency)
}

func TestLoadFillsInvalidRuleValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
rules:
  - limit: -1
    window_ms: 0
`))
	require.NoError(t, err)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, 60, cfg.Rules[0].Limit)
	assert.Equal(t, 60_000, cfg.Rules[0].WindowMS)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "rules: [not a rule"))
	assert.Error(t, err)
}
