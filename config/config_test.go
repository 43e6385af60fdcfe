package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cybersentinel.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
cybersentinel:
  server:
    addr: ":9090"
  bootstrap:
    api_url: "http://localhost:5000/api/dataset"
    api_timeout: 2s
    redis:
      enabled: true
      key: "soc:dataset"
    sample_path: "data/sample.json"
  workflow:
    seed: 42
    delays:
      fetch_intel: {min: 100, max: 200}
  commands:
    enabled: true
    redis:
      key: "soc:commands"
      block_timeout: 1s
  alerts:
    enabled: true
    output:
      mode: http
      http:
        url: "http://siem.local/hook"
        headers:
          X-Token: abc
  logging:
    level: debug
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	c := cfg.CyberSentinel
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, 2*time.Second, c.Bootstrap.APITimeout)
	assert.True(t, c.Bootstrap.Redis.Enabled)
	assert.Equal(t, "soc:dataset", c.Bootstrap.Redis.Key)
	assert.Equal(t, uint64(42), c.Workflow.Seed)
	require.NotNil(t, c.Workflow.Delays.FetchIntel)
	assert.Equal(t, 200, c.Workflow.Delays.FetchIntel.Max)
	assert.Nil(t, c.Workflow.Delays.ParseLogs)
	assert.Equal(t, time.Second, c.Commands.Redis.BlockTimeout)
	assert.Equal(t, "http", c.Alerts.Output.Mode)
	assert.Equal(t, "abc", c.Alerts.Output.HTTP.Headers["X-Token"])
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("cybersentinel: [unclosed"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := LoadConfig("cybersentinel.example.yml")
	require.NoError(t, err)

	c := cfg.CyberSentinel
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "file", c.Alerts.Output.Mode)
	assert.Equal(t, "cybersentinel_alerts", c.Alerts.Output.ClickHouse.Table)
	assert.Equal(t, 5*time.Second, c.Alerts.Output.ClickHouse.Timeout)
	require.NotNil(t, c.Workflow.Delays.RunCorrelation)
	assert.Equal(t, 650, c.Workflow.Delays.RunCorrelation.Min)
	assert.Equal(t, 1100, c.Workflow.Delays.RunCorrelation.Max)
	assert.False(t, c.Bootstrap.Redis.Enabled)
}
