package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybersentinel/config"
	"cybersentinel/internal/demo"
	"cybersentinel/internal/output/alertclickhouse"
	"cybersentinel/internal/output/alertjson"
	"cybersentinel/internal/workflow"
	"cybersentinel/pkg/models"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &config.Config{}
	applyDefaults(cfg)
	c := cfg.CyberSentinel
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "cybersentinel:dataset", c.Bootstrap.Redis.Key)
	assert.Equal(t, "cybersentinel:commands", c.Commands.Redis.Key)
	assert.Equal(t, 5*time.Second, c.Commands.Redis.BlockTimeout)
	assert.Equal(t, "file", c.Alerts.Output.Mode)
	assert.Equal(t, "output/alerts.jsonl", c.Alerts.Output.File.Path)
	assert.Equal(t, "cybersentinel.view", c.NATS.SubjectPrefix)
	assert.Equal(t, "info", c.Logging.Level)
}

func TestDelaysOverride(t *testing.T) {
	var c config.CyberSentinelConfig
	c.Workflow.Delays.ParseLogs = &demo.Range{Min: 1, Max: 2}
	d := delays(c)
	assert.Equal(t, demo.Range{Min: 1, Max: 2}, d.Parse)
	assert.Equal(t, workflow.DefaultDelays().Fetch, d.Fetch)
}

func TestParseActions(t *testing.T) {
	got, err := parseActions("fetchIntel, run-correlation,,")
	require.NoError(t, err)
	assert.Equal(t, []workflow.Action{workflow.FetchIntel, workflow.RunCorrelation}, got)

	_, err = parseActions("bootstrap")
	assert.ErrorIs(t, err, workflow.ErrUnknownAction)
	_, err = parseActions(" , ")
	assert.Error(t, err)
}

func TestSourceChainOrder(t *testing.T) {
	chain, closeChain, err := sourceChain(config.BootstrapConfig{
		APIURL:       "http://127.0.0.1:1/api/dataset",
		Redis:        config.RedisKeyConfig{Enabled: true},
		SamplePath:   "sample.json",
		EmbeddedPath: "embedded.json",
	})
	require.NoError(t, err)
	defer closeChain()
	assert.Equal(t, []string{"api", "redis", "sample", "embedded", "fallback"}, chain.Sources())
}

func TestAlertWriterModes(t *testing.T) {
	var c config.AlertsConfig
	w, err := alertWriter(c)
	require.NoError(t, err)
	assert.Nil(t, w)

	c.Enabled = true
	c.Output.Mode = "file"
	c.Output.File.Path = filepath.Join(t.TempDir(), "alerts.jsonl")
	w, err = alertWriter(c)
	require.NoError(t, err)
	assert.IsType(t, &alertjson.Writer{}, w)
	require.NoError(t, w.Close())

	c.Output.Mode = "clickhouse"
	c.Output.ClickHouse.URL = "http://127.0.0.1:8123"
	w, err = alertWriter(c)
	require.NoError(t, err)
	assert.IsType(t, &alertclickhouse.Writer{}, w)

	c.Output.Mode = "kafka"
	_, err = alertWriter(c)
	assert.Error(t, err)
}

func TestSimulateWritesSteps(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "sim", "steps.jsonl")
	final := filepath.Join(dir, "final.json")

	cmd := newSimulateCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--steps", "4", "--seed", "5", "-o", out, "--final", final})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, stdout.String(), "simulated steps=4")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	var recs []stepRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec stepRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.Len(t, recs, 4)
	assert.Equal(t, workflow.FetchIntel, recs[0].Action)
	assert.Equal(t, workflow.RunCorrelation, recs[2].Action)
	assert.Equal(t, 13, recs[2].KPIs.Alerts)
	assert.Equal(t, workflow.FetchIntel, recs[3].Action)
	assert.Empty(t, recs[3].Error)

	raw, err := os.ReadFile(final)
	require.NoError(t, err)
	var d models.Dataset
	require.NoError(t, json.Unmarshal(raw, &d))
	assert.Equal(t, 13, d.KPIs.Alerts)
}

func TestValidateCommand(t *testing.T) {
	cmd := newValidateCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{filepath.Join("..", "..", "internal", "bootstrap", "fallback.json")})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "valid: ")
	assert.Contains(t, stdout.String(), "trend_buckets=7")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"ssh_table":[]}`), 0644))
	cmd = newValidateCmd()
	cmd.SetArgs([]string{bad})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
