package alertjson

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybersentinel/pkg/models"
)

func TestWriterAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "alerts.jsonl")
	alert := &models.AlertRecord{Indicator: models.Str("203.0.113.24"), Severity: models.Str("high")}

	for i := 0; i < 2; i++ {
		w, err := NewWriter(path)
		require.NoError(t, err)
		w.now = func() time.Time { return time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC) }
		require.NoError(t, w.WriteAlerts([]*models.AlertRecord{alert, nil}))
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "2025-11-14T12:00:00Z", lines[0]["exported_at"])
	assert.Equal(t, "203.0.113.24", lines[1]["indicator"])
	assert.Equal(t, "high", lines[1]["severity"])
}
