// Package alertjson appends correlation alerts to a JSON lines file.
package alertjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cybersentinel/internal/logger"
	"cybersentinel/pkg/models"
)

// Line is one exported alert.
type Line struct {
	ExportedAt string `json:"exported_at"`
	models.AlertRecord
}

// Writer appends alerts to a JSONL file. Existing content is kept so the
// file accumulates across restarts.
type Writer struct {
	file    *os.File
	encoder *json.Encoder
	now     func() time.Time
	mu      sync.Mutex
}

// NewWriter opens path for appending, creating it and its directory.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open alert file: %w", err)
	}

	logger.Infof("Alert JSON writer initialized: %s", path)
	return &Writer{
		file:    f,
		encoder: json.NewEncoder(f),
		now:     time.Now,
	}, nil
}

// WriteAlerts appends one line per alert.
func (w *Writer) WriteAlerts(alerts []*models.AlertRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stamp := w.now().UTC().Format(time.RFC3339)
	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		if err := w.encoder.Encode(Line{ExportedAt: stamp, AlertRecord: *alert}); err != nil {
			return fmt.Errorf("failed to encode alert: %w", err)
		}
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
