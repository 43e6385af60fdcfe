// Package alertclickhouse inserts correlation alerts into ClickHouse over
// its HTTP interface.
package alertclickhouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cybersentinel/pkg/models"
)

// Config configures the ClickHouse HTTP writer.
type Config struct {
	URL      string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
	Headers  map[string]string
}

// Row is one inserted alert. Absent fields are sent as empty strings so the
// table can use non-nullable String columns.
type Row struct {
	ExportedAt string `json:"exported_at"`
	AlertTime  string `json:"alert_time"`
	Indicator  string `json:"indicator"`
	LogSource  string `json:"log_source"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
}

// Writer sends alerts to ClickHouse as JSONEachRow.
type Writer struct {
	endpoint string
	headers  map[string]string
	timeout  time.Duration
	client   *http.Client
	now      func() time.Time
}

// NewWriter creates a ClickHouse HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("clickhouse URL is empty")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "cybersentinel_alerts"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	q := fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", quoteIdent(cfg.Database), quoteIdent(cfg.Table))
	endpoint := strings.TrimRight(cfg.URL, "/") + "/?query=" + url.QueryEscape(q)

	headers := make(map[string]string, len(cfg.Headers)+2)
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Username != "" {
		headers["X-ClickHouse-User"] = cfg.Username
	}
	if cfg.Password != "" {
		headers["X-ClickHouse-Key"] = cfg.Password
	}

	return &Writer{
		endpoint: endpoint,
		headers:  headers,
		timeout:  timeout,
		client:   &http.Client{},
		now:      time.Now,
	}, nil
}

// NewRow flattens an alert for insertion.
func NewRow(a *models.AlertRecord, exportedAt time.Time) Row {
	ts, _ := a.Timestamp()
	return Row{
		ExportedAt: exportedAt.UTC().Format("2006-01-02 15:04:05"),
		AlertTime:  ts,
		Indicator:  str(a.Indicator),
		LogSource:  str(a.LogSource),
		Severity:   str(a.Severity),
		Message:    str(a.Message),
	}
}

// WriteAlerts inserts a batch of alerts.
func (w *Writer) WriteAlerts(alerts []*models.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}

	now := w.now()
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, a := range alerts {
		if a == nil {
			continue
		}
		if err := enc.Encode(NewRow(a, now)); err != nil {
			return fmt.Errorf("failed to marshal alert row: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("clickhouse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("clickhouse request failed with status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Close releases idle connections.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func quoteIdent(v string) string {
	return "`" + strings.ReplaceAll(v, "`", "") + "`"
}
