// Package alerthttp posts correlation alerts to a webhook.
package alerthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cybersentinel/pkg/models"
)

// Payload is the webhook body.
type Payload struct {
	Source string                `json:"source"`
	Count  int                   `json:"count"`
	Alerts []*models.AlertRecord `json:"alerts"`
}

// Config configures the HTTP writer.
type Config struct {
	URL     string
	Source  string
	Timeout time.Duration
	Headers map[string]string
}

// Writer sends alert batches to a remote HTTP endpoint.
type Writer struct {
	url     string
	source  string
	headers map[string]string
	timeout time.Duration
	client  *http.Client
}

// NewWriter creates an HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("http alert URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	source := cfg.Source
	if source == "" {
		source = "cybersentinel"
	}
	return &Writer{
		url:     cfg.URL,
		source:  source,
		headers: cfg.Headers,
		timeout: timeout,
		client:  &http.Client{},
	}, nil
}

// WriteAlerts posts a batch of alerts.
func (w *Writer) WriteAlerts(alerts []*models.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(Payload{Source: w.source, Count: len(alerts), Alerts: alerts})
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("http request failed with status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Close releases HTTP resources.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
