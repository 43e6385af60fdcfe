package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPConfig configures the API source.
type HTTPConfig struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// HTTPSource fetches the dataset from a backend API.
type HTTPSource struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHTTPSource creates an API source.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("bootstrap API URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (s *HTTPSource) Name() string { return "api" }

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to load sample data (%d)", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
