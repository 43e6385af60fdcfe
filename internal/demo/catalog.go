package demo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog holds the tunables and candidate lists the mutators sample from.
type Catalog struct {
	IntelDelta      Range `yaml:"intel_delta"`
	IntelFloor      int   `yaml:"intel_floor"`
	ConfidenceBoost Range `yaml:"confidence_boost"`
	// DefaultConfidence stands in for indicators that carry none.
	DefaultConfidence int `yaml:"default_confidence"`

	SSHDelta      Range     `yaml:"ssh_delta"`
	ApacheDelta   Range     `yaml:"apache_delta"`
	TrendStep     Range     `yaml:"trend_step"`
	TrendFloor    int       `yaml:"trend_floor"`
	TrendBaseline int       `yaml:"trend_baseline"`
	LogTableMin   int       `yaml:"log_table_min"`
	SSHFallbackIP []string  `yaml:"ssh_fallback_ips"`
	SSHUsernames  []string  `yaml:"ssh_usernames"`
	ApacheIPs     []string  `yaml:"apache_ips"`
	ApacheCatalog []Request `yaml:"apache_requests"`

	AlertTableMin      int        `yaml:"alert_table_min"`
	FallbackIndicators []string   `yaml:"fallback_indicators"`
	LogSources         []string   `yaml:"log_sources"`
	Severities         []Template `yaml:"severities"`
}

// Request is one synthetic Apache request shape.
type Request struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
	Status int    `yaml:"status"`
}

// Template is one canned alert severity and message.
type Template struct {
	Severity string `yaml:"severity"`
	Message  string `yaml:"message"`
}

// DefaultCatalog returns the stock demo catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		IntelDelta:        Range{Min: -3, Max: 6},
		IntelFloor:        80,
		ConfidenceBoost:   Range{Min: 2, Max: 10},
		DefaultConfidence: 60,

		SSHDelta:      Range{Min: 4, Max: 12},
		ApacheDelta:   Range{Min: 3, Max: 9},
		TrendStep:     Range{Min: -4, Max: 5},
		TrendFloor:    6,
		TrendBaseline: 12,
		LogTableMin:   5,
		SSHFallbackIP: []string{"198.51.100.42", "203.0.113.24"},
		SSHUsernames:  []string{"root", "deploy", "ops", "analyst", "qa"},
		ApacheIPs:     []string{"45.33.12.8", "91.198.174.192", "203.0.113.24", "198.51.100.42"},
		ApacheCatalog: []Request{
			{Method: "POST", Path: "/api/login", Status: 401},
			{Method: "GET", Path: "/metrics", Status: 200},
			{Method: "GET", Path: "/admin", Status: 302},
			{Method: "GET", Path: "/static/js/app.js", Status: 200},
			{Method: "GET", Path: "/admin/login", Status: 401},
		},

		AlertTableMin:      6,
		FallbackIndicators: []string{"203.0.113.24"},
		LogSources:         []string{"apache", "ssh"},
		Severities: []Template{
			{Severity: "high", Message: "Brute force escalation detected on privileged account."},
			{Severity: "medium", Message: "Repeated probing of sensitive web endpoint."},
			{Severity: "low", Message: "IOC observed with limited activity."},
		},
	}
}

// LoadCatalog reads a YAML catalog. Keys absent from the file keep their
// default values.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	cat := DefaultCatalog()
	if err := yaml.Unmarshal(data, cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Validate rejects catalogs the mutators could not sample from.
func (c *Catalog) Validate() error {
	switch {
	case len(c.SSHFallbackIP) == 0:
		return fmt.Errorf("catalog: ssh_fallback_ips is empty")
	case len(c.SSHUsernames) == 0:
		return fmt.Errorf("catalog: ssh_usernames is empty")
	case len(c.ApacheIPs) == 0:
		return fmt.Errorf("catalog: apache_ips is empty")
	case len(c.ApacheCatalog) == 0:
		return fmt.Errorf("catalog: apache_requests is empty")
	case len(c.FallbackIndicators) == 0:
		return fmt.Errorf("catalog: fallback_indicators is empty")
	case len(c.LogSources) == 0:
		return fmt.Errorf("catalog: log_sources is empty")
	case len(c.Severities) == 0:
		return fmt.Errorf("catalog: severities is empty")
	}
	for _, t := range c.Severities {
		if t.Severity == "" {
			return fmt.Errorf("catalog: severity template with empty severity")
		}
	}
	return nil
}
