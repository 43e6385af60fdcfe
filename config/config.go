package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cybersentinel/internal/demo"
)

// Config is the root configuration.
type Config struct {
	CyberSentinel CyberSentinelConfig `yaml:"cybersentinel"`
}

// CyberSentinelConfig is the project configuration.
type CyberSentinelConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Commands  CommandsConfig  `yaml:"commands"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	NATS      NATSConfig      `yaml:"nats"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BootstrapConfig lists the dataset sources tried at start-up. Empty
// entries are skipped; the built-in dataset is always tried last.
type BootstrapConfig struct {
	APIURL       string            `yaml:"api_url"`
	APITimeout   time.Duration     `yaml:"api_timeout"`
	APIHeaders   map[string]string `yaml:"api_headers"`
	Redis        RedisKeyConfig    `yaml:"redis"`
	SamplePath   string            `yaml:"sample_path"`
	EmbeddedPath string            `yaml:"embedded_path"`
}

// RedisKeyConfig points at a single Redis key.
type RedisKeyConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// WorkflowConfig controls step latencies, in milliseconds.
type WorkflowConfig struct {
	Seed   uint64         `yaml:"seed"`
	Delays WorkflowDelays `yaml:"delays"`
}

// WorkflowDelays holds one range per step.
type WorkflowDelays struct {
	FetchIntel     *demo.Range `yaml:"fetch_intel"`
	ParseLogs      *demo.Range `yaml:"parse_logs"`
	RunCorrelation *demo.Range `yaml:"run_correlation"`
}

// CatalogConfig points at an optional mutation catalog override.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// CommandsConfig controls the Redis command queue.
type CommandsConfig struct {
	Enabled    bool        `yaml:"enabled"`
	Redis      RedisConfig `yaml:"redis"`
	DedupeSize int         `yaml:"dedupe_size"`
}

// RedisConfig controls Redis list input.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// AlertsConfig controls export of correlation alerts.
type AlertsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Output        OutputConfig  `yaml:"output"`
}

// OutputConfig controls output.
type OutputConfig struct {
	Mode       string                 `yaml:"mode"` // file|http|clickhouse
	File       FileOutputConfig       `yaml:"file"`
	HTTP       HTTPOutputConfig       `yaml:"http"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// ClickHouseOutputConfig config for ClickHouse HTTP inserts.
type ClickHouseOutputConfig struct {
	URL      string            `yaml:"url"`
	Database string            `yaml:"database"`
	Table    string            `yaml:"table"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

// NATSConfig controls view fan-out over NATS.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MetricsConfig controls the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
