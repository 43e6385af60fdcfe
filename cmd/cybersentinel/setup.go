package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"cybersentinel/config"
	"cybersentinel/internal/bootstrap"
	"cybersentinel/internal/demo"
	"cybersentinel/internal/logger"
	"cybersentinel/internal/output/alertclickhouse"
	"cybersentinel/internal/output/alerthttp"
	"cybersentinel/internal/output/alertjson"
	"cybersentinel/internal/pipeline"
	"cybersentinel/internal/workflow"
)

// newEngine builds the mutation engine. A zero seed draws from the clock.
func newEngine(c config.CyberSentinelConfig, seed uint64) (*demo.Engine, error) {
	if seed == 0 {
		seed = c.Workflow.Seed
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	var opts []demo.Option
	if c.Catalog.Path != "" {
		cat, err := demo.LoadCatalog(c.Catalog.Path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, demo.WithCatalog(cat))
		logger.Infof("Mutation catalog loaded from %s", c.Catalog.Path)
	}
	return demo.NewEngine(demo.NewSeededRand(seed), opts...), nil
}

func delays(c config.CyberSentinelConfig) workflow.Delays {
	d := workflow.DefaultDelays()
	if r := c.Workflow.Delays.FetchIntel; r != nil {
		d.Fetch = *r
	}
	if r := c.Workflow.Delays.ParseLogs; r != nil {
		d.Parse = *r
	}
	if r := c.Workflow.Delays.RunCorrelation; r != nil {
		d.Correlate = *r
	}
	return d
}

// sourceChain builds the bootstrap chain in resolution order. The returned
// closer releases the Redis client when one was created.
func sourceChain(c config.BootstrapConfig) (*bootstrap.Chain, func(), error) {
	var sources []bootstrap.Source
	closer := func() {}

	if c.APIURL != "" {
		api, err := bootstrap.NewHTTPSource(bootstrap.HTTPConfig{
			URL:     c.APIURL,
			Timeout: c.APITimeout,
			Headers: c.APIHeaders,
		})
		if err != nil {
			return nil, closer, err
		}
		sources = append(sources, api)
	}
	if c.Redis.Enabled {
		rdb := bootstrap.NewRedisSource(bootstrap.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Key:      c.Redis.Key,
			Timeout:  c.Redis.Timeout,
		})
		sources = append(sources, rdb)
		closer = func() { rdb.Close() }
	}
	if c.SamplePath != "" {
		sources = append(sources, bootstrap.NewFileSource("sample", c.SamplePath))
	}
	if c.EmbeddedPath != "" {
		sources = append(sources, bootstrap.NewFileSource("embedded", c.EmbeddedPath))
	}
	sources = append(sources, bootstrap.Fallback())

	chain := bootstrap.NewChain(sources...)
	logger.Infof("Bootstrap sources: %v", chain.Sources())
	return chain, closer, nil
}

// alertWriter builds the configured alert sink, or nil when export is off.
func alertWriter(c config.AlertsConfig) (pipeline.AlertWriter, error) {
	if !c.Enabled {
		return nil, nil
	}
	switch c.Output.Mode {
	case "file":
		w, err := alertjson.NewWriter(c.Output.File.Path)
		if err != nil {
			return nil, fmt.Errorf("create alert file writer: %w", err)
		}
		logger.Infof("Alert output mode: file (%s)", c.Output.File.Path)
		return w, nil
	case "http":
		w, err := alerthttp.NewWriter(alerthttp.Config{
			URL:     c.Output.HTTP.URL,
			Timeout: c.Output.HTTP.Timeout,
			Headers: c.Output.HTTP.Headers,
		})
		if err != nil {
			return nil, fmt.Errorf("create alert HTTP writer: %w", err)
		}
		logger.Infof("Alert output mode: http (%s)", c.Output.HTTP.URL)
		return w, nil
	case "clickhouse":
		ch := c.Output.ClickHouse
		w, err := alertclickhouse.NewWriter(alertclickhouse.Config{
			URL:      ch.URL,
			Database: ch.Database,
			Table:    ch.Table,
			Username: ch.Username,
			Password: ch.Password,
			Timeout:  ch.Timeout,
			Headers:  ch.Headers,
		})
		if err != nil {
			return nil, fmt.Errorf("create alert ClickHouse writer: %w", err)
		}
		logger.Infof("Alert output mode: clickhouse (%s)", ch.URL)
		return w, nil
	}
	return nil, fmt.Errorf("unknown alert output mode: %s", c.Output.Mode)
}

func readDataset(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return raw, nil
}
