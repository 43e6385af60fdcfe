package main

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"cybersentinel/internal/input/redis"
	"cybersentinel/internal/logger"
	"cybersentinel/internal/metrics"
	"cybersentinel/internal/output/viewnats"
	"cybersentinel/internal/pipeline"
	"cybersentinel/internal/server"
	"cybersentinel/internal/tracing"
	"cybersentinel/internal/view"
	"cybersentinel/internal/workflow"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP and websockets",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c := cfg.CyberSentinel
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		c.Server.Addr = addr
	}

	logger.Infof("CyberSentinel starting")
	if path != "" {
		logger.Infof("Config loaded from: %s", path)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Endpoint:    c.Tracing.Endpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warnf("Tracer shutdown: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	var gatherer prometheus.Gatherer
	if c.Metrics.Enabled {
		gatherer = reg
	}

	engine, err := newEngine(c, 0)
	if err != nil {
		return err
	}
	chain, closeChain, err := sourceChain(c.Bootstrap)
	if err != nil {
		return err
	}
	defer closeChain()
	chain.WithObserver(m)

	hub := server.NewHub(c.Server.AllowedOrigins)
	hubSink := view.NewEventSink(hub)
	sinks := view.Fanout{hubSink}
	status := workflow.Publishers{workflow.LogPublisher{}, hubSink}

	if c.NATS.Enabled {
		pub, err := viewnats.Connect(viewnats.Config{URL: c.NATS.URL, SubjectPrefix: c.NATS.SubjectPrefix})
		if err != nil {
			return err
		}
		defer pub.Close()
		natsSink := view.NewEventSink(pub)
		sinks = append(sinks, natsSink)
		status = append(status, natsSink)
	}

	opts := []workflow.Option{
		workflow.WithDelays(delays(c)),
		workflow.WithMetrics(m),
		workflow.WithStatus(status),
	}

	var wg sync.WaitGroup
	writer, err := alertWriter(c.Alerts)
	if err != nil {
		return err
	}
	if writer != nil {
		batcher := pipeline.NewAlertBatcher(writer, c.Alerts.BatchSize, c.Alerts.FlushInterval)
		batcher.Start(ctx)
		defer func() {
			if err := batcher.Close(); err != nil {
				logger.Errorf("Failed to close alert writer: %v", err)
			}
		}()
		opts = append(opts, workflow.WithAlertExporter(batcher))
	}

	renderer := view.NewRenderer(sinks)
	defer renderer.Close()
	orch := workflow.New(engine, chain, renderer, opts...)

	if _, err := orch.Bootstrap(ctx); err != nil {
		logger.Errorf("Bootstrap failed: %v", err)
	}

	if c.Commands.Enabled {
		queue, err := redis.NewQueue(redis.Config{
			Addr:         c.Commands.Redis.Addr,
			Password:     c.Commands.Redis.Password,
			DB:           c.Commands.Redis.DB,
			Key:          c.Commands.Redis.Key,
			BlockTimeout: c.Commands.Redis.BlockTimeout,
		})
		if err != nil {
			return err
		}
		if n, err := queue.Len(ctx); err != nil {
			logger.Warnf("Command queue %s unreachable: %v", queue.Key(), err)
		} else if n > 0 {
			logger.Infof("Command queue %s has %d pending commands", queue.Key(), n)
		}
		pipe, err := pipeline.NewCommandPipeline(queue, orch, m, c.Commands.DedupeSize)
		if err != nil {
			queue.Close()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ignoreCanceled(pipe.Run(ctx)); err != nil {
				logger.Errorf("Command pipeline error: %v", err)
			}
			if err := pipe.Close(); err != nil {
				logger.Errorf("Error closing command pipeline: %v", err)
			}
		}()
	}

	srv := server.NewServer(orch, hub, gatherer)
	err = srv.ListenAndServe(ctx, c.Server.Addr)

	logger.Infof("Shutting down")
	cancel()
	wg.Wait()
	logger.Infof("CyberSentinel stopped")
	return err
}
