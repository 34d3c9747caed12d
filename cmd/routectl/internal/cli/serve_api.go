package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"routectl.dev/internal/audit"
	"routectl.dev/internal/cache"
	"routectl.dev/internal/config"
	"routectl.dev/internal/eventlog"
	"routectl.dev/internal/health"
	"routectl.dev/internal/httpapi"
	"routectl.dev/internal/logging"
	"routectl.dev/internal/mutator"
	"routectl.dev/internal/rcmetrics"
	"routectl.dev/internal/record"
	"routectl.dev/internal/resilience"
	"routectl.dev/internal/resilience/breaker"
	"routectl.dev/internal/resilience/drain"
	"routectl.dev/internal/resolver"
)

var serveAPICmd = &cobra.Command{
	Use:   "serve-api",
	Short: "run the HTTP boundary (resolve, create, activate, deactivate, audit, health)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServeAPI(cmd)
	},
}

func runServeAPI(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Configure(logging.Config{Level: cfg.Service.LogLevel, Format: cfg.Service.LogFormat, Service: cfg.Service.Name, Version: cfg.Service.Version})
	logger := logging.ServiceLogger(cfg.Service.Name, cfg.Service.Version)

	ctx := context.Background()
	gate := drain.New()

	store, err := record.NewPostgresStore(ctx, cfg.Record.DSN, cfg.Record.MaxConns)
	if err != nil {
		return fmt.Errorf("connect record store: %w", err)
	}

	c, err := cache.NewRedisCache(cfg.Cache.URL)
	if err != nil {
		return fmt.Errorf("connect cache: %w", err)
	}

	auditStore, err := audit.NewCouchStore(ctx, cfg.Audit.URL, cfg.Audit.Database)
	if err != nil {
		return fmt.Errorf("connect audit store: %w", err)
	}

	readKernel := kernelFor("read", gate, cfg.Read, logger)
	writeKernel := kernelFor("write", gate, cfg.Write, logger)
	eventKernel := kernelFor("event", gate, cfg.EventClass, logger)

	producer, err := eventlog.NewProducer(eventlog.RealAMQPDialer{}, eventlog.ProducerConfig{
		URL:            cfg.EventLog.URL,
		Partitions:     cfg.EventLog.Partitions,
		PublishTimeout: cfg.EventLog.PublishTimeout,
		MaxRetries:     cfg.EventLog.MaxRetries,
	}, eventKernel, logger)
	if err != nil {
		return fmt.Errorf("connect event log producer: %w", err)
	}

	reg := prometheus.NewRegistry()
	metrics := rcmetrics.New(reg, cfg.Service.Name)

	res := resolver.New(store, c, readKernel, cfg.Cache.PositiveTTL, cfg.Cache.NegativeTTL, logger).WithMetrics(metrics)
	mut := mutator.New(store, producer, writeKernel, gate, logger).WithMetrics(metrics)

	checker := health.New(gate, map[string]*resilience.Kernel{
		"read":  readKernel,
		"write": writeKernel,
		"event": eventKernel,
	}, []string{"read", "write", "event"})

	server := httpapi.New(httpapi.DefaultConfig(), res, mut, auditStore, checker, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	serveErrCh := make(chan error, 1)
	go func() {
		logger.Infof("serving on %s", addr)
		if err := server.Echo().Start(addr); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-sigCh:
		logger.Info("shutdown signal received, draining")
	}

	gate.StartDraining()
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Read.DrainTimeout)
	defer cancelDrain()
	if err := gate.WaitForDrain(drainCtx); err != nil {
		logger.WithError(err).Warn("drain deadline exceeded, shutting down anyway")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Echo().Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("echo shutdown error")
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("producer close error")
	}
	store.Close()
	if err := auditStore.Close(); err != nil {
		logger.WithError(err).Warn("audit store close error")
	}
	if err := c.Close(); err != nil {
		logger.WithError(err).Warn("cache close error")
	}
	return nil
}

func kernelFor(name string, gate *drain.Gate, rc config.ResilienceConfig, logger *logging.ContextLogger) *resilience.Kernel {
	return resilience.New(name, gate, rc.BulkheadCapacity, breaker.Config{
		Name:        name,
		Window:      rc.BreakerWindow,
		Threshold:   rc.BreakerThreshold,
		MinCalls:    rc.BreakerMinCalls,
		OpenTimeout: rc.BreakerOpenTimeout,
	}, rc.RetryWindow, rc.RetryMax, logger)
}
