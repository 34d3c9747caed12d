package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"routectl.dev/internal/audit"
	"routectl.dev/internal/cache"
	"routectl.dev/internal/consumers"
	"routectl.dev/internal/eventlog"
	"routectl.dev/internal/logging"
	"routectl.dev/internal/rcmetrics"
)

var serveConsumersCmd = &cobra.Command{
	Use:   "serve-consumers",
	Short: "run the cache invalidator, cache warmer, and audit writer consumer groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServeConsumers(cmd)
	},
}

func runServeConsumers(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Configure(logging.Config{Level: cfg.Service.LogLevel, Format: cfg.Service.LogFormat, Service: cfg.Service.Name, Version: cfg.Service.Version})
	logger := logging.ServiceLogger(cfg.Service.Name, cfg.Service.Version)

	ctx := context.Background()

	c, err := cache.NewRedisCache(cfg.Cache.URL)
	if err != nil {
		return fmt.Errorf("connect cache: %w", err)
	}
	auditStore, err := audit.NewCouchStore(ctx, cfg.Audit.URL, cfg.Audit.Database)
	if err != nil {
		return fmt.Errorf("connect audit store: %w", err)
	}

	reg := prometheus.NewRegistry()
	metrics := rcmetrics.New(reg, cfg.Service.Name)

	dialer := eventlog.RealAMQPDialer{}

	invalidator, err := consumers.NewInvalidator(dialer, cfg.EventLog.URL, cfg.EventLog.Partitions, c, logger)
	if err != nil {
		return fmt.Errorf("start invalidator: %w", err)
	}
	invalidator.WithMetrics(metrics)

	warmer, err := consumers.NewWarmer(dialer, cfg.EventLog.URL, cfg.EventLog.Partitions, c, cfg.Cache.PositiveTTL, logger)
	if err != nil {
		return fmt.Errorf("start warmer: %w", err)
	}
	warmer.WithMetrics(metrics)

	auditWriter, err := consumers.NewAuditWriter(dialer, cfg.EventLog.URL, cfg.EventLog.Partitions, auditStore, logger)
	if err != nil {
		return fmt.Errorf("start audit writer: %w", err)
	}
	auditWriter.WithMetrics(metrics)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(runCtx); err != nil && runCtx.Err() == nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}
	run("cache-invalidator", invalidator.Run)
	run("cache-warmer", warmer.Run)
	run("audit-writer", auditWriter.Run)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Error("consumer group failed")
	case <-sigCh:
		logger.Info("shutdown signal received")
	}

	cancel()
	wg.Wait()

	if err := invalidator.Close(); err != nil {
		logger.WithError(err).Warn("invalidator close error")
	}
	if err := warmer.Close(); err != nil {
		logger.WithError(err).Warn("warmer close error")
	}
	if err := auditWriter.Close(); err != nil {
		logger.WithError(err).Warn("audit writer close error")
	}
	if err := auditStore.Close(); err != nil {
		logger.WithError(err).Warn("audit store close error")
	}
	if err := c.Close(); err != nil {
		logger.WithError(err).Warn("cache close error")
	}
	return nil
}
