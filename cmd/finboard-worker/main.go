package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/backend"
	"finboard/internal/cli"
	"finboard/internal/config"
	"finboard/internal/log"
	"finboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")).WithComponent(log.ComponentWorker)
	logger.Info("Starting finboard-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := checkWorkerConfig(cfg); err != nil {
		logger.Error("Invalid worker configuration", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	if err := run(shutdownCtx, cfg, backend.NewFactory(logger), logger); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker shutdown complete")
}

// checkWorkerConfig requires a broker and a store shared with the API process.
func checkWorkerConfig(cfg *config.Config) error {
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required for the worker")
	}
	if cfg.DataBackend != config.BackendSQLite {
		return fmt.Errorf("the worker needs a shared store, set DATA_BACKEND=%s", config.BackendSQLite)
	}
	return nil
}

// run consumes transaction events until ctx is cancelled. Every resource it
// opens is released before it returns.
func run(ctx context.Context, cfg *config.Config, factory backend.Factory, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend configuration: %w", err)
	}
	// The worker consumes events itself; it never publishes them.
	backendCfg.AMQPURL = ""
	backendCfg.SeedDemoData = false

	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	exporter, err := cli.SetupExporter(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize exporter: %w", err)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(result.Store, result.Store, exporter, logger)

	// Consume only returns once ctx is cancelled.
	if err := amqpClient.Consume(ctx, exportWorker.Handle); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume events: %w", err)
	}
	return nil
}
