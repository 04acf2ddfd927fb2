// Package cli holds the process wiring shared by cmd/finboard and
// cmd/finboard-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finboard/internal/ai"
	"finboard/internal/cache"
	"finboard/internal/config"
	"finboard/internal/log"
	"finboard/internal/sheets"
	gsheet "finboard/internal/sheets/google"
	memsheet "finboard/internal/sheets/memory"
)

// SetupLogger builds the process logger and installs it as the slog default.
func SetupLogger(level, format string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	if format != "" {
		cfg.Format = format
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig parses and validates the environment configuration.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// Advisor groups the AI collaborators the services need.
type Advisor struct {
	Categorizer ai.Categorizer
	Receipts    ai.ReceiptAnalyzer
	Insights    ai.InsightGenerator
	// Caches holds the categorization cache; the caller sweeps and stops it.
	Caches *cache.Manager
}

// SetupAdvisor connects to Gemini when an API key is configured and falls
// back to the disabled advisor otherwise.
func SetupAdvisor(ctx context.Context, cfg *config.Config, logger *log.Logger) (Advisor, error) {
	caches := cache.NewManager(logger)

	gemini, err := ai.NewGemini(ctx, ai.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.AITimeout,
	}, logger)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn("GEMINI_API_KEY not set, AI features use fallbacks")
		disabled := ai.Disabled{}
		return Advisor{Categorizer: disabled, Receipts: disabled, Insights: disabled, Caches: caches}, nil
	case err != nil:
		return Advisor{}, fmt.Errorf("initialize Gemini: %w", err)
	}

	lru := cache.NewLRUCache[ai.Categorization](cfg.CategoryCacheSize, cfg.CategoryCacheTTL)
	caches.Register(lru)
	logger.Info("Gemini advisor ready",
		"model", cfg.GeminiModel,
		"category_cache_size", cfg.CategoryCacheSize,
		"category_cache_ttl", cfg.CategoryCacheTTL.String())

	return Advisor{
		Categorizer: ai.NewCachedCategorizer(gemini, lru, logger),
		Receipts:    gemini,
		Insights:    gemini,
		Caches:      caches,
	}, nil
}

// SetupExporter returns the Google Sheets exporter when a spreadsheet is
// configured, else an in-memory exporter that only records rows.
func SetupExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.TransactionExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, rows are kept in memory")
		return memsheet.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM and a
// channel closed once cleanup has run or timeout has elapsed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
