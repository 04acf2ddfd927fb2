package cli

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"finboard/internal/ai"
	"finboard/internal/config"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/sheets"
	memsheet "finboard/internal/sheets/memory"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DATA_BACKEND", "memory")
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	t.Setenv("DATA_BACKEND", "sheets")
	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "invalid data backend 'sheets'") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetupAdvisorWithoutKey(t *testing.T) {
	cfg := &config.Config{GeminiModel: "gemini-2.5-pro", AITimeout: time.Second, CategoryCacheSize: 10, CategoryCacheTTL: time.Minute}
	adv, err := SetupAdvisor(context.Background(), cfg, log.Discard())
	if err != nil {
		t.Fatalf("SetupAdvisor: %v", err)
	}
	defer adv.Caches.Stop()

	got := adv.Categorizer.Categorize(context.Background(), "Paycheck", "", core.Money{Cents: 100000})
	if got.Category != "Other" || !got.IsIncome || got.Confidence != ai.FallbackConfidence {
		t.Errorf("expected fallback categorization, got %+v", got)
	}
	if _, err := adv.Receipts.AnalyzeReceipt(context.Background(), []byte("x"), "image/png"); err == nil {
		t.Errorf("receipt analysis must fail without a key")
	}
	if got := adv.Insights.GenerateInsights(context.Background(), ai.InsightRequest{}); len(got) != 0 {
		t.Errorf("expected no insights, got %d", len(got))
	}
}

func TestSetupExporterDefaultsToMemory(t *testing.T) {
	exp, err := SetupExporter(context.Background(), &config.Config{}, log.Discard())
	if err != nil {
		t.Fatalf("SetupExporter: %v", err)
	}
	mem, ok := exp.(*memsheet.Exporter)
	if !ok {
		t.Fatalf("expected memory exporter, got %T", exp)
	}
	if _, err := mem.ExportTransaction(context.Background(), sheets.Row{ID: "t1"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(mem.Rows()) != 1 {
		t.Errorf("row not recorded")
	}
}

func TestSetupLoggerParsesLevel(t *testing.T) {
	logger := SetupLogger("debug", "json")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("debug level should be enabled")
	}
}
