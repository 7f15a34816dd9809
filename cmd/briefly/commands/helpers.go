package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/brieflyhq/briefly/internal/agent"
	"github.com/brieflyhq/briefly/internal/delivery"
	"github.com/brieflyhq/briefly/internal/embedder"
	"github.com/brieflyhq/briefly/internal/history"
	"github.com/brieflyhq/briefly/internal/pipeline"
	"github.com/brieflyhq/briefly/internal/rag"
	"github.com/brieflyhq/briefly/internal/report"
	"github.com/brieflyhq/briefly/internal/settings"
	"github.com/brieflyhq/briefly/internal/viz"
)

// Default artifact locations, overridable via BRIEFLY_* environment variables.
const (
	defaultReportsDir       = "reports"
	defaultChartsDir        = "charts"
	defaultSalesDataset     = "data/sales_data.json"
	defaultMarketingDataset = "data/marketing_data.json"
	defaultSettingsFile     = "settings.json"
	defaultCollection       = "briefly-records"
)

// buildVectorStore connects to Qdrant using the QDRANT_* environment
// variables and ensures the records collection exists.
func buildVectorStore(ctx context.Context, log *slog.Logger) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", defaultCollection)
	vectorSize := uint64(embedder.DefaultDimensions(embedder.ResolveBackend())) //nolint:gosec // dimensions are bounded

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("collection", collection),
	)
	return store, nil
}

// buildAgent wires the retriever and the two-stage report agent over the
// given chat model and vector store.
func buildAgent(chatModel model.ToolCallingChatModel, store *rag.QdrantStore, log *slog.Logger) (*agent.ReportAgent, error) {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("provider", embedder.ResolveBackend()))

	retriever, err := rag.NewRetriever(emb, store, getEnvInt("BRIEFLY_TOP_K", 0))
	if err != nil {
		return nil, err
	}

	return agent.New(&agent.Config{
		ChatModel:   chatModel,
		Retriever:   retriever,
		TopK:        getEnvInt("BRIEFLY_TOP_K", 0),
		CallTimeout: time.Duration(getEnvInt("MODEL_TIMEOUT_SECONDS", 0)) * time.Second,
	})
}

// buildReportStore opens the report store at BRIEFLY_REPORTS_DIR.
func buildReportStore() (*report.Store, error) {
	return report.NewStore(getEnvOrDefault("BRIEFLY_REPORTS_DIR", defaultReportsDir))
}

// buildChartGenerator opens the chart generator at BRIEFLY_CHARTS_DIR.
func buildChartGenerator() (*viz.Generator, error) {
	return viz.NewGenerator(getEnvOrDefault("BRIEFLY_CHARTS_DIR", defaultChartsDir))
}

// buildSettingsStore opens the delivery settings store at BRIEFLY_SETTINGS_FILE.
func buildSettingsStore() (*settings.Store, error) {
	return settings.NewStore(getEnvOrDefault("BRIEFLY_SETTINGS_FILE", defaultSettingsFile))
}

// buildChannels constructs the delivery fan-out targets from the SMTP_* and
// TELEGRAM_* environment variables. Channels with missing credentials are
// still constructed; their prechecks report the problem at delivery time.
func buildChannels(prefs *settings.Store) []delivery.Channel {
	smtp := delivery.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     getEnvInt("SMTP_PORT", 587),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
	return []delivery.Channel{
		delivery.NewEmailChannel(smtp, prefs),
		delivery.NewTelegramChannel(os.Getenv("TELEGRAM_BOT_TOKEN"), prefs),
	}
}

// buildPipeline assembles the full generate-render-deliver pipeline.
func buildPipeline(reportAgent *agent.ReportAgent, channels []delivery.Channel) (*pipeline.Pipeline, error) {
	reports, err := buildReportStore()
	if err != nil {
		return nil, err
	}
	charts, err := buildChartGenerator()
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Config{
		Agent:         reportAgent,
		Reports:       reports,
		Charts:        charts,
		SalesPath:     getEnvOrDefault("BRIEFLY_SALES_DATASET", defaultSalesDataset),
		MarketingPath: getEnvOrDefault("BRIEFLY_MARKETING_DATASET", defaultMarketingDataset),
		Channels:      channels,
	})
}

// openHistory opens the run-history store. BRIEFLY_HISTORY_DB overrides the
// default path (~/.briefly/history.db); "disabled" turns recording off.
// Failures degrade to a no-op store rather than aborting the command.
func openHistory(log *slog.Logger) (history.RunStore, func()) {
	dbPath := os.Getenv("BRIEFLY_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via BRIEFLY_HISTORY_DB=disabled")
		return history.Noop{}, func() {}
	}
	if dbPath == "" {
		var err error
		dbPath, err = history.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return history.Noop{}, func() {}
		}
	}
	hs, err := history.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return history.Noop{}, func() {}
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}

// getEnvOrDefault returns the environment variable's value or fallback when
// unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the environment variable parsed as an int, or fallback
// when unset or unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
