package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/internal/embedder"
	"github.com/brieflyhq/briefly/internal/logging"
	"github.com/brieflyhq/briefly/internal/provider"
	"github.com/brieflyhq/briefly/internal/scheduler"
	"github.com/brieflyhq/briefly/internal/server"
	"github.com/brieflyhq/briefly/internal/tracing"
)

// NewServeCmd constructs the `briefly serve` command, which runs the HTTP API
// together with the daily pipeline scheduler.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the daily pipeline scheduler",
		Long: `Start the long-running service: the HTTP API for on-demand generation,
delivery settings and run history, plus the scheduler that triggers the full
pipeline at the configured local time each day.

The schedule defaults to 09:00 Asia/Kolkata and is controlled by the
SCHEDULE_TIME and SCHEDULE_TIMEZONE environment variables. Set
BRIEFLY_API_KEY to require bearer authentication on the /api routes.

Examples:
  briefly serve
  briefly serve --host 0.0.0.0 --port 9090
  SCHEDULE_TIME=07:30 SCHEDULE_TIMEZONE=Europe/Berlin briefly serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Langfuse tracing is opt-in, a no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}

			store, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer store.Close()

			reportAgent, err := buildAgent(chatModel, store, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			prefs, err := buildSettingsStore()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			p, err := buildPipeline(reportAgent, buildChannels(prefs))
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			reports, err := buildReportStore()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			hist, closeHist := openHistory(log)
			defer closeHist()

			sched, err := scheduler.New(ctx,
				os.Getenv("SCHEDULE_TIME"),
				os.Getenv("SCHEDULE_TIMEZONE"),
			)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			if err := sched.Register(func(ctx context.Context) {
				m := p.Run(ctx)
				if err := hist.Record(ctx, m); err != nil {
					logging.FromContext(ctx).Warn("serve: manifest not recorded", "error", err)
				}
			}); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			sched.Start()
			defer sched.Stop()
			log.Info("serve: daily pipeline scheduled", "next", sched.Next())

			srv, err := server.New(server.Deps{
				Pipeline: p,
				Reports:  reports,
				Settings: prefs,
				History:  hist,
			}, &server.Config{
				Host:   host,
				Port:   port,
				Logger: log,
				Pingers: []server.Pinger{
					server.NewLLMPinger(chatModel, getEnvOrDefault("MODEL_PROVIDER", "ollama")),
					server.NewQdrantPinger(store.Client()),
				},
				APIKey:     os.Getenv("BRIEFLY_API_KEY"),
				ReportsDir: getEnvOrDefault("BRIEFLY_REPORTS_DIR", defaultReportsDir),
				ChartsDir:  getEnvOrDefault("BRIEFLY_CHARTS_DIR", defaultChartsDir),
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host interface to bind")
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")

	return cmd
}
