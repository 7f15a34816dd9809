package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/internal/embedder"
	"github.com/brieflyhq/briefly/internal/logging"
	"github.com/brieflyhq/briefly/internal/pipeline"
	"github.com/brieflyhq/briefly/internal/provider"
	"github.com/brieflyhq/briefly/internal/tracing"
)

// NewRunCmd constructs the `briefly run` command, which executes one full
// pipeline run: all daily reports, the chart catalog, and delivery to every
// enabled channel.
func NewRunCmd() *cobra.Command {
	var noDeliver bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full daily pipeline once",
		Long: `Run the complete generate-render-deliver pipeline immediately.

All daily report kinds (sales, marketing, summary) are generated, the chart
catalog is rendered from the raw datasets, and the bundle is fanned out to
every enabled delivery channel. The run manifest is printed as JSON and
recorded in the history database.

Examples:
  briefly run
  briefly run --no-deliver
  BRIEFLY_HISTORY_DB=disabled briefly run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
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
				return fmt.Errorf("run: %w", err)
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("run: failed to initialise model provider: %w", err)
			}

			store, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			defer store.Close()

			reportAgent, err := buildAgent(chatModel, store, log)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			prefs, err := buildSettingsStore()
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			channels := buildChannels(prefs)
			if noDeliver {
				channels = nil
			}

			p, err := buildPipeline(reportAgent, channels)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			hist, closeHist := openHistory(log)
			defer closeHist()

			m := p.Run(ctx)
			if err := hist.Record(ctx, m); err != nil {
				log.Warn("run: manifest not recorded", "error", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(m); err != nil {
				return fmt.Errorf("run: %w", err)
			}

			if m.Status == pipeline.StatusFailed {
				return fmt.Errorf("run: pipeline produced no artifacts")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noDeliver, "no-deliver", false, "Generate reports and charts but skip the delivery fan-out")

	return cmd
}
