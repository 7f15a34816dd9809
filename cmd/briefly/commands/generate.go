package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/internal/delivery"
	"github.com/brieflyhq/briefly/internal/embedder"
	"github.com/brieflyhq/briefly/internal/logging"
	"github.com/brieflyhq/briefly/internal/provider"
	"github.com/brieflyhq/briefly/internal/report"
)

// NewGenerateCmd constructs the `briefly generate` command, which runs the
// two-stage analyst/writer conversation for a single query and persists the
// resulting report.
func NewGenerateCmd() *cobra.Command {
	var kind string
	var category string
	var deliver bool

	cmd := &cobra.Command{
		Use:   "generate [query]",
		Short: "Generate a single report from an analytical query",
		Long: `Generate one report outside the daily schedule.

The query is answered against the ingested business records: a retrieval pass
collects the most relevant rows, the analyst stage extracts findings, and the
writer stage produces the final report, which is saved under the reports
directory.

Examples:
  briefly generate "How did enterprise sales perform this quarter?"
  briefly generate --kind marketing --category marketing "Which campaigns had the best ROI?"
  briefly generate --kind summary "Summarise overall business performance"
  briefly generate --deliver "How did enterprise sales perform this quarter?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			reportKind := report.Kind(kind)
			if !reportKind.Valid() {
				return fmt.Errorf("generate: unknown report kind %q", kind)
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("generate: failed to initialise model provider: %w", err)
			}

			store, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			defer store.Close()

			reportAgent, err := buildAgent(chatModel, store, log)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			res, err := reportAgent.GenerateReport(ctx, args[0], category, 0)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			reports, err := buildReportStore()
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			path, err := reports.Save(res.Report, reportKind, time.Now())
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			fmt.Println(res.Report)
			fmt.Printf("\nsaved: %s\n", path)

			if deliver {
				prefs, err := buildSettingsStore()
				if err != nil {
					return fmt.Errorf("generate: %w", err)
				}
				bundle := delivery.Bundle{Reports: []string{path}, GeneratedAt: time.Now()}
				for _, a := range delivery.Fanout(ctx, bundle, buildChannels(prefs)) {
					switch {
					case a.Skipped:
						fmt.Printf("%s: skipped (disabled)\n", a.Channel)
					case a.Err != nil:
						fmt.Printf("%s: failed: %v\n", a.Channel, a.Err)
					default:
						fmt.Printf("%s: delivered\n", a.Channel)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "custom", "Report kind (sales, marketing, summary, custom)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict retrieval to one category (sales, marketing)")
	cmd.Flags().BoolVar(&deliver, "deliver", false, "Send the generated report to every enabled delivery channel")

	return cmd
}
