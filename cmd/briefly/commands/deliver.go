package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/internal/delivery"
	"github.com/brieflyhq/briefly/internal/logging"
	"github.com/brieflyhq/briefly/internal/report"
	"github.com/brieflyhq/briefly/internal/viz"
)

// NewDeliverCmd constructs the `briefly deliver` command, which re-sends the
// most recent artifacts without regenerating anything.
func NewDeliverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deliver",
		Short: "Deliver the latest reports and charts without regenerating",
		Long: `Send the newest report of each kind plus the rendered charts to every
enabled delivery channel. No model calls are made.

Useful after fixing SMTP or Telegram credentials, or to re-send a day's
artifacts to a new recipient.

Examples:
  briefly deliver`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			reports, err := buildReportStore()
			if err != nil {
				return fmt.Errorf("deliver: %w", err)
			}
			gen, err := buildChartGenerator()
			if err != nil {
				return fmt.Errorf("deliver: %w", err)
			}
			prefs, err := buildSettingsStore()
			if err != nil {
				return fmt.Errorf("deliver: %w", err)
			}

			bundle := delivery.Bundle{GeneratedAt: time.Now()}
			for _, kind := range []report.Kind{report.KindSales, report.KindMarketing, report.KindSummary} {
				path, err := reports.LatestForKind(kind)
				if err != nil {
					return fmt.Errorf("deliver: %w", err)
				}
				if path != "" {
					bundle.Reports = append(bundle.Reports, path)
				}
			}
			for _, name := range viz.Catalog {
				bundle.Charts = append(bundle.Charts, gen.Path(name))
			}

			if bundle.Empty() {
				return fmt.Errorf("deliver: no artifacts found, run 'briefly run' first")
			}

			attempts := delivery.Fanout(ctx, bundle, buildChannels(prefs))
			failed := 0
			for _, a := range attempts {
				switch {
				case a.Skipped:
					fmt.Printf("%s: skipped (disabled)\n", a.Channel)
				case a.Err != nil:
					failed++
					fmt.Printf("%s: failed: %v\n", a.Channel, a.Err)
				default:
					fmt.Printf("%s: delivered in %s\n", a.Channel, a.Duration.Round(time.Millisecond))
				}
			}
			if failed == len(attempts) && failed > 0 {
				return fmt.Errorf("deliver: every channel failed")
			}
			return nil
		},
	}

	return cmd
}
