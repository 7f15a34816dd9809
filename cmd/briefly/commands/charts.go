package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/internal/dataset"
	"github.com/brieflyhq/briefly/internal/logging"
)

// NewChartsCmd constructs the `briefly charts` command, which renders the
// chart catalog from the raw datasets without generating reports or
// delivering anything.
func NewChartsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Render the chart catalog from the raw datasets",
		Long: `Render every chart in the catalog as a PNG under the charts directory.

Charts are aggregated directly from the JSON datasets, no model calls are
made. A chart whose data is missing or insufficient is skipped and reported;
the remaining charts still render.

Examples:
  briefly charts
  BRIEFLY_CHARTS_DIR=/tmp/charts briefly charts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()

			sales, err := dataset.LoadSales(getEnvOrDefault("BRIEFLY_SALES_DATASET", defaultSalesDataset))
			if err != nil {
				log.Warn("charts: sales dataset unavailable", "error", err)
			}
			marketing, err := dataset.LoadMarketing(getEnvOrDefault("BRIEFLY_MARKETING_DATASET", defaultMarketingDataset))
			if err != nil {
				log.Warn("charts: marketing dataset unavailable", "error", err)
			}

			gen, err := buildChartGenerator()
			if err != nil {
				return fmt.Errorf("charts: %w", err)
			}

			paths, renderErr := gen.GenerateAll(sales, marketing)
			for _, p := range paths {
				fmt.Println(p)
			}
			if renderErr != nil {
				if len(paths) == 0 {
					return fmt.Errorf("charts: %w", renderErr)
				}
				fmt.Printf("\nsome charts failed: %v\n", renderErr)
			}
			return nil
		},
	}

	return cmd
}
