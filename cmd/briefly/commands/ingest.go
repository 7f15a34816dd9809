package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/internal/embedder"
	"github.com/brieflyhq/briefly/internal/ingestion"
	"github.com/brieflyhq/briefly/internal/logging"
)

// NewIngestCmd constructs the `briefly ingest` command, which embeds the
// business datasets and upserts them into the vector store.
func NewIngestCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed the business datasets into the vector store",
		Long: `Load the sales and marketing datasets, embed each record, and upsert
the documents into Qdrant.

Document IDs are deterministic, so re-running ingestion after a dataset
update rewrites points in place instead of duplicating them.

Examples:
  briefly ingest
  BRIEFLY_SALES_DATASET=data/sales_2026.json briefly ingest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			store, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			ing, err := ingestion.New(emb, store, ingestion.WithBatchSize(batchSize))
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			res, err := ing.IngestFiles(ctx,
				getEnvOrDefault("BRIEFLY_SALES_DATASET", defaultSalesDataset),
				getEnvOrDefault("BRIEFLY_MARKETING_DATASET", defaultMarketingDataset),
			)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("ingested %d documents (%d sales, %d marketing)\n",
				res.Total(), res.Sales, res.Marketing)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Documents per embedding call (0 uses the default)")

	return cmd
}
