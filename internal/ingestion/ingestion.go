// Package ingestion loads the business datasets and populates the vector
// store. Document IDs are derived deterministically from the dataset record
// IDs so re-running ingestion updates points in place instead of duplicating
// them.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/brieflyhq/briefly/internal/dataset"
	"github.com/brieflyhq/briefly/internal/errdefs"
	"github.com/brieflyhq/briefly/internal/logging"
	"github.com/brieflyhq/briefly/internal/rag"
)

// defaultBatchSize bounds how many documents are embedded per upstream call.
const defaultBatchSize = 32

// idNamespace seeds the deterministic document UUIDs. Changing it would remap
// every point ID and orphan previously ingested data.
var idNamespace = uuid.MustParse("8a4bfa02-66d5-4c59-9e54-7f2ad3b5c1de")

// DocumentID returns the stable UUID for a dataset record, derived from its
// category and numeric ID.
func DocumentID(category string, recordID int) string {
	return uuid.NewSHA1(idNamespace, fmt.Appendf(nil, "%s_%d", category, recordID)).String()
}

// Ingestor embeds dataset records and upserts them into the vector store.
type Ingestor struct {
	// embedder converts record text to vectors.
	embedder rag.Embedder

	// store receives the embedded documents.
	store rag.VectorStore

	// batchSize bounds documents per embed call.
	batchSize int
}

// Option customises an Ingestor.
type Option func(*Ingestor)

// WithBatchSize overrides the embedding batch size.
func WithBatchSize(n int) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// New constructs an Ingestor.
func New(embedder rag.Embedder, store rag.VectorStore, opts ...Option) (*Ingestor, error) {
	if embedder == nil {
		return nil, errdefs.InvalidArgumentf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, errdefs.InvalidArgumentf("ingestion: store must not be nil")
	}
	ing := &Ingestor{embedder: embedder, store: store, batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(ing)
	}
	return ing, nil
}

// Result summarises one ingestion run.
type Result struct {
	// Sales is the number of sales documents upserted.
	Sales int
	// Marketing is the number of marketing documents upserted.
	Marketing int
}

// Total returns the overall document count.
func (r Result) Total() int { return r.Sales + r.Marketing }

// IngestFiles loads both dataset files and ingests every record.
func (i *Ingestor) IngestFiles(ctx context.Context, salesPath, marketingPath string) (Result, error) {
	sales, err := dataset.LoadSales(salesPath)
	if err != nil {
		return Result{}, err
	}
	marketing, err := dataset.LoadMarketing(marketingPath)
	if err != nil {
		return Result{}, err
	}
	return i.Ingest(ctx, sales, marketing)
}

// Ingest embeds and upserts the given records. Both slices may be empty.
func (i *Ingestor) Ingest(ctx context.Context, sales []dataset.SalesRecord, marketing []dataset.MarketingRecord) (Result, error) {
	log := logging.FromContext(ctx)

	docs := make([]rag.Document, 0, len(sales)+len(marketing))
	for _, rec := range sales {
		docs = append(docs, salesDocument(rec))
	}
	for _, rec := range marketing {
		docs = append(docs, marketingDocument(rec))
	}

	for start := 0; start < len(docs); start += i.batchSize {
		end := min(start+i.batchSize, len(docs))
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for j, d := range batch {
			texts[j] = d.Content
		}
		embeddings, err := i.embedder.Embed(ctx, texts)
		if err != nil {
			return Result{}, errdefs.Upstreamf("ingestion: embed batch at %d: %v", start, err)
		}
		if len(embeddings) != len(batch) {
			return Result{}, errdefs.Upstreamf("ingestion: embedder returned %d vectors for %d texts", len(embeddings), len(batch))
		}

		if err := i.store.Upsert(ctx, batch, embeddings); err != nil {
			return Result{}, errdefs.Persistencef("ingestion: upsert batch at %d: %v", start, err)
		}
	}

	res := Result{Sales: len(sales), Marketing: len(marketing)}
	log.Info("ingestion: datasets loaded into vector store",
		slog.Int("sales", res.Sales),
		slog.Int("marketing", res.Marketing),
	)
	return res, nil
}

// salesDocument converts a sales record to its stored document form.
func salesDocument(rec dataset.SalesRecord) rag.Document {
	content := rec.Description
	if content == "" {
		content = fmt.Sprintf("%s (%s) sold %d units for $%.2f in %s during %s to the %s segment by %s.",
			rec.Product, rec.Category, rec.UnitsSold, rec.Revenue,
			rec.Region, rec.Quarter, rec.CustomerSegment, rec.SalesRep)
	}
	return rag.Document{
		ID:         DocumentID("sales", rec.ID),
		Content:    content,
		Category:   "sales",
		Attributes: rec.Attributes(),
	}
}

// marketingDocument converts a marketing record to its stored document form.
func marketingDocument(rec dataset.MarketingRecord) rag.Document {
	content := rec.Description
	if content == "" {
		content = fmt.Sprintf("Campaign %q on %s spent $%.2f for %d impressions, %d clicks and %d conversions in %s targeting %s.",
			rec.CampaignName, rec.Channel, rec.Budget,
			rec.Impressions, rec.Clicks, rec.Conversions,
			rec.Quarter, rec.TargetSegment)
	}
	return rag.Document{
		ID:         DocumentID("marketing", rec.ID),
		Content:    content,
		Category:   "marketing",
		Attributes: rec.Attributes(),
	}
}
