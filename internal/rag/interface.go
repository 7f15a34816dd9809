// Package rag implements the context-retrieval layer of the report pipeline:
// vector storage, category-filtered similarity search, and formatting of the
// results into the prompt-ready context block consumed by the agent.
// Concrete backends (Qdrant) satisfy the interfaces here so the agent layer
// never depends on a specific store.
package rag

import (
	"context"
)

// Document is one matched business record retrieved from the vector store.
type Document struct {
	// ID is the unique identifier of the stored document.
	ID string

	// Content is the raw text content that was embedded.
	Content string

	// Category is the document's category tag (e.g. "sales", "marketing").
	Category string

	// Attributes holds the category-specific metadata fields
	// (product/region/revenue for sales, campaign/channel/budget for marketing).
	Attributes map[string]string

	// Score is the similarity score in [0, 1], derived from the store's
	// distance metric as 1 - distance and clipped into range.
	Score float32

	// Rank is the 1-based position in the result list, assigned by the
	// retriever. Results are ordered by non-increasing Score.
	Rank int
}

// VectorStore is the interface for persisting and searching document
// embeddings. Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed
	// embeddings. embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns the top-k most similar documents for the query
	// embedding, ordered by descending similarity. An empty category means
	// all categories are eligible; a non-empty category restricts results to
	// documents carrying that tag.
	Search(ctx context.Context, queryEmbedding []float32, category string, topK int) ([]Document, error)

	// Count returns the number of documents currently stored.
	Count(ctx context.Context) (uint64, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever fetches ranked, optionally category-filtered context for a query.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns up to limit documents relevant to query, ranked by
	// non-increasing similarity. category narrows the search to one document
	// category; pass "" for all categories. limit must be positive.
	Retrieve(ctx context.Context, query, category string, limit int) ([]Document, error)
}
