package rag

import (
	"context"
	"fmt"
	"sort"

	"github.com/brieflyhq/briefly/internal/errdefs"
)

// DefaultRetriever implements the Retriever interface by combining an Embedder
// and a VectorStore. It embeds the query at retrieval time and delegates
// similarity search to the store.
type DefaultRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// defaultLimit is the number of results to return when the caller passes 0.
	defaultLimit int
}

// NewRetriever constructs a DefaultRetriever from the given Embedder and
// VectorStore. defaultLimit sets the fallback result count when Retrieve is
// called with limit=0.
func NewRetriever(embedder Embedder, store VectorStore, defaultLimit int) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &DefaultRetriever{
		embedder:     embedder,
		store:        store,
		defaultLimit: defaultLimit,
	}, nil
}

// Retrieve embeds the query and returns up to limit documents ranked by
// non-increasing similarity, each stamped with its 1-based rank. A limit of 0
// selects the configured default; a negative limit is rejected with
// errdefs.ErrInvalidArgument. An empty result set is returned as-is: the
// caller renders the sentinel context block, not an error.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query, category string, limit int) ([]Document, error) {
	if limit < 0 {
		return nil, errdefs.InvalidArgumentf("rag: limit must be positive, got %d", limit)
	}
	if limit == 0 {
		limit = r.defaultLimit
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errdefs.Upstreamf("rag: embedding query failed: %v", err)
	}
	if len(embeddings) == 0 {
		return nil, errdefs.Upstreamf("rag: embedder returned empty result for query")
	}

	docs, err := r.store.Search(ctx, embeddings[0], category, limit)
	if err != nil {
		return nil, errdefs.Upstreamf("rag: vector search failed: %v", err)
	}

	// The store returns results in similarity order already; re-sort
	// defensively so the rank invariant never depends on backend behaviour.
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	for i := range docs {
		docs[i].Rank = i + 1
	}

	return docs, nil
}
