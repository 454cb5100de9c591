package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Retriever provides semantic retrieval over a built or loaded Index.
type Retriever struct {
	embedder Embedder
}

// NewRetriever creates a new Retriever instance.
func NewRetriever(embedder Embedder) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}

	return &Retriever{
		embedder: embedder,
	}, nil
}

// Query returns at most k chunks of idx ordered by descending similarity to text.
// Equal scores keep document order.
func (r *Retriever) Query(ctx context.Context, idx *Index, text string, k int) ([]RetrievedChunk, error) {
	if !idx.Ready() {
		return nil, ErrIndexNotReady
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}
	if k <= 0 {
		return []RetrievedChunk{}, nil
	}

	// Generate embedding for the query
	embeddingRecords, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddingRecords) == 0 {
		return nil, fmt.Errorf("%w: no embedding generated for query", ErrEmbeddingFailed)
	}

	// Perform vector similarity search
	chunks, err := idx.Store.Search(ctx, embeddingRecords[0].Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search for query: %w", err)
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].SequenceIndex < chunks[j].SequenceIndex
	})
	if len(chunks) > k {
		chunks = chunks[:k]
	}

	return chunks, nil
}
