package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/Yates-Labs/scribe/internal/logging"
	"go.uber.org/zap"
)

// ErrRerankFailed wraps any failure of the reranking service.
var ErrRerankFailed = errors.New("rerank failed")

// RerankModel reorders documents by relevance to query. It returns indices into documents,
// most relevant first, at most topN of them.
type RerankModel interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]int, error)
}

// Reranker narrows retrieved chunks to the most relevant ones using a RerankModel.
// Any model failure degrades to the first topN candidates in retrieval order.
type Reranker struct {
	model  RerankModel
	logger *zap.Logger
}

// NewReranker creates a Reranker. A nil model always takes the fallback path.
func NewReranker(model RerankModel, logger *zap.Logger) *Reranker {
	logger = logging.OrNop(logger)
	return &Reranker{model: model, logger: logger}
}

// Rerank returns min(topN, len(candidates)) chunks.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []RetrievedChunk, topN int) []RetrievedChunk {
	n := topN
	if n > len(candidates) {
		n = len(candidates)
	}
	if n <= 0 {
		return []RetrievedChunk{}
	}

	ordered, err := r.rerank(ctx, query, candidates, n)
	if err != nil {
		r.logger.Warn("Reranking failed, using retrieval order", zap.Error(err))
		return append([]RetrievedChunk(nil), candidates[:n]...)
	}
	return ordered
}

func (r *Reranker) rerank(ctx context.Context, query string, candidates []RetrievedChunk, n int) ([]RetrievedChunk, error) {
	if r.model == nil {
		return nil, fmt.Errorf("%w: no rerank model configured", ErrRerankFailed)
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Text
	}

	indices, err := r.model.Rerank(ctx, query, documents, n)
	if err != nil {
		return nil, err
	}
	if len(indices) != n {
		return nil, fmt.Errorf("%w: expected %d results, got %d", ErrRerankFailed, n, len(indices))
	}

	seen := make(map[int]bool, n)
	out := make([]RetrievedChunk, 0, n)
	for _, idx := range indices {
		if idx < 0 || idx >= len(candidates) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrRerankFailed, idx)
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: duplicate index %d", ErrRerankFailed, idx)
		}
		seen[idx] = true
		out = append(out, candidates[idx])
	}
	return out, nil
}
