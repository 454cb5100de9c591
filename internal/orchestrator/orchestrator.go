// Package orchestrator wires indexing, retrieval, reranking and answer generation into
// a document chat session.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/Yates-Labs/scribe/internal/rag"
	"go.uber.org/zap"
)

// StartResult describes how the session's index was obtained.
type StartResult struct {
	Index   *rag.Index
	Loaded  bool // an index persisted by an earlier run was found
	Rebuilt bool // documentPath was (re)indexed in this run

	// LoadedBuildID identifies the index found at startup, before any rebuild.
	LoadedBuildID string
}

// Start prepares the chatbot for a session on documentPath.
//
// An index persisted by an earlier run is loaded first; failing to read it is fatal.
// The document is then indexed, replacing the loaded index, unless reuse is set and an
// index was loaded. The resulting index is attached to the chatbot exactly once.
func (p *ChatPipeline) Start(ctx context.Context, documentPath string, reuse bool) (*StartResult, error) {
	if err := rag.ValidateDocumentPath(documentPath); err != nil {
		return nil, err
	}

	p.logger.Info("Loading existing vector store", zap.String("location", p.store.Location()))
	existing, err := p.indexer.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing index: %w", err)
	}

	result := &StartResult{Index: existing, Loaded: existing != nil}
	if existing != nil {
		result.LoadedBuildID = existing.BuildID
	}
	if !(reuse && existing != nil) {
		p.logger.Info("Loading document", zap.String("path", documentPath))
		idx, err := p.indexer.Build(ctx, documentPath)
		if err != nil {
			return nil, fmt.Errorf("failed to index document: %w", err)
		}
		result.Index = idx
		result.Rebuilt = true
	}

	if err := p.chatbot.Attach(result.Index); err != nil {
		return nil, fmt.Errorf("failed to attach index: %w", err)
	}
	return result, nil
}
