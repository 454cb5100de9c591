package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Yates-Labs/scribe/internal/logging"
	"go.uber.org/zap"
)

// DocumentExtension is the only accepted document file extension.
const DocumentExtension = ".txt"

// Indexer splits a document, embeds its chunks and persists them in a VectorStore.
type Indexer struct {
	splitter *Splitter
	embedder Embedder
	store    VectorStore
	logger   *zap.Logger
}

// NewIndexer creates an Indexer. A nil splitter uses the default chunk size and overlap.
func NewIndexer(splitter *Splitter, embedder Embedder, store VectorStore, logger *zap.Logger) (*Indexer, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if splitter == nil {
		splitter = NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	}
	return &Indexer{
		splitter: splitter,
		embedder: embedder,
		store:    store,
		logger:   logging.OrNop(logger),
	}, nil
}

// ValidateDocumentPath checks that path names an existing regular file with the .txt extension.
func ValidateDocumentPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: document path is empty", ErrInvalidInput)
	}
	if filepath.Ext(path) != DocumentExtension {
		return fmt.Errorf("%w: %s is not a %s file", ErrInvalidInput, path, DocumentExtension)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrInvalidInput, path)
	}
	return nil
}

// Build indexes the document at path, overwriting whatever the store held.
func (ix *Indexer) Build(ctx context.Context, path string) (*Index, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidInput, path)
	}

	chunks := ix.splitter.Split(string(data))
	ix.logger.Info("Split document into chunks", zap.Int("chunks", len(chunks)), zap.String("path", path))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	records, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(records) != len(chunks) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(chunks), len(records))
	}

	embedded := make([]EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		embedded[i] = EmbeddedChunk{DocumentChunk: c, Vector: records[i].Embedding}
	}

	if err := ix.store.Replace(ctx, embedded); err != nil {
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}

	buildID := buildIDOf(ix.store)
	ix.logger.Info("Successfully loaded and indexed document",
		zap.String("path", path),
		zap.String("index", ix.store.Location()),
		zap.String("build", buildID),
		zap.Int("chunks", len(embedded)),
		zap.String("model", ix.embedder.GetModel()),
	)

	return &Index{
		Store:    ix.store,
		Location: ix.store.Location(),
		Chunks:   len(embedded),
		BuildID:  buildID,
	}, nil
}

// Load returns the persisted index, or nil when nothing has been persisted yet.
// A partial or unreadable index is reported as ErrCorruptIndex.
func (ix *Indexer) Load(ctx context.Context) (*Index, error) {
	err := ix.store.Load(ctx)
	switch {
	case errors.Is(err, ErrIndexNotFound):
		return nil, nil
	case errors.Is(err, ErrCorruptIndex):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}

	buildID := buildIDOf(ix.store)
	ix.logger.Debug("Loaded existing index",
		zap.String("index", ix.store.Location()),
		zap.String("build", buildID),
		zap.Int("chunks", ix.store.Len()),
	)

	return &Index{
		Store:    ix.store,
		Location: ix.store.Location(),
		Chunks:   ix.store.Len(),
		BuildID:  buildID,
	}, nil
}
