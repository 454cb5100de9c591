package rag

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// TestMilvusStore_EmptyRecords tests that empty records are rejected before touching Milvus
func TestMilvusStore_EmptyRecords(t *testing.T) {
	store := &MilvusStore{
		config: DefaultMilvusConfig(),
	}

	err := store.Replace(context.Background(), []EmbeddedChunk{})
	if !errors.Is(err, ErrEmptyRecords) {
		t.Errorf("Expected ErrEmptyRecords, got: %v", err)
	}
}

func TestMilvusStore_DimensionMismatch(t *testing.T) {
	config := DefaultMilvusConfig()
	config.Dimension = 4
	store := &MilvusStore{config: config}

	err := store.Replace(context.Background(), []EmbeddedChunk{
		{DocumentChunk: DocumentChunk{Text: "a"}, Vector: []float32{1, 2, 3}},
	})
	if !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("Expected ErrInvalidDimension, got: %v", err)
	}
}

func TestMilvusStore_SearchBeforeLoad(t *testing.T) {
	store := &MilvusStore{config: DefaultMilvusConfig()}

	_, err := store.Search(context.Background(), make([]float32, 1536), 3)
	if !errors.Is(err, ErrIndexNotReady) {
		t.Errorf("Expected ErrIndexNotReady, got: %v", err)
	}
}

func TestChunkFromColumns(t *testing.T) {
	fields := []entity.Column{
		entity.NewColumnInt64("seq", []int64{4, 7}),
		entity.NewColumnInt64("source_offset", []int64{100, 250}),
		entity.NewColumnVarChar("text", []string{"first", "second"}),
	}

	chunk, err := chunkFromColumns(fields, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunk.SequenceIndex != 7 || chunk.SourceOffset != 250 || chunk.Text != "second" {
		t.Errorf("unexpected chunk: %+v", chunk)
	}
}

func TestChunkFromColumns_SchemaMismatch(t *testing.T) {
	tests := []struct {
		name   string
		fields []entity.Column
		row    int
	}{
		{
			name:   "seq stored as text",
			fields: []entity.Column{entity.NewColumnVarChar("seq", []string{"4"})},
		},
		{
			name:   "text stored as integer",
			fields: []entity.Column{entity.NewColumnInt64("text", []int64{1})},
		},
		{
			name:   "row out of range",
			fields: []entity.Column{entity.NewColumnInt64("seq", []int64{1})},
			row:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chunkFromColumns(tt.fields, tt.row)
			if !errors.Is(err, ErrSearchFailed) {
				t.Errorf("Expected ErrSearchFailed, got: %v", err)
			}
		})
	}
}

// TestDefaultMilvusConfig tests default configuration
func TestDefaultMilvusConfig(t *testing.T) {
	config := DefaultMilvusConfig()

	if config.Address == "" {
		t.Error("Expected non-empty address")
	}
	if config.CollectionName != "scribe_chunks" {
		t.Errorf("Expected collection scribe_chunks, got %s", config.CollectionName)
	}
	if config.Dimension != 1536 {
		t.Errorf("Expected dimension 1536, got %d", config.Dimension)
	}
}

func TestNewMilvusStore_InvalidDimension(t *testing.T) {
	config := DefaultMilvusConfig()
	config.Dimension = 0

	_, err := NewMilvusStore(context.Background(), config)
	if !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("Expected ErrInvalidDimension, got: %v", err)
	}
}

// Integration test: Replace, Load, Search against a running Milvus
func TestMilvusStore_Integration_ReplaceLoadSearch(t *testing.T) {
	address := os.Getenv("MILVUS_ADDRESS")
	if testing.Short() || address == "" {
		t.Skip("Skipping integration test: MILVUS_ADDRESS not set")
	}

	ctx := context.Background()
	config := DefaultMilvusConfig()
	config.Address = address
	config.Dimension = 64
	config.CollectionName = "scribe_test_integration"

	store, err := NewMilvusStore(ctx, config)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	embedder := NewMockEmbedder(64)
	texts := []string{
		"The river flooded the valley in spring.",
		"Compilers translate source code into machine code.",
		"Bread rises because yeast produces carbon dioxide.",
	}
	records, err := embedder.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	chunks := make([]EmbeddedChunk, len(records))
	for i, r := range records {
		chunks[i] = EmbeddedChunk{
			DocumentChunk: DocumentChunk{Text: r.Text, SequenceIndex: i},
			Vector:        r.Embedding,
		}
	}

	if err := store.Replace(ctx, chunks); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	reopened, err := NewMilvusStore(ctx, config)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	if err := reopened.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reopened.Len() != len(chunks) {
		t.Errorf("expected %d rows, got %d", len(chunks), reopened.Len())
	}
	if reopened.BuildID() == "" || reopened.BuildID() != store.BuildID() {
		t.Errorf("expected build id %q, got %q", store.BuildID(), reopened.BuildID())
	}

	results, err := reopened.Search(ctx, chunks[1].Vector, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].SequenceIndex != 1 {
		t.Errorf("expected chunk 1 as the nearest neighbour, got %+v", results)
	}
}
