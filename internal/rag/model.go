// Package rag implements the retrieval half of the document chat: splitting a text
// document into overlapping chunks, embedding and persisting them, similarity search
// over the persisted vectors, and optional reranking of the results.
package rag

import (
	"context"
	"errors"
)

var (
	// ErrInvalidInput marks a bad document path or an unusable document.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexNotFound is returned by VectorStore.Load when nothing has been persisted.
	ErrIndexNotFound = errors.New("index not found")

	// ErrCorruptIndex marks a partially written or unreadable index. It is never repaired;
	// the index has to be rebuilt.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrIndexNotReady is returned when querying without a loaded, non-empty index.
	ErrIndexNotReady = errors.New("index not ready")
)

// DocumentChunk is one window of the source document.
type DocumentChunk struct {
	Text          string `json:"text"`
	SourceOffset  int    `json:"source_offset"` // rune offset into the source document
	SequenceIndex int    `json:"sequence_index"`
}

// EmbeddedChunk is a chunk together with its embedding vector.
type EmbeddedChunk struct {
	DocumentChunk
	Vector []float32 `json:"vector"`
}

// RetrievedChunk is an embedded chunk scored against one query.
type RetrievedChunk struct {
	EmbeddedChunk
	Score float32 `json:"score"` // cosine similarity, higher is closer
}

// VectorStore persists embedded chunks and answers similarity queries over them.
type VectorStore interface {
	// Replace overwrites whatever the store holds with chunks.
	Replace(ctx context.Context, chunks []EmbeddedChunk) error

	// Load reads previously persisted chunks. It returns ErrIndexNotFound when
	// nothing was persisted and ErrCorruptIndex when the persisted state is unusable.
	Load(ctx context.Context) error

	// Search returns up to topK chunks ordered by descending score.
	Search(ctx context.Context, query []float32, topK int) ([]RetrievedChunk, error)

	// Len returns the number of chunks currently available for search.
	Len() int

	// Location describes where the index lives (directory or collection).
	Location() string

	// Close releases resources and closes connections.
	Close() error
}

// BuildIdentifier is implemented by stores that stamp every Replace with a unique id.
type BuildIdentifier interface {
	BuildID() string
}

// Index is a handle to a built or loaded vector index.
type Index struct {
	Store    VectorStore
	Location string
	Chunks   int
	BuildID  string // empty when the store does not track builds
}

func buildIDOf(store VectorStore) string {
	if b, ok := store.(BuildIdentifier); ok {
		return b.BuildID()
	}
	return ""
}

// Ready reports whether the index can serve queries.
func (i *Index) Ready() bool {
	return i != nil && i.Store != nil && i.Store.Len() > 0
}
