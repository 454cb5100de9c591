package rag

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// MockEmbedder is a deterministic Embedder for tests and offline runs. Each word is hashed
// into one of dimension buckets, so texts sharing words land close together.
type MockEmbedder struct {
	dimension int
}

// NewMockEmbedder creates a mock embedder producing vectors of the given dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &MockEmbedder{dimension: dimension}
}

// GetModel returns the mock model identifier
func (m *MockEmbedder) GetModel() string {
	return "mock-embedding"
}

// GetDimension returns the embedding vector dimension
func (m *MockEmbedder) GetDimension() int {
	return m.dimension
}

// Embed hashes each text into a normalized bag-of-words vector
func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]EmbeddingRecord, len(texts))
	for i, text := range texts {
		records[i] = EmbeddingRecord{
			Text:      text,
			Embedding: m.vector(text),
			Index:     i,
			Model:     m.GetModel(),
		}
	}
	return records, nil
}

func (m *MockEmbedder) vector(text string) []float32 {
	vec := make([]float32, m.dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(m.dimension)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
