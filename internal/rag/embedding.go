package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Common errors for embedding operations
var (
	ErrEmptyTexts      = errors.New("no texts provided for embedding")
	ErrMissingAPIKey   = errors.New("OPENAI_API_KEY not set")
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// EmbeddingRecord represents a single text embedding with metadata
type EmbeddingRecord struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
	Model     string    `json:"model"`
}

// Embedder defines the interface for generating text embeddings
type Embedder interface {
	// Embed generates embeddings for the provided texts, one record per text in input order
	Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error)

	// GetModel returns the embedding model identifier
	GetModel() string

	// GetDimension returns the embedding vector dimension
	GetDimension() int
}

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // optional, for OpenAI-compatible endpoints
	Model     string
	Dimension int
}

// OpenAIEmbedder implements the Embedder interface using OpenAI's API
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates a new OpenAI embedder instance
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidDimension)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIEmbedder{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}, nil
}

// GetModel returns the embedding model identifier
func (e *OpenAIEmbedder) GetModel() string {
	return e.model
}

// GetDimension returns the embedding vector dimension
func (e *OpenAIEmbedder) GetDimension() int {
	return e.dimension
}

// Embed generates embeddings for the provided texts using OpenAI's API
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          e.model,
		Dimensions:     openai.Int(int64(e.dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(resp.Data))
	}

	// The API may return data out of order; place each record at its input index.
	records := make([]EmbeddingRecord, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmbeddingFailed, idx)
		}

		embedding := make([]float32, len(data.Embedding))
		for j, val := range data.Embedding {
			embedding[j] = float32(val)
		}

		records[idx] = EmbeddingRecord{
			Text:      texts[idx],
			Embedding: embedding,
			Index:     idx,
			Model:     e.model,
		}
	}

	return records, nil
}
