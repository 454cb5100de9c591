package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CO_API_KEY", "")
	t.Setenv("SCRIBE_INDEX_DIR", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Empty(t, cfg.Cohere.APIKey)
	assert.Equal(t, BackendLocal, cfg.Index.Backend)
	assert.Equal(t, "vector_index", cfg.Index.Dir)
	assert.Equal(t, 1000, cfg.Index.ChunkSize)
	assert.Equal(t, 100, cfg.Index.ChunkOverlap)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, 15, cfg.Retrieval.RerankTopN)
	assert.Equal(t, "rerank-v3.5", cfg.Cohere.Model)
	assert.Equal(t, []string{"en"}, cfg.Transcript.Languages)
	assert.InDelta(t, 0.7, cfg.OpenAI.Temperature, 1e-6)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.yaml")
	yamlData := `
index:
  dir: /tmp/custom_index
  chunk_size: 400
  chunk_overlap: 40
retrieval:
  top_k: 4
milvus:
  address: milvus.internal:19530
transcript:
  languages: [de, en]
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

	t.Setenv("MILVUS_ADDRESS", "override:19530")
	t.Setenv("SCRIBE_INDEX_DIR", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom_index", cfg.Index.Dir)
	assert.Equal(t, 400, cfg.Index.ChunkSize)
	assert.Equal(t, 40, cfg.Index.ChunkOverlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, 15, cfg.Retrieval.RerankTopN)
	assert.Equal(t, "override:19530", cfg.Milvus.Address)
	assert.Equal(t, []string{"de", "en"}, cfg.Transcript.Languages)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Index.Backend = "faiss" }},
		{"overlap too large", func(c *Config) { c.Index.ChunkOverlap = c.Index.ChunkSize }},
		{"negative overlap", func(c *Config) { c.Index.ChunkOverlap = -1 }},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			ApplyDefaults(&cfg)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
