// Package config loads scribe settings from defaults, an optional YAML file and the
// environment. Credentials are read once here and handed to each component's constructor.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Index backends.
const (
	BackendLocal  = "local"
	BackendMilvus = "milvus"
)

// Config holds all configuration for both subcommands.
type Config struct {
	Debug      bool             `yaml:"debug"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Cohere     CohereConfig     `yaml:"cohere"`
	Index      IndexConfig      `yaml:"index"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Milvus     MilvusConfig     `yaml:"milvus"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

// OpenAIConfig configures embeddings and chat completions.
type OpenAIConfig struct {
	APIKey             string  `yaml:"-"`
	BaseURL            string  `yaml:"base_url"`
	EmbeddingModel     string  `yaml:"embedding_model"`
	EmbeddingDimension int     `yaml:"embedding_dimension"`
	ChatModel          string  `yaml:"chat_model"`
	Temperature        float32 `yaml:"temperature"`
	MaxTokens          int     `yaml:"max_tokens"`
}

// CohereConfig configures the reranking service. An empty APIKey disables reranking.
type CohereConfig struct {
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// IndexConfig controls chunking and where the vector index lives.
type IndexConfig struct {
	Backend      string `yaml:"backend"`
	Dir          string `yaml:"dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// RetrievalConfig sets how many chunks are retrieved and kept after reranking.
type RetrievalConfig struct {
	TopK       int `yaml:"top_k"`
	RerankTopN int `yaml:"rerank_top_n"`
}

// MilvusConfig is only read when Index.Backend is "milvus".
type MilvusConfig struct {
	Address        string `yaml:"address"`
	CollectionName string `yaml:"collection"`
}

// TranscriptConfig holds transcript downloader defaults.
type TranscriptConfig struct {
	Languages      []string `yaml:"languages"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Load builds a Config. path may be empty, in which case only defaults and the
// environment are used. A path that does not exist is an error.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides file values with environment variables. Secrets only come from here.
func applyEnv(cfg *Config) {
	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Cohere.APIKey = os.Getenv("CO_API_KEY")

	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAI.EmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	setString(&cfg.OpenAI.ChatModel, "OPENAI_CHAT_MODEL")
	setString(&cfg.Cohere.Model, "COHERE_RERANK_MODEL")
	setString(&cfg.Index.Dir, "SCRIBE_INDEX_DIR")
	setString(&cfg.Index.Backend, "SCRIBE_INDEX_BACKEND")
	setString(&cfg.Milvus.Address, "MILVUS_ADDRESS")
	setString(&cfg.Milvus.CollectionName, "MILVUS_COLLECTION")

	if v := os.Getenv("OPENAI_EMBEDDING_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OpenAI.EmbeddingDimension = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports settings that no component could work with.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendLocal, BackendMilvus:
	default:
		return fmt.Errorf("%w: unknown index backend %q (want %s or %s)", ErrInvalidConfig, c.Index.Backend, BackendLocal, BackendMilvus)
	}
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size)", ErrInvalidConfig)
	}
	if c.OpenAI.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: embedding_dimension must be positive", ErrInvalidConfig)
	}
	if c.Retrieval.TopK <= 0 || c.Retrieval.RerankTopN <= 0 {
		return fmt.Errorf("%w: top_k and rerank_top_n must be positive", ErrInvalidConfig)
	}
	return nil
}
