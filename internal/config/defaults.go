package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.EmbeddingDimension == 0 {
		cfg.OpenAI.EmbeddingDimension = 1536
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.Temperature == 0 {
		cfg.OpenAI.Temperature = 0.7
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = 2000
	}
	if cfg.Cohere.BaseURL == "" {
		cfg.Cohere.BaseURL = "https://api.cohere.com"
	}
	if cfg.Cohere.Model == "" {
		cfg.Cohere.Model = "rerank-v3.5"
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendLocal
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "vector_index"
	}
	if cfg.Index.ChunkSize == 0 {
		cfg.Index.ChunkSize = 1000
	}
	if cfg.Index.ChunkOverlap == 0 {
		cfg.Index.ChunkOverlap = 100
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 10
	}
	if cfg.Retrieval.RerankTopN == 0 {
		cfg.Retrieval.RerankTopN = 15
	}
	if cfg.Milvus.Address == "" {
		cfg.Milvus.Address = "localhost:19530"
	}
	if cfg.Milvus.CollectionName == "" {
		cfg.Milvus.CollectionName = "scribe_chunks"
	}
	if len(cfg.Transcript.Languages) == 0 {
		cfg.Transcript.Languages = []string{"en"}
	}
	if cfg.Transcript.TimeoutSeconds == 0 {
		cfg.Transcript.TimeoutSeconds = 30
	}
}
