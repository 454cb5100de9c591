package orchestrator

import (
	"context"
	"fmt"

	"github.com/Yates-Labs/scribe/internal/answer"
	"github.com/Yates-Labs/scribe/internal/config"
	"github.com/Yates-Labs/scribe/internal/logging"
	"github.com/Yates-Labs/scribe/internal/rag"
	"go.uber.org/zap"
)

// Components are the external capabilities a chat pipeline is built from.
type Components struct {
	Embedder    rag.Embedder
	Store       rag.VectorStore
	RerankModel rag.RerankModel // nil disables reranking
	LLM         answer.LLM
}

// PipelineConfig holds the settings for document chat.
type PipelineConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Chat         ChatConfig
	LLMConfig    answer.LLMConfig
}

// DefaultPipelineConfig returns sensible defaults for the chat pipeline.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkSize:    rag.DefaultChunkSize,
		ChunkOverlap: rag.DefaultChunkOverlap,
		Chat:         DefaultChatConfig(),
		LLMConfig:    answer.DefaultLLMConfig(),
	}
}

// PipelineConfigFrom maps loaded settings onto a PipelineConfig.
func PipelineConfigFrom(cfg *config.Config) PipelineConfig {
	return PipelineConfig{
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		Chat: ChatConfig{
			TopK:       cfg.Retrieval.TopK,
			RerankTopN: cfg.Retrieval.RerankTopN,
		},
		LLMConfig: answer.LLMConfig{
			Model:       cfg.OpenAI.ChatModel,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
		},
	}
}

// ChatPipeline wires an Indexer and a Chatbot over the same vector store.
type ChatPipeline struct {
	indexer *rag.Indexer
	chatbot *Chatbot
	store   rag.VectorStore
	logger  *zap.Logger
}

// NewChatPipeline builds the OpenAI, Cohere and vector store clients described by cfg.
// Without a Cohere key every rerank call falls back to retrieval order.
func NewChatPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ChatPipeline, error) {
	embedder, err := rag.NewOpenAIEmbedder(rag.OpenAIConfig{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		Model:     cfg.OpenAI.EmbeddingModel,
		Dimension: cfg.OpenAI.EmbeddingDimension,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := newVectorStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}

	pcfg := PipelineConfigFrom(cfg)
	llm, err := answer.NewOpenAILLM(pcfg.LLMConfig)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create LLM: %w", err)
	}

	return NewChatPipelineFrom(Components{
		Embedder: embedder,
		Store:    store,
		RerankModel: rag.NewCohereReranker(rag.CohereConfig{
			APIKey:  cfg.Cohere.APIKey,
			BaseURL: cfg.Cohere.BaseURL,
			Model:   cfg.Cohere.Model,
		}),
		LLM: llm,
	}, pcfg, logger)
}

func newVectorStore(ctx context.Context, cfg *config.Config) (rag.VectorStore, error) {
	switch cfg.Index.Backend {
	case config.BackendMilvus:
		mcfg := rag.DefaultMilvusConfig()
		mcfg.Address = cfg.Milvus.Address
		mcfg.CollectionName = cfg.Milvus.CollectionName
		mcfg.Dimension = cfg.OpenAI.EmbeddingDimension
		return rag.NewMilvusStore(ctx, mcfg)
	case config.BackendLocal:
		return rag.NewLocalStore(cfg.Index.Dir), nil
	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", config.ErrInvalidConfig, cfg.Index.Backend)
	}
}

// NewChatPipelineFrom wires the pipeline from already constructed components.
func NewChatPipelineFrom(c Components, pcfg PipelineConfig, logger *zap.Logger) (*ChatPipeline, error) {
	logger = logging.OrNop(logger)
	if c.Store == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}

	indexer, err := rag.NewIndexer(rag.NewSplitter(pcfg.ChunkSize, pcfg.ChunkOverlap), c.Embedder, c.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}

	retriever, err := rag.NewRetriever(c.Embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	generator := answer.NewGenerator(c.LLM, pcfg.LLMConfig)
	chatbot, err := NewChatbot(pcfg.Chat, retriever, rag.NewReranker(c.RerankModel, logger), generator, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create chatbot: %w", err)
	}

	return &ChatPipeline{
		indexer: indexer,
		chatbot: chatbot,
		store:   c.Store,
		logger:  logger,
	}, nil
}

// Chatbot returns the pipeline's chatbot.
func (p *ChatPipeline) Chatbot() *Chatbot {
	return p.chatbot
}

// Close releases resources held by the pipeline.
func (p *ChatPipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}
