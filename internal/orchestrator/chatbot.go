package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Yates-Labs/scribe/internal/answer"
	"github.com/Yates-Labs/scribe/internal/logging"
	"github.com/Yates-Labs/scribe/internal/rag"
	"go.uber.org/zap"
)

// Fixed replies for the two cases where no answer is generated.
const (
	NotReadyMessage = "I'm not ready yet. Please load a document first."
	ApologyMessage  = "I encountered an error processing your request. Please try again."
)

var (
	ErrAlreadyAttached = errors.New("chatbot already has an index attached")
	ErrNilIndex        = errors.New("index is missing or empty")
)

// ChatConfig holds the retrieval sizes used for each answer.
type ChatConfig struct {
	// TopK is the number of chunks retrieved by similarity
	TopK int

	// RerankTopN is the number of chunks kept after reranking
	RerankTopN int
}

// DefaultChatConfig returns the retrieval sizes used for document chat.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		TopK:       10,
		RerankTopN: 15,
	}
}

// Chatbot answers questions about one indexed document and keeps the conversation
// history for the session. It starts without an index and answers nothing until
// Attach succeeds; there is no way back.
type Chatbot struct {
	config    ChatConfig
	retriever *rag.Retriever
	reranker  *rag.Reranker
	generator *answer.Generator
	logger    *zap.Logger

	index   *rag.Index
	history answer.History
}

// NewChatbot creates a Chatbot in the not-ready state.
func NewChatbot(
	config ChatConfig,
	retriever *rag.Retriever,
	reranker *rag.Reranker,
	generator *answer.Generator,
	logger *zap.Logger,
) (*Chatbot, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever cannot be nil")
	}
	if reranker == nil {
		return nil, fmt.Errorf("reranker cannot be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if config.TopK <= 0 || config.RerankTopN <= 0 {
		return nil, fmt.Errorf("TopK and RerankTopN must be positive, got %d and %d", config.TopK, config.RerankTopN)
	}
	logger = logging.OrNop(logger)

	return &Chatbot{
		config:    config,
		retriever: retriever,
		reranker:  reranker,
		generator: generator,
		logger:    logger,
	}, nil
}

// Attach makes idx the chatbot's index and enables answering. It succeeds once.
func (c *Chatbot) Attach(idx *rag.Index) error {
	if c.index != nil {
		return ErrAlreadyAttached
	}
	if !idx.Ready() {
		return ErrNilIndex
	}
	c.index = idx
	return nil
}

// Ready reports whether an index is attached.
func (c *Chatbot) Ready() bool {
	return c.index != nil
}

// History returns the conversation so far, oldest first.
func (c *Chatbot) History() []answer.Turn {
	return c.history.Turns()
}

// Answer replies to query. It never fails: without an index it returns NotReadyMessage,
// and on any retrieval or generation error it returns ApologyMessage and leaves the
// history untouched.
func (c *Chatbot) Answer(ctx context.Context, query string) string {
	if !c.Ready() {
		return NotReadyMessage
	}

	reply, err := c.answer(ctx, query)
	if err != nil {
		c.logger.Error("Error in chat", zap.Error(err))
		return ApologyMessage
	}
	return reply
}

// answer runs retrieval -> rerank -> prompt assembly -> generation and records the exchange.
func (c *Chatbot) answer(ctx context.Context, query string) (string, error) {
	// Stage 1: Retrieval
	c.logger.Debug("Stage 1: Retrieving chunks", zap.Int("top_k", c.config.TopK))
	candidates, err := c.retriever.Query(ctx, c.index, query, c.config.TopK)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}
	c.logger.Debug("Retrieved chunks", zap.Int("count", len(candidates)))

	// Stage 2: Reranking
	reranked := c.reranker.Rerank(ctx, query, candidates, c.config.RerankTopN)
	c.logger.Debug("Stage 2: Reranked chunks", zap.Int("count", len(reranked)))

	texts := make([]string, len(reranked))
	for i, ch := range reranked {
		texts[i] = ch.Text
	}

	// Stage 3: Prompt Assembly
	prompt, err := answer.AssemblePrompt(texts, &c.history, query)
	if err != nil {
		return "", fmt.Errorf("prompt assembly failed: %w", err)
	}
	c.logger.Debug("Stage 3: Assembled prompt", zap.Int("characters", len(prompt)))

	// Stage 4: LLM Generation
	reply, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	c.logger.Debug("Stage 4: Generated answer", zap.Int("characters", len(reply.Text)), zap.String("model", reply.Model))

	text := strings.TrimSpace(reply.Text)
	c.history.AppendExchange(query, text)
	return text, nil
}
