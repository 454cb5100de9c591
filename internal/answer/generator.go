package answer

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrGenerationFailed = errors.New("answer generation failed")
)

// Answer is one generated reply.
type Answer struct {
	// Text is the generated reply
	Text string `json:"text"`

	// Model is the LLM model used to generate this answer
	Model string `json:"model"`
}

// Generator invokes an LLM on an already-assembled prompt.
type Generator struct {
	llm    LLM
	config LLMConfig
}

// NewGenerator creates a generator with the given LLM implementation.
func NewGenerator(llm LLM, config LLMConfig) *Generator {
	return &Generator{
		llm:    llm,
		config: config,
	}
}

// Generate produces an answer for prompt. It must not perform retrieval or prompt construction.
func (g *Generator) Generate(ctx context.Context, prompt string) (*Answer, error) {
	if g.llm == nil {
		return nil, fmt.Errorf("%w: LLM is required", ErrGenerationFailed)
	}
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrGenerationFailed)
	}

	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: LLM invocation failed: %w", ErrGenerationFailed, err)
	}

	return &Answer{
		Text:  text,
		Model: g.config.Model,
	}, nil
}
