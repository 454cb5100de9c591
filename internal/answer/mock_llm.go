package answer

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is a deterministic LLM implementation for testing.
// It returns predictable responses based on prompt content.
type MockLLM struct {
	// Response is the fixed text returned by Generate.
	// If empty, a default response is generated from the prompt.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	// LastPrompt stores the most recent prompt passed to Generate.
	LastPrompt string

	// Calls counts Generate invocations.
	Calls int
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Generate returns the configured response or generates a deterministic one.
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Calls++
	m.LastPrompt = prompt

	if m.Error != nil {
		return "", m.Error
	}

	if m.Response != "" {
		return m.Response, nil
	}

	return generateMockResponse(prompt), nil
}

// generateMockResponse echoes the question and the size of the supplied context.
func generateMockResponse(prompt string) string {
	question := "your question"
	if _, after, ok := strings.Cut(prompt, questionHeading); ok {
		if line, _, _ := strings.Cut(strings.TrimSpace(after), "\n"); line != "" {
			question = line
		}
	}

	passages := 0
	if _, after, ok := strings.Cut(prompt, contextHeading); ok {
		section, _, _ := strings.Cut(after, historyHeading)
		for _, block := range strings.Split(strings.TrimSpace(section), "\n\n") {
			if strings.TrimSpace(block) != "" {
				passages++
			}
		}
	}

	return fmt.Sprintf("Based on %d passages of the document, here is what I found about %q.", passages, question)
}
