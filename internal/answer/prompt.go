package answer

import (
	"errors"
	"strings"
)

var (
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

const (
	contextHeading  = "# Document Context\n"
	historyHeading  = "# Conversation History\n"
	questionHeading = "# User Question\n"
)

// AssemblePrompt builds the single prompt sent to the LLM. Context passages are joined with
// a blank line in the order given; history is rendered oldest first.
func AssemblePrompt(contextChunks []string, history *History, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	var b strings.Builder

	b.WriteString("You are a knowledgeable assistant that answers questions based on the provided document. ")
	b.WriteString("Based on the following context and conversation history, answer the user's question.\n\n")

	b.WriteString(contextHeading + "\n")
	if len(contextChunks) == 0 {
		b.WriteString("(no relevant passages found)\n\n")
	} else {
		b.WriteString(strings.Join(contextChunks, "\n\n"))
		b.WriteString("\n\n")
	}

	b.WriteString(historyHeading + "\n")
	if history == nil || history.Len() == 0 {
		b.WriteString("(none)\n\n")
	} else {
		b.WriteString(history.Render())
		b.WriteString("\n")
	}

	b.WriteString(questionHeading + "\n")
	b.WriteString(question + "\n\n")

	b.WriteString("# Answer\n\n")
	b.WriteString("Be conversational, helpful and accurate. ")
	b.WriteString("Use only the document context to answer; if it does not contain relevant information, ")
	b.WriteString("say so honestly and offer general guidance. ")
	b.WriteString("When explaining complex concepts, use examples or analogies.\n")

	return b.String(), nil
}
