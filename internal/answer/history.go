package answer

import "strings"

// Role identifies who produced a conversation turn.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

// Prefix is the label a turn is rendered with in prompts.
func (r Role) Prefix() string {
	if r == RoleUser {
		return "Human"
	}
	return "Assistant"
}

func (r Role) String() string {
	if r == RoleUser {
		return "user"
	}
	return "assistant"
}

// Turn is one message of the conversation.
type Turn struct {
	Role Role
	Text string
}

// History is the in-memory conversation of one chat session. It only grows by whole
// user/assistant exchanges, so turns always alternate starting with the user.
type History struct {
	turns []Turn
}

// AppendExchange records a question and its answer.
func (h *History) AppendExchange(question, reply string) {
	h.turns = append(h.turns,
		Turn{Role: RoleUser, Text: question},
		Turn{Role: RoleAssistant, Text: reply},
	)
}

// Turns returns a copy of the turns, oldest first.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Render formats the turns as "Human: ..." / "Assistant: ..." lines, oldest first.
func (h *History) Render() string {
	var b strings.Builder
	for _, t := range h.turns {
		b.WriteString(t.Role.Prefix())
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}
