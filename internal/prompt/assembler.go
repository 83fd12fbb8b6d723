// Package prompt builds the ordered message sequence sent to the model.
// Assembly is a pure function of its inputs: no I/O, no clock, no state.
package prompt

import (
	"strings"

	"solace/internal/llm"
	"solace/internal/store"
)

// NameToken marks where the caller's display name lands in the persona
// instruction.
const NameToken = "{name}"

// nameDelimiter separates an optional display-name prefix from the message
// body. Only the first occurrence splits.
const nameDelimiter = ". "

// DefaultPlaceholderName stands in when the input carries no name prefix.
const DefaultPlaceholderName = "friend"

// SplitName extracts the display-name prefix from raw input. Without a
// delimiter the full text is the body and the name is empty.
func SplitName(input string) (name, body string) {
	if i := strings.Index(input, nameDelimiter); i >= 0 {
		return input[:i], input[i+len(nameDelimiter):]
	}
	return "", input
}

// Assemble produces one message per history turn, verbatim and oldest first,
// followed by exactly one user message carrying the persona instruction and
// the new input. The input is interpolated as plain text, not escaped.
func Assemble(instruction, placeholderName string, history []store.Turn, input string) []llm.Message {
	name, body := SplitName(input)
	if name == "" {
		name = placeholderName
	}
	if name == "" {
		name = DefaultPlaceholderName
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, llm.Message{
			Role:    llm.Role(turn.Role),
			Content: turn.Content,
		})
	}

	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: strings.ReplaceAll(instruction, NameToken, name) + " '" + body + "'",
	})
	return messages
}
