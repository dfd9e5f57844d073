package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const closingAsk = "Ask the user a clear, natural question to fill this placeholder."

// Instruction is everything the model needs to phrase the next question.
type Instruction struct {
	Context     string
	History     *Buffer
	Placeholder string
	Answers     map[string]string
}

// Build renders the single prompt sent to the model.
func (in Instruction) Build() (string, error) {
	answers := in.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	var filled bytes.Buffer
	enc := json.NewEncoder(&filled)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(answers); err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}

	history := ""
	if in.History != nil {
		history = in.History.String()
	}

	var b strings.Builder
	b.WriteString(in.Context)
	b.WriteString("\n\n")
	b.WriteString("Conversation so far:\n")
	b.WriteString(history)
	b.WriteString("\n\n")
	b.WriteString("Next placeholder to fill: ")
	b.WriteString(in.Placeholder)
	b.WriteString("\n")
	b.WriteString("Already filled placeholders:\n")
	b.Write(bytes.TrimRight(filled.Bytes(), "\n"))
	b.WriteString("\n\n")
	b.WriteString(closingAsk)

	return b.String(), nil
}
