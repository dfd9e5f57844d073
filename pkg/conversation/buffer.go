package conversation

import (
	"strings"
)

const (
	RoleHuman = "Human"
	RoleAI    = "AI"
)

// Turn is one line of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Buffer is the running transcript of one fill session.
type Buffer struct {
	Turns []Turn `json:"turns"`
}

func (b *Buffer) AddHuman(content string) {
	b.Turns = append(b.Turns, Turn{Role: RoleHuman, Content: content})
}

func (b *Buffer) AddAI(content string) {
	b.Turns = append(b.Turns, Turn{Role: RoleAI, Content: content})
}

func (b *Buffer) Len() int {
	return len(b.Turns)
}

// String renders the transcript as "Role: content" lines.
func (b *Buffer) String() string {
	lines := make([]string, 0, len(b.Turns))
	for _, t := range b.Turns {
		lines = append(lines, t.Role+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}
