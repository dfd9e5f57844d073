package store

import (
	"time"

	"ai-docfill-be/pkg/conversation"
)

// Session is the server-held state of one document fill, keyed by file id.
type Session struct {
	ID      string `json:"id"` // FileID
	DocType string `json:"doc_type"`

	// Placeholders in first-occurrence order.
	Placeholders []string          `json:"placeholders"`
	Answers      map[string]string `json:"answers"`

	History conversation.Buffer `json:"history"`

	// Placeholder the last question was about, used to attribute the next
	// answer in History.
	LastAsked string `json:"last_asked,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers never share maps or slices with the
// store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Placeholders = append([]string(nil), s.Placeholders...)
	c.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	c.History.Turns = append([]conversation.Turn(nil), s.History.Turns...)
	return &c
}
