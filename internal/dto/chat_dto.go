package dto

// ChatRequest keeps the stateless client protocol: the client sends the
// placeholder list and its answers every turn. FileID ties the turn to a
// server-held session; without it the turn runs with no memory.
type ChatRequest struct {
	FileID       string            `json:"file_id" validate:"omitempty,uuid"`
	Placeholders []string          `json:"placeholders"`
	Answers      map[string]string `json:"answers"`
	DocType      string            `json:"doc_type" validate:"omitempty,max=64"`
}

type ChatResponse struct {
	Done        bool   `json:"done"`
	Placeholder string `json:"placeholder,omitempty"`
	Message     string `json:"message"`
}
