package dto

import (
	"time"

	"ai-docfill-be/pkg/conversation"
)

type UploadDocumentResponse struct {
	FileID       string   `json:"file_id"`
	Placeholders []string `json:"placeholders"`
	DocType      string   `json:"doc_type"`
}

// FillDocumentRequest is bound from the multipart form. Values is a JSON
// object string mapping placeholder names to their text.
type FillDocumentRequest struct {
	FileID string `form:"file_id" validate:"required"`
	Values string `form:"values" validate:"required"`
}

type FillDocumentResponse struct {
	Path    string
	Missing []string
}

type DocTypesResponse struct {
	DocTypes []string `json:"doc_types"`
}

type SessionResponse struct {
	FileID       string              `json:"file_id"`
	DocType      string              `json:"doc_type"`
	Placeholders []string            `json:"placeholders"`
	Answers      map[string]string   `json:"answers"`
	Unfilled     []string            `json:"unfilled"`
	History      []conversation.Turn `json:"history"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}
