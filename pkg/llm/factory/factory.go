package factory

import (
	"context"
	"fmt"

	"ai-docfill-be/pkg/llm"
	"ai-docfill-be/pkg/llm/gemini"
	"ai-docfill-be/pkg/llm/ollama"
	"ai-docfill-be/pkg/llm/openai"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider string // "openai" | "ollama" | "gemini"
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(ctx context.Context, s Settings) (llm.LLMProvider, error) {
	switch s.Provider {
	case "openai":
		if s.APIKey == "" {
			return nil, fmt.Errorf("openai provider needs an API key")
		}
		return openai.NewProvider(s.APIKey, s.BaseURL, s.Model), nil
	case "ollama":
		return ollama.NewProvider(s.BaseURL, s.Model), nil
	case "gemini":
		return gemini.NewProvider(ctx, s.APIKey, s.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}
