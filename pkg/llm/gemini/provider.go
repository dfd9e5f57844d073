package gemini

import (
	"context"
	"fmt"
	"strings"

	"ai-docfill-be/pkg/llm"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// Provider generates chat completions with Google's Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

var _ llm.LLMProvider = &Provider{}

func NewProvider(ctx context.Context, apiKey, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Provider{client: client, model: model}, nil
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Model: p.model}, options...)

	config := &genai.GenerateContentConfig{}
	if opts.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*opts.Temperature))
	}

	contents, system := toContents(history)
	config.SystemInstruction = system

	result, err := p.client.Models.GenerateContent(ctx, opts.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// toContents maps chat messages to Gemini contents. System messages are
// joined into one system instruction, nil when there are none; "assistant"
// and "model" become the model role and anything else the user role.
func toContents(history []llm.Message) ([]*genai.Content, *genai.Content) {
	contents := make([]*genai.Content, 0, len(history))
	var system []string
	for _, msg := range history {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant", "model":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return contents, nil
	}
	return contents, genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}
