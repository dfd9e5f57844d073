package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ai-docfill-be/pkg/llm"
)

const DefaultBaseURL = "http://localhost:11434"

// Provider runs completions against a local Ollama server.
type Provider struct {
	baseURL   string
	model     string
	keepAlive string
	client    *http.Client
}

var _ llm.LLMProvider = &Provider{}

type Option func(*Provider)

// WithKeepAlive controls how long Ollama keeps the model loaded between
// questions, e.g. "10m".
func WithKeepAlive(d string) Option {
	return func(p *Provider) { p.keepAlive = d }
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

func NewProvider(baseURL, model string, opts ...Option) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	p := &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: llm.DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []llm.Message  `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Options   *modelSettings `json:"options,omitempty"`
}

type modelSettings struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message llm.Message `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Model: p.model}, options...)

	messages := make([]llm.Message, len(history))
	for i, m := range history {
		if m.Role == "model" {
			m.Role = "assistant"
		}
		messages[i] = m
	}

	req := chatRequest{
		Model:     opts.Model,
		Messages:  messages,
		KeepAlive: p.keepAlive,
	}
	if opts.Temperature != nil || opts.MaxTokens > 0 {
		req.Options = &modelSettings{Temperature: opts.Temperature, NumPredict: opts.MaxTokens}
	}

	var resp chatResponse
	if err := llm.PostJSON(ctx, p.client, "ollama", p.baseURL+"/api/chat", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", llm.ErrEmptyResponse
	}
	return resp.Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}
