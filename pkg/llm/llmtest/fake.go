// Package llmtest provides a scripted llm.LLMProvider for tests.
package llmtest

import (
	"context"
	"sync"

	"ai-docfill-be/pkg/llm"
)

// Fake returns Reply (or Err) and records every prompt it was given.
type Fake struct {
	mu      sync.Mutex
	Reply   func(prompt string) string
	Err     error
	Prompts []string
}

var _ llm.LLMProvider = &Fake{}

func (f *Fake) Chat(ctx context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	prompt := ""
	if len(history) > 0 {
		prompt = history[len(history)-1].Content
	}

	f.mu.Lock()
	f.Prompts = append(f.Prompts, prompt)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Err != nil {
		return "", f.Err
	}
	if f.Reply == nil {
		return "ok", nil
	}
	return f.Reply(prompt), nil
}

func (f *Fake) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// Calls returns a copy of the recorded prompts.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Prompts...)
}
