package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ai-docfill-be/internal/pkg/logger"
	"ai-docfill-be/internal/repository/implementation"
	"ai-docfill-be/internal/repository/memory"
	"ai-docfill-be/pkg/events"
	"ai-docfill-be/pkg/llm/llmtest"
	"ai-docfill-be/pkg/prompt"
	"ai-docfill-be/pkg/render"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type logEntry struct {
	Level   string
	Module  string
	Message string
	Details map[string]interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

var _ logger.ILogger = (*recordingLogger)(nil)

func (l *recordingLogger) add(level, module, message string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{Level: level, Module: module, Message: message, Details: details})
}

func (l *recordingLogger) Debug(m, msg string, d map[string]interface{}) { l.add("DEBUG", m, msg, d) }
func (l *recordingLogger) Info(m, msg string, d map[string]interface{})  { l.add("INFO", m, msg, d) }
func (l *recordingLogger) Warn(m, msg string, d map[string]interface{})  { l.add("WARN", m, msg, d) }
func (l *recordingLogger) Error(m, msg string, d map[string]interface{}) { l.add("ERROR", m, msg, d) }
func (l *recordingLogger) Sync() error                                   { return nil }

func (l *recordingLogger) snapshot() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logEntry(nil), l.entries...)
}

type testEnv struct {
	dir       string
	sessions  *memory.SessionRepository
	publisher *recordingPublisher
	logger    *recordingLogger
	llm       *llmtest.Fake
	docs      IDocumentService
	chat      IChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	promptsDir := filepath.Join(dir, "prompts")
	require.NoError(t, os.MkdirAll(promptsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(promptsDir, "safe.txt"), []byte("You help fill a SAFE."), 0o644))

	artifacts, err := implementation.NewArtifactRepository(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	env := &testEnv{
		dir:       dir,
		sessions:  memory.NewSessionRepository(time.Hour, 0, nil),
		publisher: &recordingPublisher{},
		logger:    &recordingLogger{},
		llm:       &llmtest.Fake{},
	}
	registry := prompt.NewRegistry(promptsDir)

	env.docs = NewDocumentService(artifacts, env.sessions, registry, render.NewRenderer(), env.publisher, env.logger)
	env.chat = NewChatService(env.sessions, registry, env.llm, env.publisher, env.logger, ChatSettings{
		Temperature: 0,
		Timeout:     time.Second,
	})
	return env
}

func (e *testEnv) uploadDir() string {
	return filepath.Join(e.dir, "uploads")
}
