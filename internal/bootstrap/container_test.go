package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ai-docfill-be/internal/config"
	"ai-docfill-be/internal/pkg/logger"
	"ai-docfill-be/pkg/llm/llmtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type messageLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *messageLogger) add(level, module, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, level+" "+module+" "+message)
}

func (l *messageLogger) Debug(m, msg string, _ map[string]interface{}) { l.add("DEBUG", m, msg) }
func (l *messageLogger) Info(m, msg string, _ map[string]interface{})  { l.add("INFO", m, msg) }
func (l *messageLogger) Warn(m, msg string, _ map[string]interface{})  { l.add("WARN", m, msg) }
func (l *messageLogger) Error(m, msg string, _ map[string]interface{}) { l.add("ERROR", m, msg) }
func (l *messageLogger) Sync() error                                   { return nil }

func testConfig(t *testing.T, store string) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: config.StorageConfig{
			UploadDir:  t.TempDir(),
			PromptsDir: t.TempDir(),
		},
		Session: config.SessionConfig{
			Store:           store,
			TTL:             time.Hour,
			CleanupInterval: time.Hour,
		},
		Events: config.EventsConfig{Topic: "DOCFILL_EVENTS"},
	}
}

func newTestContainer(t *testing.T, cfg *config.Config) (*Container, error) {
	t.Helper()
	c, err := NewContainerWith(context.Background(), cfg, Overrides{
		LLM:    &llmtest.Fake{},
		Logger: logger.NewNopLogger(),
		Audit:  logger.NewNopLogger(),
	})
	if c != nil {
		t.Cleanup(func() { c.Close() })
	}
	return c, err
}

func TestNewContainer_MemoryStoreSweepsLeftoverArtifacts(t *testing.T) {
	cfg := testConfig(t, "memory")

	// A file from an earlier run: no session in the fresh memory store.
	stale := filepath.Join(cfg.Storage.UploadDir, uuid.NewString()+".docx")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(cfg.Storage.UploadDir, uuid.NewString()+".docx")
	require.NoError(t, os.WriteFile(fresh, []byte("new"), 0o644))

	c, err := newTestContainer(t, cfg)
	require.NoError(t, err)
	require.NotNil(t, c.JanitorService)

	removed, err := c.JanitorService.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

func TestNewContainer_UnsupportedStore(t *testing.T) {
	_, err := newTestContainer(t, testConfig(t, "etcd"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported session store: etcd")
}

func TestNewContainer_RedisAddressFallbackIsLogged(t *testing.T) {
	cfg := testConfig(t, "redis")
	cfg.Session.RedisURL = "127.0.0.1:1"
	log := &messageLogger{}

	c, err := NewContainerWith(context.Background(), cfg, Overrides{
		LLM:    &llmtest.Fake{},
		Logger: log,
		Audit:  logger.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	assert.Contains(t, log.messages, "WARN BOOTSTRAP Failed to parse Redis URL, using it as an address")
	assert.Contains(t, log.messages, "WARN BOOTSTRAP Failed to connect to Redis")
	assert.NotNil(t, c.JanitorService)
}
