package service

import (
	"context"
	"os"
	"testing"
	"time"

	"ai-docfill-be/internal/repository/implementation"
	"ai-docfill-be/internal/repository/memory"
	"ai-docfill-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestJanitorService_Sweep(t *testing.T) {
	ctx := context.Background()
	artifacts, err := implementation.NewArtifactRepository(t.TempDir())
	require.NoError(t, err)
	sessions := memory.NewSessionRepository(time.Hour, 0, nil)

	live, orphan := artifacts.NewID(), artifacts.NewID()
	past := time.Now().Add(-3 * time.Hour)
	for _, id := range []string{live, orphan} {
		path, err := artifacts.SourcePath(id)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(path, past, past))
	}
	require.NoError(t, sessions.Save(ctx, &store.Session{ID: live}))

	janitor := NewJanitorService(artifacts, sessions, time.Hour, time.Minute, &recordingLogger{})
	removed, err := janitor.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.True(t, artifacts.Exists(live))
	assert.False(t, artifacts.Exists(orphan))
}

func TestJanitorService_RunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	artifacts, err := implementation.NewArtifactRepository(t.TempDir())
	require.NoError(t, err)
	janitor := NewJanitorService(artifacts, memory.NewSessionRepository(time.Hour, 0, nil), time.Hour, time.Millisecond, &recordingLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
}
