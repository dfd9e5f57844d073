package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"ai-docfill-be/internal/dto"
	"ai-docfill-be/pkg/conversation"
	"ai-docfill-be/pkg/events"
	"ai-docfill-be/pkg/prompt"
	"ai-docfill-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// questionFor makes the fake model echo the placeholder it was asked about.
func questionFor(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if name, ok := strings.CutPrefix(line, "Next placeholder to fill: "); ok {
			return "What is the " + name + "?"
		}
	}
	return "?"
}

func TestChatService_NextPlaceholder(t *testing.T) {
	tests := []struct {
		name         string
		placeholders []string
		answers      map[string]string
		wantDone     bool
		wantNext     string
	}{
		{name: "first unfilled", placeholders: []string{"A", "B", "C"}, answers: map[string]string{"A": "x"}, wantNext: "B"},
		{name: "order follows the list", placeholders: []string{"C", "B", "A"}, answers: nil, wantNext: "C"},
		{name: "empty value counts as filled", placeholders: []string{"A", "B"}, answers: map[string]string{"A": ""}, wantNext: "B"},
		{name: "all filled", placeholders: []string{"A"}, answers: map[string]string{"A": "x"}, wantDone: true},
		{name: "no placeholders", placeholders: nil, wantDone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.llm.Reply = questionFor

			res, err := env.chat.Chat(context.Background(), &dto.ChatRequest{
				Placeholders: tt.placeholders,
				Answers:      tt.answers,
				DocType:      "safe",
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantDone, res.Done)
			if tt.wantDone {
				assert.Equal(t, DoneMessage, res.Message)
				assert.Empty(t, res.Placeholder)
				assert.Empty(t, env.llm.Calls(), "no model call once everything is filled")
				return
			}
			assert.Equal(t, tt.wantNext, res.Placeholder)
			assert.Equal(t, "What is the "+tt.wantNext+"?", res.Message)
		})
	}
}

func TestChatService_Instruction(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.chat.Chat(context.Background(), &dto.ChatRequest{
		Placeholders: []string{"Company", "Investor_Name"},
		Answers:      map[string]string{"Company": "ACME"},
		DocType:      "safe",
	})
	require.NoError(t, err)

	calls := env.llm.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "You help fill a SAFE.\n\n"+
		"Conversation so far:\n"+
		"Human: Company: ACME\n\n"+
		"Next placeholder to fill: Investor_Name\n"+
		"Already filled placeholders:\n"+
		"{\n  \"Company\": \"ACME\"\n}\n\n"+
		"Ask the user a clear, natural question to fill this placeholder.", calls[0])
}

func TestChatService_UnknownDocTypeUsesFallback(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.chat.Chat(context.Background(), &dto.ChatRequest{
		Placeholders: []string{"A"},
		DocType:      "../../secrets",
	})
	require.NoError(t, err)

	calls := env.llm.Calls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0], prompt.Fallback))
}

func TestChatService_SessionMemory(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Reply = questionFor
	ctx := context.Background()
	fileID := uuid.NewString()
	placeholders := []string{"Investor_Name", "Company"}

	first, err := env.chat.Chat(ctx, &dto.ChatRequest{FileID: fileID, Placeholders: placeholders, Answers: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, "Investor_Name", first.Placeholder)

	second, err := env.chat.Chat(ctx, &dto.ChatRequest{FileID: fileID, Placeholders: placeholders, Answers: map[string]string{"Investor_Name": "Ada"}})
	require.NoError(t, err)
	assert.Equal(t, "Company", second.Placeholder)

	calls := env.llm.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1], "Conversation so far:\nAI: What is the Investor_Name?\nHuman: Ada\n\n")

	session, found, err := env.sessions.Get(ctx, fileID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Company", session.LastAsked)
	assert.Equal(t, map[string]string{"Investor_Name": "Ada"}, session.Answers)
	assert.Equal(t, []conversation.Turn{
		{Role: conversation.RoleAI, Content: "What is the Investor_Name?"},
		{Role: conversation.RoleHuman, Content: "Ada"},
		{Role: conversation.RoleAI, Content: "What is the Company?"},
	}, session.History.Turns)

	done, err := env.chat.Chat(ctx, &dto.ChatRequest{FileID: fileID, Placeholders: placeholders, Answers: map[string]string{"Investor_Name": "Ada", "Company": "ACME"}})
	require.NoError(t, err)
	assert.True(t, done.Done)

	assert.Equal(t, []string{
		events.TypeQuestionAsked,
		events.TypeQuestionAsked,
		events.TypeFillCompleted,
	}, env.publisher.types())
}

func TestChatService_OmittedPlaceholdersUseSession(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Reply = questionFor
	ctx := context.Background()
	fileID := uuid.NewString()

	require.NoError(t, env.sessions.Save(ctx, &store.Session{
		ID:           fileID,
		DocType:      "safe",
		Placeholders: []string{"X", "Y"},
		Answers:      map[string]string{"X": "1"},
	}))

	res, err := env.chat.Chat(ctx, &dto.ChatRequest{FileID: fileID})
	require.NoError(t, err)
	assert.Equal(t, "Y", res.Placeholder)

	calls := env.llm.Calls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0], "You help fill a SAFE."), "session doc type is kept")
}

func TestChatService_WithoutFileIDIsStateless(t *testing.T) {
	env := newTestEnv(t)
	req := &dto.ChatRequest{Placeholders: []string{"A"}}

	for i := 0; i < 2; i++ {
		_, err := env.chat.Chat(context.Background(), req)
		require.NoError(t, err)
	}

	for _, call := range env.llm.Calls() {
		assert.Contains(t, call, "Conversation so far:\n\n")
	}
	assert.Equal(t, 0, env.sessions.Count())
}

func TestChatService_LLMError(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Err = errors.New("connection refused")
	fileID := uuid.NewString()

	_, err := env.chat.Chat(context.Background(), &dto.ChatRequest{FileID: fileID, Placeholders: []string{"A"}})
	require.ErrorIs(t, err, ErrLLM)
	assert.Contains(t, err.Error(), "connection refused")

	_, found, err := env.sessions.Get(context.Background(), fileID)
	require.NoError(t, err)
	assert.False(t, found, "a failed turn is not saved")
	assert.Empty(t, env.publisher.types())
}

func TestChatService_CancelledContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.chat.Chat(ctx, &dto.ChatRequest{Placeholders: []string{"A"}})
	require.ErrorIs(t, err, ErrLLM)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChatService_ConcurrentTurnsAreSerialized(t *testing.T) {
	env := newTestEnv(t)
	fileID := uuid.NewString()
	const turns = 10

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.chat.Chat(context.Background(), &dto.ChatRequest{
				FileID:       fileID,
				Placeholders: []string{"A", "B"},
				Answers:      map[string]string{fmt.Sprintf("note_%02d", i): "x"},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	session, found, err := env.sessions.Get(context.Background(), fileID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, session.Answers, 1, "the last turn's answers win")
	assert.Equal(t, 2*turns, session.History.Len(), "no turn lost to a concurrent save")
}

func TestChatService_ClientAnswersAreAuthoritative(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Reply = questionFor
	ctx := context.Background()
	fileID := uuid.NewString()
	placeholders := []string{"A", "B"}

	done, err := env.chat.Chat(ctx, &dto.ChatRequest{FileID: fileID, Placeholders: placeholders, Answers: map[string]string{"A": "x", "B": "y"}})
	require.NoError(t, err)
	assert.True(t, done.Done)

	tests := []struct {
		name     string
		answers  map[string]string
		wantDone bool
		wantNext string
	}{
		{name: "cleared answers ask again", answers: map[string]string{}, wantNext: "A"},
		{name: "dropped key is unfilled", answers: map[string]string{"A": "x"}, wantNext: "B"},
		{name: "omitted answers keep the session", answers: nil, wantNext: "B"},
		{name: "complete again", answers: map[string]string{"A": "x", "B": "z"}, wantDone: true},
	}

	for _, tt := range tests {
		res, err := env.chat.Chat(ctx, &dto.ChatRequest{FileID: fileID, Placeholders: placeholders, Answers: tt.answers})
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.wantDone, res.Done, tt.name)
		assert.Equal(t, tt.wantNext, res.Placeholder, tt.name)

		session, _, err := env.sessions.Get(ctx, fileID)
		require.NoError(t, err)
		if tt.answers != nil {
			assert.Equal(t, tt.answers, session.Answers, tt.name)
		}
	}
}

func TestSessionLocks_ReleaseEntries(t *testing.T) {
	locks := newSessionLocks()

	unlock := locks.lock("a")
	assert.Len(t, locks.locks, 1)
	unlock()
	assert.Empty(t, locks.locks)
}
