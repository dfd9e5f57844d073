package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ai-docfill-be/internal/dto"
	"ai-docfill-be/internal/pkg/logger"
	"ai-docfill-be/internal/repository/contract"
	"ai-docfill-be/pkg/conversation"
	"ai-docfill-be/pkg/events"
	"ai-docfill-be/pkg/llm"
	"ai-docfill-be/pkg/placeholder"
	"ai-docfill-be/pkg/prompt"
	"ai-docfill-be/pkg/store"
)

const DoneMessage = "✅ All placeholders filled!"

var ErrLLM = errors.New("language model request failed")

type IChatService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
}

type ChatSettings struct {
	Temperature float64
	Timeout     time.Duration
}

type chatService struct {
	sessions  contract.SessionRepository
	prompts   *prompt.Registry
	llm       llm.LLMProvider
	publisher IPublisherService
	logger    logger.ILogger
	settings  ChatSettings
	locks     *sessionLocks
}

func NewChatService(
	sessions contract.SessionRepository,
	prompts *prompt.Registry,
	llmProvider llm.LLMProvider,
	publisher IPublisherService,
	log logger.ILogger,
	settings ChatSettings,
) IChatService {
	return &chatService{
		sessions:  sessions,
		prompts:   prompts,
		llm:       llmProvider,
		publisher: publisher,
		logger:    log,
		settings:  settings,
		locks:     newSessionLocks(),
	}
}

func (s *chatService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	if req.FileID != "" {
		unlock := s.locks.lock(req.FileID)
		defer unlock()
	}

	session, persistent, err := s.loadSession(ctx, req)
	if err != nil {
		return nil, err
	}

	placeholders := req.Placeholders
	if placeholders == nil {
		placeholders = session.Placeholders
	} else {
		session.Placeholders = append([]string(nil), placeholders...)
	}

	s.recordAnswers(session, placeholders, req.Answers)

	unfilled := placeholder.Unfilled(placeholders, session.Answers)
	if len(unfilled) == 0 {
		if err := s.save(ctx, session, persistent); err != nil {
			return nil, err
		}
		if persistent {
			s.publisher.Publish(ctx, events.FillCompleted(session.ID, len(session.Answers)))
		}
		return &dto.ChatResponse{Done: true, Message: DoneMessage}, nil
	}

	next := unfilled[0]
	instruction, err := conversation.Instruction{
		Context:     s.prompts.Load(session.DocType),
		History:     &session.History,
		Placeholder: next,
		Answers:     session.Answers,
	}.Build()
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if s.settings.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.settings.Timeout)
		defer cancel()
	}

	start := time.Now()
	question, err := s.llm.Generate(callCtx, instruction, llm.WithTemperature(s.settings.Temperature))
	if err != nil {
		s.logger.Error("CHAT", "Language model call failed", map[string]interface{}{
			"file_id":     session.ID,
			"placeholder": next,
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrLLM, err)
	}

	session.History.AddAI(question)
	session.LastAsked = next
	if err := s.save(ctx, session, persistent); err != nil {
		return nil, err
	}

	s.logger.Info("CHAT", "Question generated", map[string]interface{}{
		"file_id":     session.ID,
		"placeholder": next,
		"remaining":   len(unfilled),
		"latency_ms":  time.Since(start).Milliseconds(),
	})
	s.publisher.Publish(ctx, events.QuestionAsked(session.ID, next, len(unfilled)))

	return &dto.ChatResponse{
		Done:        false,
		Placeholder: next,
		Message:     question,
	}, nil
}

// loadSession returns the stored session for req.FileID, a new one when the
// id is unknown, or a throwaway session when the client sent no id. The
// boolean reports whether the session should be saved back.
func (s *chatService) loadSession(ctx context.Context, req *dto.ChatRequest) (*store.Session, bool, error) {
	now := time.Now().UTC()
	if req.FileID == "" {
		return &store.Session{
			DocType:   docTypeOrDefault(req.DocType),
			Answers:   map[string]string{},
			CreatedAt: now,
			UpdatedAt: now,
		}, false, nil
	}

	session, found, err := s.sessions.Get(ctx, req.FileID)
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	if !found {
		session = &store.Session{
			ID:        req.FileID,
			DocType:   docTypeOrDefault(req.DocType),
			CreatedAt: now,
		}
	}
	if session.Answers == nil {
		session.Answers = map[string]string{}
	}
	if req.DocType != "" {
		session.DocType = req.DocType
	}
	return session, true, nil
}

// recordAnswers makes the client's answer map the session's answers and adds
// one Human turn per new or changed value. A reply to the last question is
// recorded as the bare value, anything else as "name: value". A nil map
// keeps the stored answers.
func (s *chatService) recordAnswers(session *store.Session, placeholders []string, answers map[string]string) {
	if answers == nil {
		return
	}

	order := make([]string, 0, len(answers))
	seen := make(map[string]bool, len(answers))
	for _, name := range placeholders {
		if _, ok := answers[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range answers {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	next := make(map[string]string, len(answers))
	for _, name := range order {
		value := answers[name]
		next[name] = value
		if prev, ok := session.Answers[name]; ok && prev == value {
			continue
		}

		if name == session.LastAsked {
			session.History.AddHuman(value)
		} else {
			session.History.AddHuman(name + ": " + value)
		}
	}
	session.Answers = next
}

func (s *chatService) save(ctx context.Context, session *store.Session, persistent bool) error {
	if !persistent {
		return nil
	}
	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func docTypeOrDefault(docType string) string {
	if docType == "" {
		return DefaultDocType
	}
	return docType
}

// sessionLocks serializes turns per file id. Entries are dropped once no
// goroutine holds or waits for them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &sessionLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
