package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-docfill-be/internal/repository/contract"
	"ai-docfill-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "docfill:session:"

// RedisSessionRepository keeps sessions as JSON values with a TTL, so
// several server instances can share them.
type RedisSessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionRepository(rdb *redis.Client, ttl time.Duration) contract.SessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (r *RedisSessionRepository) Save(ctx context.Context, session *store.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(session.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", session.ID, err)
	}
	return nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, sessionID string) (*store.Session, bool, error) {
	data, err := r.rdb.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session %s: %w", sessionID, err)
	}

	var session store.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	if session.Answers == nil {
		session.Answers = map[string]string{}
	}
	return &session, true, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, r.key(sessionID)).Err()
}
