package memory

import (
	"context"
	"time"

	"ai-docfill-be/internal/repository/contract"
	"ai-docfill-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a cache whose entries live for ttl and are
// purged every cleanupInterval. onEvict, when set, runs for every session
// that expires or is deleted.
func NewSessionRepository(ttl, cleanupInterval time.Duration, onEvict func(sessionID string)) *SessionRepository {
	r := &SessionRepository{
		cache: cache.New(ttl, cleanupInterval),
	}
	r.SetEvictionHook(onEvict)
	return r
}

// SetEvictionHook replaces the eviction callback. A nil hook disables it.
func (r *SessionRepository) SetEvictionHook(onEvict func(sessionID string)) {
	if onEvict == nil {
		r.cache.OnEvicted(nil)
		return
	}
	r.cache.OnEvicted(func(key string, _ interface{}) {
		onEvict(key)
	})
}

func (r *SessionRepository) Save(_ context.Context, session *store.Session) error {
	r.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Get(_ context.Context, sessionID string) (*store.Session, bool, error) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session).Clone(), true, nil
	}
	return nil, false, nil
}

func (r *SessionRepository) Delete(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}

// Count reports the number of live sessions, expired-but-unpurged included.
func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
