package contract

import (
	"context"

	"ai-docfill-be/pkg/store"
)

// SessionRepository holds fill sessions until they expire. Implementations
// store copies: mutating a returned session does not change the stored one
// until Save is called.
type SessionRepository interface {
	Save(ctx context.Context, session *store.Session) error
	Get(ctx context.Context, sessionID string) (*store.Session, bool, error)
	Delete(ctx context.Context, sessionID string) error
}
