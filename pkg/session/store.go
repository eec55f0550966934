package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists sessions keyed by token.
type Store interface {
	Create(ctx context.Context, session *Session) error
	// Get returns ErrSessionNotFound for unknown tokens and ErrSessionExpired
	// for sessions past their expiry.
	Get(ctx context.Context, token string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	// UpdateActivity records lastActivity and moves the expiry to expiresAt.
	UpdateActivity(ctx context.Context, token string, lastActivity, expiresAt time.Time) error
	// Delete is idempotent.
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) error
}

// StoreWithCleanup is implemented by stores able to drop every session of a user.
type StoreWithCleanup interface {
	Store
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
