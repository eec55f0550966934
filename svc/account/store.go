package account

import (
	"context"

	"github.com/google/uuid"
)

// Store persists credential records.
// Implementations enforce email uniqueness and report violations as
// ErrEmailAlreadyExists; missing records are ErrUserNotFound.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByResetToken looks up by the stored token digest.
	FindByResetToken(ctx context.Context, digest string) (*User, error)
	Insert(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}
