package account

import (
	"context"
	"embed"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/starter/pkg/pg"
)

// Migrations holds the goose migrations for PostgresStore.
//
//	pg.Migrate(ctx, pool, account.Migrations, account.MigrationsDir, cfg, log)
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

const userColumns = `id, email, password_hash, reset_token_hash, reset_expires_at,
	profile_name, profile_gender, profile_location, profile_website, profile_picture,
	created_at, updated_at`

// PostgresStore keeps users in the users table. The email column carries a
// UNIQUE constraint.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u         User
		tokenHash *string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &tokenHash, &u.ResetExpiresAt,
		&u.Profile.Name, &u.Profile.Gender, &u.Profile.Location, &u.Profile.Website, &u.Profile.Picture,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStoreFailure, err)
	}
	if tokenHash != nil {
		u.ResetTokenHash = *tokenHash
	}
	return &u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) FindByResetToken(ctx context.Context, digest string) (*User, error) {
	if digest == "" {
		return nil, ErrUserNotFound
	}
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1`, digest))
}

func (s *PostgresStore) Insert(ctx context.Context, u *User) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Email, u.PasswordHash, nullable(u.ResetTokenHash), u.ResetExpiresAt,
		u.Profile.Name, u.Profile.Gender, u.Profile.Location, u.Profile.Website, u.Profile.Picture,
		u.CreatedAt, u.UpdatedAt,
	)
	return s.mapWriteError(err)
}

func (s *PostgresStore) Save(ctx context.Context, u *User) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET
		email = $2, password_hash = $3, reset_token_hash = $4, reset_expires_at = $5,
		profile_name = $6, profile_gender = $7, profile_location = $8, profile_website = $9, profile_picture = $10,
		updated_at = $11
		WHERE id = $1`,
		u.ID, u.Email, u.PasswordHash, nullable(u.ResetTokenHash), u.ResetExpiresAt,
		u.Profile.Name, u.Profile.Gender, u.Profile.Location, u.Profile.Website, u.Profile.Picture,
		u.UpdatedAt,
	)
	if err != nil {
		return s.mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsDuplicateKeyError(err):
		return ErrEmailAlreadyExists
	default:
		return errors.Join(ErrStoreFailure, err)
	}
}
