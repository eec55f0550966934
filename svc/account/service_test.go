package account_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/starter/pkg/email"
	"github.com/dmitrymomot/starter/pkg/validator"
	"github.com/dmitrymomot/starter/svc/account"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

type fixture struct {
	store  *account.MemoryStore
	svc    *account.Service
	mailer *mockMailer
	now    time.Time
}

func newFixture(t *testing.T, opts ...account.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:  account.NewMemoryStore(),
		mailer: &mockMailer{},
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	base := []account.Option{
		account.WithHasher(account.NewBcryptHasher(bcrypt.MinCost)),
		account.WithMailer(f.mailer),
		account.WithClock(func() time.Time { return f.now }),
	}
	f.svc = account.NewService(f.store, append(base, opts...)...)
	return f
}

func resetLink(token string) string { return "https://example.com/reset/" + token }

func TestService_RegisterAndAuthenticate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "  Jane@Example.COM ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.NotEqual(t, "password123", u.PasswordHash)
	assert.NotEqual(t, uuid.Nil, u.ID)

	got, err := f.svc.Authenticate(ctx, "JANE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.svc.Authenticate(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	_, err = f.svc.Authenticate(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, account.ErrUserNotFound)
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	t.Run("duplicate email differing only in case", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		_, err := f.svc.Register(ctx, "jane@example.com", "password123")
		require.NoError(t, err)
		_, err = f.svc.Register(ctx, "JANE@EXAMPLE.COM", "otherpass123")
		assert.ErrorIs(t, err, account.ErrEmailAlreadyExists)
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.Register(context.Background(), "not-an-email", "short")
		require.Error(t, err)
		verrs := validator.ExtractValidationErrors(err)
		require.NotNil(t, verrs)
		assert.True(t, verrs.Has("email"))
		assert.True(t, verrs.Has("password"))
		assert.Equal(t, 0, f.store.Len())
	})

	t.Run("password of exactly eight characters", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Register(context.Background(), "a@example.com", "12345678")
		assert.NoError(t, err)
	})

	t.Run("password longer than bcrypt accepts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.Register(context.Background(), "long@example.com", strings.Repeat("a", account.MaxPasswordBytes+1))
		verrs := validator.ExtractValidationErrors(err)
		require.NotNil(t, verrs, "got %v", err)
		assert.True(t, verrs.Has("password"))
		assert.NotErrorIs(t, err, account.ErrHashFailed)
		assert.Equal(t, 0, f.store.Len())

		_, err = f.svc.Register(context.Background(), "long@example.com", strings.Repeat("a", account.MaxPasswordBytes))
		assert.NoError(t, err)
	})

	t.Run("store constraint decides when pre-check races", func(t *testing.T) {
		t.Parallel()
		inner := account.NewMemoryStore()
		store := &blindStore{MemoryStore: inner}
		svc := account.NewService(store, account.WithHasher(account.NewBcryptHasher(bcrypt.MinCost)))
		ctx := context.Background()

		_, err := svc.Register(ctx, "jane@example.com", "password123")
		require.NoError(t, err)
		_, err = svc.Register(ctx, "Jane@example.com", "password123")
		assert.ErrorIs(t, err, account.ErrEmailAlreadyExists)
		assert.Equal(t, 1, inner.Len())
	})

	t.Run("concurrent signups create one record", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		const n = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Register(context.Background(), "race@example.com", "password123")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, account.ErrEmailAlreadyExists):
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, n-1, conflicts)
		assert.Equal(t, 1, f.store.Len())
	})
}

// blindStore hides existing records from the pre-check so only the
// unique constraint can detect a conflict.
type blindStore struct {
	*account.MemoryStore
}

func (s *blindStore) FindByEmail(context.Context, string) (*account.User, error) {
	return nil, account.ErrUserNotFound
}

func TestBcryptHasher(t *testing.T) {
	t.Parallel()
	h := account.NewBcryptHasher(bcrypt.MinCost)

	a, err := h.Hash("password123")
	require.NoError(t, err)
	b, err := h.Hash("password123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "each hash gets its own salt")
	assert.True(t, h.Verify("password123", a))
	assert.True(t, h.Verify("password123", b))
	assert.False(t, h.Verify("password124", a))
	assert.False(t, h.Verify("password123", "not-a-hash"))
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	t.Parallel()
	h := account.NewBcryptHasher(99)
	hash, err := h.Hash("password123")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, account.DefaultBcryptCost, cost)
}

func TestService_RequestPasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("unknown email mutates nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		u, err := f.svc.Register(ctx, "jane@example.com", "password123")
		require.NoError(t, err)

		req, err := f.svc.RequestPasswordReset(ctx, "ghost@example.com", resetLink)
		assert.ErrorIs(t, err, account.ErrUserNotFound)
		assert.Nil(t, req)

		stored, err := f.store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.ResetTokenHash)
		assert.Nil(t, stored.ResetExpiresAt)
		f.mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})

	t.Run("stores digest and emails link", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.svc.Register(ctx, "jane@example.com", "password123")
		require.NoError(t, err)

		var sent email.SendEmailParams
		f.mailer.On("SendEmail", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sent = args.Get(1).(email.SendEmailParams) }).
			Return(nil).Once()

		req, err := f.svc.RequestPasswordReset(ctx, "Jane@Example.com", resetLink)
		require.NoError(t, err)
		assert.Equal(t, f.now.Add(account.DefaultResetTokenTTL), req.ExpiresAt)

		stored, err := f.store.FindByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ResetTokenHash)
		assert.NotEqual(t, req.Token, stored.ResetTokenHash)
		require.NotNil(t, stored.ResetExpiresAt)
		assert.True(t, stored.ResetExpiresAt.Equal(req.ExpiresAt))

		assert.Equal(t, "jane@example.com", sent.SendTo)
		assert.Contains(t, sent.BodyHTML, resetLink(req.Token))
		f.mailer.AssertExpectations(t)
	})

	t.Run("mail failure keeps the token valid", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.svc.Register(ctx, "jane@example.com", "password123")
		require.NoError(t, err)

		f.mailer.On("SendEmail", mock.Anything, mock.Anything).Return(email.ErrFailedToSendEmail).Once()

		req, err := f.svc.RequestPasswordReset(ctx, "jane@example.com", resetLink)
		assert.ErrorIs(t, err, account.ErrMailDelivery)
		require.NotNil(t, req)

		_, err = f.svc.ValidateResetToken(ctx, req.Token)
		assert.NoError(t, err)
	})

	t.Run("invalid email format", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.RequestPasswordReset(context.Background(), "nope", resetLink)
		assert.True(t, validator.IsValidationError(err))
	})
}

func TestService_ValidateResetToken_Expiry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "jane@example.com", "password123")
	require.NoError(t, err)
	f.mailer.On("SendEmail", mock.Anything, mock.Anything).Return(nil)

	issued := f.now
	req, err := f.svc.RequestPasswordReset(ctx, "jane@example.com", resetLink)
	require.NoError(t, err)

	check := func(at time.Time) error {
		svc := account.NewService(f.store, account.WithClock(func() time.Time { return at }))
		_, err := svc.ValidateResetToken(ctx, req.Token)
		return err
	}

	assert.NoError(t, check(issued.Add(time.Hour-time.Nanosecond)))
	assert.ErrorIs(t, check(issued.Add(time.Hour)), account.ErrTokenInvalid)
	assert.ErrorIs(t, check(issued.Add(2*time.Hour)), account.ErrTokenInvalid)

	_, err = f.svc.ValidateResetToken(ctx, "unknown-token")
	assert.ErrorIs(t, err, account.ErrTokenInvalid)
	_, err = f.svc.ValidateResetToken(ctx, "")
	assert.ErrorIs(t, err, account.ErrTokenInvalid)
}

func TestService_ResetPassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "jane@example.com", "oldpassword")
	require.NoError(t, err)

	var subjects []string
	f.mailer.On("SendEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			subjects = append(subjects, args.Get(1).(email.SendEmailParams).Subject)
		}).
		Return(nil)

	req, err := f.svc.RequestPasswordReset(ctx, "jane@example.com", resetLink)
	require.NoError(t, err)

	_, err = f.svc.ResetPassword(ctx, req.Token, "short")
	assert.True(t, validator.IsValidationError(err))

	u, err := f.svc.ResetPassword(ctx, req.Token, "newpassword")
	require.NoError(t, err)
	assert.Empty(t, u.ResetTokenHash)
	assert.Nil(t, u.ResetExpiresAt)

	_, err = f.svc.Authenticate(ctx, "jane@example.com", "oldpassword")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	_, err = f.svc.Authenticate(ctx, "jane@example.com", "newpassword")
	assert.NoError(t, err)

	_, err = f.svc.ResetPassword(ctx, req.Token, "anotherpassword")
	assert.ErrorIs(t, err, account.ErrTokenInvalid, "token is single use")

	require.Len(t, subjects, 2)
	assert.True(t, strings.Contains(strings.ToLower(subjects[1]), "changed"))
}

func TestService_ResetPassword_ConfirmationFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "jane@example.com", "oldpassword")
	require.NoError(t, err)

	f.mailer.On("SendEmail", mock.Anything, mock.Anything).Return(nil).Once()
	f.mailer.On("SendEmail", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	req, err := f.svc.RequestPasswordReset(ctx, "jane@example.com", resetLink)
	require.NoError(t, err)
	_, err = f.svc.ResetPassword(ctx, req.Token, "newpassword")
	assert.NoError(t, err)
}

func TestService_UpdateProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	jane, err := f.svc.Register(ctx, "jane@example.com", "password123")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "john@example.com", "password123")
	require.NoError(t, err)

	u, err := f.svc.UpdateProfile(ctx, jane.ID, account.ProfileUpdate{
		Email:    "Jane.Doe@Example.com",
		Name:     "  Jane Doe ",
		Location: "Berlin",
		Website:  "jane.dev",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", u.Email)
	assert.Equal(t, "Jane Doe", u.Profile.Name)
	assert.Equal(t, "https://jane.dev", u.Profile.Website)

	_, err = f.svc.UpdateProfile(ctx, jane.ID, account.ProfileUpdate{Email: "JOHN@example.com"})
	assert.ErrorIs(t, err, account.ErrEmailAlreadyExists)

	_, err = f.svc.UpdateProfile(ctx, jane.ID, account.ProfileUpdate{Email: "bad"})
	assert.True(t, validator.IsValidationError(err))

	_, err = f.svc.UpdateProfile(ctx, uuid.New(), account.ProfileUpdate{Email: "x@example.com"})
	assert.ErrorIs(t, err, account.ErrUserNotFound)
}

func TestService_UpdatePassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Register(ctx, "jane@example.com", "password123")
	require.NoError(t, err)

	assert.True(t, validator.IsValidationError(f.svc.UpdatePassword(ctx, u.ID, "short")))
	// 37 two-byte runes: long enough in characters, too long in bytes
	assert.True(t, validator.IsValidationError(f.svc.UpdatePassword(ctx, u.ID, strings.Repeat("ж", 37))))
	require.NoError(t, f.svc.UpdatePassword(ctx, u.ID, "newpassword"))

	_, err = f.svc.Authenticate(ctx, "jane@example.com", "newpassword")
	assert.NoError(t, err)
}

func TestService_DeleteAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Register(ctx, "jane@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAccount(ctx, u.ID))

	_, err = f.svc.Authenticate(ctx, "jane@example.com", "password123")
	assert.ErrorIs(t, err, account.ErrUserNotFound)
	_, err = f.svc.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, account.ErrUserNotFound)
	assert.ErrorIs(t, f.svc.DeleteAccount(ctx, u.ID), account.ErrUserNotFound)

	_, err = f.svc.Register(ctx, "jane@example.com", "password123")
	assert.NoError(t, err, "email is free again")
}

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error) { return "", account.ErrHashFailed }
func (failingHasher) Verify(string, string) bool  { return false }

func TestService_HashFailureAbortsSave(t *testing.T) {
	t.Parallel()
	store := account.NewMemoryStore()
	svc := account.NewService(store, account.WithHasher(failingHasher{}))

	_, err := svc.Register(context.Background(), "jane@example.com", "password123")
	assert.ErrorIs(t, err, account.ErrHashFailed)
	assert.Equal(t, 0, store.Len())
}

func TestService_ResetMailReachesEveryAcceptedAddress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	svc := account.NewService(account.NewMemoryStore(),
		account.WithHasher(account.NewBcryptHasher(bcrypt.MinCost)),
		account.WithMailer(email.NewDevSender(dir)),
	)

	_, err := svc.Register(ctx, "o'brien@example.com", "password123")
	require.NoError(t, err)

	req, err := svc.RequestPasswordReset(ctx, "o'brien@example.com", resetLink)
	require.NoError(t, err)
	assert.NotEmpty(t, req.Token)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
