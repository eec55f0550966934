package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/starter/pkg/cookie"
	"github.com/dmitrymomot/starter/pkg/logger"
)

// Manager drives the session lifecycle of a request:
// anonymous, authenticated after Authenticate, anonymous again after Destroy.
type Manager struct {
	store         Store
	transport     Transport
	config        Config
	cookieManager *cookie.Manager
	cookieOptions []cookie.Option
	log           *slog.Logger
	now           func() time.Time
}

// New creates a session manager.
// Panics when neither a transport nor a cookie manager is configured.
func New(opts ...Option) *Manager {
	m := &Manager{
		config: DefaultConfig(),
		log:    logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}
	if m.transport == nil {
		if m.cookieManager == nil {
			panic("session: cookie manager is required when using default cookie transport")
		}
		m.transport = NewCookieTransport(m.cookieManager, m.config.CookieName, m.cookieOptions...)
	}
	return m
}

// Get returns the valid session referenced by the request, if any.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil, err
	}
	s, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.expiredAt(m.now()) {
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Ensure returns the current session or starts a new anonymous one.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	if s, err := m.Get(ctx, r); err == nil {
		return s, nil
	}

	s, err := m.create(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := m.transport.SetToken(w, s.Token, s.ExpiresAt.Sub(s.CreatedAt)); err != nil {
		_ = m.store.Delete(ctx, s.Token)
		return nil, err
	}
	return s, nil
}

// Authenticate binds userID to the request's session under a freshly issued
// token. The previous token stops working; session data is carried over.
func (m *Manager) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*Session, error) {
	var data map[string]any
	if prev, err := m.Get(ctx, r); err == nil {
		data = prev.Data
		if err := m.store.Delete(ctx, prev.Token); err != nil {
			m.log.WarnContext(ctx, "failed to delete rotated session",
				logger.Component("session"), logger.Error(err))
		}
	}

	s, err := m.create(ctx, &userID, data)
	if err != nil {
		return nil, err
	}
	if err := m.transport.SetToken(w, s.Token, s.ExpiresAt.Sub(s.CreatedAt)); err != nil {
		_ = m.store.Delete(ctx, s.Token)
		return nil, err
	}
	return s, nil
}

// Destroy removes the session and clears the client token.
// The token is cleared even when the store fails; the store error is returned
// wrapped in ErrStoreFailure so the caller can log it.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer m.transport.ClearToken(w)

	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

// DestroyUserSessions drops every session bound to userID when the store
// supports it. Other stores are left to expire naturally.
func (m *Manager) DestroyUserSessions(ctx context.Context, userID uuid.UUID) error {
	cs, ok := m.store.(StoreWithCleanup)
	if !ok {
		return nil
	}
	if err := cs.DeleteByUserID(ctx, userID); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

// Set stores a value in the session, starting one if needed.
func (m *Manager) Set(ctx context.Context, w http.ResponseWriter, r *http.Request, key string, value any) error {
	s, err := m.Ensure(ctx, w, r)
	if err != nil {
		return err
	}
	s.Set(key, value)
	return m.store.Update(ctx, s)
}

// Pop reads a string value and removes it from the session.
func (m *Manager) Pop(ctx context.Context, r *http.Request, key string) (string, bool) {
	s, err := m.Get(ctx, r)
	if err != nil {
		return "", false
	}
	v, ok := s.GetString(key)
	if !ok {
		return "", false
	}
	s.Delete(key)
	if err := m.store.Update(ctx, s); err != nil {
		m.log.WarnContext(ctx, "failed to update session", logger.Component("session"), logger.Error(err))
	}
	return v, true
}

// Middleware loads the request session, if any, into the request context.
// Activity is recorded at most once per ActivityUpdateThreshold and slides
// the expiry forward, never past the session's max lifetime.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Get(r.Context(), r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if now := m.now(); now.Sub(s.LastActivityAt) >= m.config.ActivityUpdateThreshold {
			if err := m.refresh(r.Context(), w, s, now); err != nil {
				m.log.WarnContext(r.Context(), "failed to record session activity",
					logger.Component("session"), logger.Error(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// Refresh records activity on the request's session and extends its expiry.
func (m *Manager) Refresh(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s, err := m.Get(ctx, r)
	if err != nil {
		return err
	}
	return m.refresh(ctx, w, s, m.now())
}

func (m *Manager) refresh(ctx context.Context, w http.ResponseWriter, s *Session, now time.Time) error {
	idle, max := m.config.Timeouts(s.IsAuthenticated())
	expiresAt := calculateExpiry(s.CreatedAt, now, idle, max)
	if err := m.store.UpdateActivity(ctx, s.Token, now, expiresAt); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	s.LastActivityAt = now
	s.ExpiresAt = expiresAt
	return m.transport.SetToken(w, s.Token, expiresAt.Sub(now))
}

func (m *Manager) create(ctx context.Context, userID *uuid.UUID, data map[string]any) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	idle, max := m.config.Timeouts(userID != nil)
	s := newSession(token, userID, now, calculateExpiry(now, now, idle, max))
	for k, v := range data {
		s.Data[k] = v
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return s, nil
}

// calculateExpiry returns the earlier of the idle deadline and the max lifetime.
func calculateExpiry(createdAt, now time.Time, idle, max time.Duration) time.Time {
	idleExpiry := now.Add(idle)
	if maxExpiry := createdAt.Add(max); maxExpiry.Before(idleExpiry) {
		return maxExpiry
	}
	return idleExpiry
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
