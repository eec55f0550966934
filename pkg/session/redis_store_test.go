package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/pkg/session"
)

func newRedisStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewRedisStore(client, "test:"), mr
}

func testSession(userID *uuid.UUID) *session.Session {
	now := time.Now()
	return &session.Session{
		ID:             uuid.New(),
		Token:          uuid.NewString(),
		UserID:         userID,
		Data:           map[string]any{"return_to": "/account"},
		ExpiresAt:      now.Add(time.Hour),
		LastActivityAt: now,
		CreatedAt:      now,
	}
}

func TestRedisStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	uid := uuid.New()
	s := testSession(&uid)

	require.NoError(t, store.Create(ctx, s))
	assert.True(t, mr.Exists("test:t:"+s.Token))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("test:t:"+s.Token).Seconds(), 2)

	got, err := store.Get(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, uid, *got.UserID)
	v, _ := got.GetString("return_to")
	assert.Equal(t, "/account", v)

	got.Set("k", "v")
	require.NoError(t, store.Update(ctx, got))
	got, err = store.Get(ctx, s.Token)
	require.NoError(t, err)
	v, _ = got.GetString("k")
	assert.Equal(t, "v", v)

	at := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	until := at.Add(3 * time.Hour)
	require.NoError(t, store.UpdateActivity(ctx, s.Token, at, until))
	got, err = store.Get(ctx, s.Token)
	require.NoError(t, err)
	assert.True(t, at.Equal(got.LastActivityAt))
	assert.True(t, until.Equal(got.ExpiresAt))
	assert.Greater(t, mr.TTL("test:t:"+s.Token), 2*time.Hour)

	require.NoError(t, store.Delete(ctx, s.Token))
	_, err = store.Get(ctx, s.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	// idempotent
	require.NoError(t, store.Delete(ctx, s.Token))
}

func TestRedisStore_UpdateMissing(t *testing.T) {
	store, _ := newRedisStore(t)
	err := store.Update(context.Background(), testSession(nil))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	s := testSession(nil)
	require.NoError(t, store.Create(ctx, s))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, s.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestRedisStore_DeleteByUserID(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	uid := uuid.New()
	other := uuid.New()

	a, b, c := testSession(&uid), testSession(&uid), testSession(&other)
	for _, s := range []*session.Session{a, b, c} {
		require.NoError(t, store.Create(ctx, s))
	}

	require.NoError(t, store.DeleteByUserID(ctx, uid))

	_, err := store.Get(ctx, a.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = store.Get(ctx, b.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = store.Get(ctx, c.Token)
	assert.NoError(t, err)
}

func TestRedisStore_UserIndexOutlivesItsSessions(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	uid := uuid.New()
	index := "test:u:" + uid.String()

	older := testSession(&uid)
	require.NoError(t, store.Create(ctx, older))
	newer := testSession(&uid)
	newer.ExpiresAt = time.Now().Add(48 * time.Hour)
	require.NoError(t, store.Create(ctx, newer))
	assert.Greater(t, mr.TTL(index), 47*time.Hour)

	// activity on the shorter-lived session must not shrink the index
	now := time.Now()
	require.NoError(t, store.UpdateActivity(ctx, older.Token, now, now.Add(30*time.Minute)))
	assert.Greater(t, mr.TTL(index), 47*time.Hour)

	mr.FastForward(2 * time.Hour)
	require.NoError(t, store.DeleteByUserID(ctx, uid))
	_, err := store.Get(ctx, newer.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestRedisStore_WithManager(t *testing.T) {
	store, _ := newRedisStore(t)
	m, _ := setupManager(t, session.WithStore(store))
	ctx := context.Background()
	uid := uuid.New()

	_, err := m.Authenticate(ctx, nopWriter(), nopRequest(), uid)
	require.NoError(t, err)
	require.NoError(t, m.DestroyUserSessions(ctx, uid))
}
