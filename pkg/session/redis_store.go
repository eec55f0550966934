package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// indexScript adds a token to the user's index and only ever extends the
// index TTL, so it outlives the longest-lived session it lists. TTL in ms.
var indexScript = redis.NewScript(`
redis.call('SADD', KEYS[1], ARGV[1])
local want = tonumber(ARGV[2])
local cur  = redis.call('PTTL', KEYS[1])
if cur < want then
  redis.call('PEXPIRE', KEYS[1], want)
end
return 1
`)

// RedisStore keeps sessions as JSON blobs with a TTL matching their expiry.
// Each user has a set of live tokens so DeleteByUserID is a single lookup.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store; an empty prefix defaults to "session:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) tokenKey(token string) string { return s.prefix + "t:" + token }
func (s *RedisStore) userKey(id uuid.UUID) string  { return s.prefix + "u:" + id.String() }

func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	if sess == nil || sess.Token == "" {
		return ErrInvalidSession
	}
	return s.write(ctx, sess)
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	raw, err := s.client.Get(ctx, s.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	if sess.IsExpired() {
		return nil, ErrSessionExpired
	}
	return &sess, nil
}

func (s *RedisStore) Update(ctx context.Context, sess *Session) error {
	if sess == nil || sess.Token == "" {
		return ErrInvalidSession
	}
	n, err := s.client.Exists(ctx, s.tokenKey(sess.Token)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return s.write(ctx, sess)
}

func (s *RedisStore) UpdateActivity(ctx context.Context, token string, lastActivity, expiresAt time.Time) error {
	sess, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	sess.LastActivityAt = lastActivity
	sess.ExpiresAt = expiresAt
	return s.write(ctx, sess)
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	key := s.tokenKey(token)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	var sess Session
	_ = json.Unmarshal(raw, &sess)

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if sess.UserID != nil {
			p.SRem(ctx, s.userKey(*sess.UserID), token)
		}
		return nil
	})
	return err
}

// DeleteExpired is a no-op: Redis evicts expired keys itself.
func (s *RedisStore) DeleteExpired(context.Context) error { return nil }

func (s *RedisStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	ukey := s.userKey(userID)
	tokens, err := s.client.SMembers(ctx, ukey).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, s.tokenKey(t))
	}
	keys = append(keys, ukey)
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) write(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.tokenKey(sess.Token), raw, ttl)
		if sess.UserID != nil {
			indexScript.Eval(ctx, p, []string{s.userKey(*sess.UserID)}, sess.Token, ttl.Milliseconds())
		}
		return nil
	})
	return err
}
