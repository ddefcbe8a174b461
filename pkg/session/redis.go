package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis.
//
// Layout, with the configured prefix:
//
//	{prefix}:token:{token}  session JSON, TTL = time until expiry
//	{prefix}:id:{id}        current token of the session
//	{prefix}:user:{userID}  set of session IDs bound to the user
//
// Redis drops expired keys on its own, so DeleteExpired is a no-op.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
// An empty prefix defaults to "session".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Create implements Store.
func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	if s.Token == "" {
		return ErrInvalidToken
	}
	return r.save(ctx, s, "", nil)
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := r.client.Get(ctx, r.tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s, err := decode(data)
	if err != nil {
		return nil, err
	}
	if s.IsExpired() {
		return nil, ErrExpired
	}
	return s, nil
}

// Update implements Store. A rotated token replaces the previous one.
func (r *RedisStore) Update(ctx context.Context, s *Session) error {
	old, err := r.client.Get(ctx, r.idKey(s.ID)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var prevUser *string
	prev, err := r.Get(ctx, old)
	switch {
	case err == nil:
		prevUser = prev.UserID
	case !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrExpired):
		return err
	}
	return r.save(ctx, s, old, prevUser)
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	token, err := r.client.Get(ctx, r.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	keys := []string{r.idKey(id), r.tokenKey(token)}
	if s, err := r.Get(ctx, token); err == nil && s.UserID != nil {
		if err := r.client.SRem(ctx, r.userKey(*s.UserID), id).Err(); err != nil {
			return err
		}
	}
	return r.client.Del(ctx, keys...).Err()
}

// DeleteByUserID implements Store.
func (r *RedisStore) DeleteByUserID(ctx context.Context, userID string) error {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		token, err := r.client.Get(ctx, r.idKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}
		// Skip entries whose session now belongs to someone else.
		if s, err := r.Get(ctx, token); err == nil && (s.UserID == nil || *s.UserID != userID) {
			continue
		}
		if err := r.Delete(ctx, id); err != nil {
			return err
		}
	}
	return r.client.Del(ctx, r.userKey(userID)).Err()
}

// Touch implements Store.
func (r *RedisStore) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	token, err := r.client.Get(ctx, r.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s, err := r.Get(ctx, token)
	if err != nil {
		return err
	}
	s.LastActiveAt = lastActiveAt
	return r.save(ctx, s, token, s.UserID)
}

// DeleteExpired implements Store.
func (r *RedisStore) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

// save writes the session and its indexes. oldToken, when set and different
// from the current token, is removed. The session leaves the user index of
// prevUser when its owner changed.
func (r *RedisStore) save(ctx context.Context, s *Session, oldToken string, prevUser *string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Join(ErrEncode, err)
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if oldToken != "" && oldToken != s.Token {
			p.Del(ctx, r.tokenKey(oldToken))
		}
		p.Set(ctx, r.tokenKey(s.Token), data, ttl)
		p.Set(ctx, r.idKey(s.ID), s.Token, ttl)
		if prevUser != nil && (s.UserID == nil || *s.UserID != *prevUser) {
			p.SRem(ctx, r.userKey(*prevUser), s.ID)
		}
		if s.UserID != nil {
			p.SAdd(ctx, r.userKey(*s.UserID), s.ID)
		}
		return nil
	})
	return err
}

func (r *RedisStore) tokenKey(token string) string { return r.prefix + ":token:" + token }
func (r *RedisStore) idKey(id string) string       { return r.prefix + ":id:" + id }
func (r *RedisStore) userKey(uid string) string    { return r.prefix + ":user:" + uid }

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Join(ErrDecode, err)
	}
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	return &s, nil
}

var _ Store = (*RedisStore)(nil)
