package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned for unknown or expired reset tokens.
var ErrTokenNotFound = errors.New("token not found or expired")

// TokenStore holds password-reset tokens with a TTL. Production uses the
// Redis implementation; the in-memory one serves tests and deployments
// without Redis.
type TokenStore interface {
	Save(ctx context.Context, token, username string, ttl time.Duration) error
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

func resetTokenKey(token string) string { return "pwd:reset:token:" + token }

// RedisTokenStore stores tokens under pwd:reset:token:<token> with EXPIRE.
type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) Save(ctx context.Context, token, username string, ttl time.Duration) error {
	return s.rdb.Set(ctx, resetTokenKey(token), username, ttl).Err()
}

func (s *RedisTokenStore) Get(ctx context.Context, token string) (string, error) {
	v, err := s.rdb.Get(ctx, resetTokenKey(token)).Result()
	if errors.Is(err, redis.Nil) || v == "" {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, resetTokenKey(token)).Err()
}

type memoryToken struct {
	username string
	expires  time.Time
}

// MemoryTokenStore is a process-local TokenStore with lazy expiry.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: map[string]memoryToken{}}
}

func (s *MemoryTokenStore) Save(_ context.Context, token, username string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryToken{username: username, expires: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return "", ErrTokenNotFound
	}
	if time.Now().After(t.expires) {
		delete(s.tokens, token)
		return "", ErrTokenNotFound
	}
	return t.username, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}
