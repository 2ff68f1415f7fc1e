package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps outstanding reset tokens and password hashes.
type Store interface {
	IssueResetToken(ctx context.Context, token, email string, ttl time.Duration) error
	// ConsumeResetToken returns the email a token was issued for and deletes
	// it. ok is false for unknown or expired tokens.
	ConsumeResetToken(ctx context.Context, token string) (email string, ok bool, err error)
	SetPasswordHash(ctx context.Context, subject string, hash []byte) error
	PasswordHash(ctx context.Context, subject string) ([]byte, error)
}

// ErrNoCredential is returned when no password hash is stored for a subject.
var ErrNoCredential = errors.New("auth: no credential")

const (
	resetTokenPrefix = "auth:reset:"
	credentialPrefix = "auth:credential:"
)

// RedisStore implements Store on Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) IssueResetToken(ctx context.Context, token, email string, ttl time.Duration) error {
	return s.client.Set(ctx, resetTokenPrefix+token, email, ttl).Err()
}

func (s *RedisStore) ConsumeResetToken(ctx context.Context, token string) (string, bool, error) {
	email, err := s.client.GetDel(ctx, resetTokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, true, nil
}

func (s *RedisStore) SetPasswordHash(ctx context.Context, subject string, hash []byte) error {
	return s.client.Set(ctx, credentialPrefix+subject, hash, 0).Err()
}

func (s *RedisStore) PasswordHash(ctx context.Context, subject string) ([]byte, error) {
	hash, err := s.client.Get(ctx, credentialPrefix+subject).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCredential
	}
	return hash, err
}

// MemoryStore implements Store in process, for development without Redis.
type MemoryStore struct {
	mu     sync.Mutex
	now    func() time.Time
	tokens map[string]memoryToken
	hashes map[string][]byte
}

type memoryToken struct {
	email   string
	expires time.Time
}

// NewMemoryStore constructs an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, tokens: map[string]memoryToken{}, hashes: map[string][]byte{}}
}

func (s *MemoryStore) IssueResetToken(ctx context.Context, token, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryToken{email: email, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) ConsumeResetToken(ctx context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	delete(s.tokens, token)
	if !ok || s.now().After(entry.expires) {
		return "", false, nil
	}
	return entry.email, true, nil
}

func (s *MemoryStore) SetPasswordHash(ctx context.Context, subject string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[subject] = append([]byte(nil), hash...)
	return nil
}

func (s *MemoryStore) PasswordHash(ctx context.Context, subject string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[subject]
	if !ok {
		return nil, ErrNoCredential
	}
	return hash, nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
