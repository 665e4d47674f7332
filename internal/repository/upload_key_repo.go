package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const uploadKeyPrefix = "gallery:upload_key:"

// UploadKeyStore per-instance shared upload keys, stored hashed with a lifetime
type UploadKeyStore interface {
	Set(ctx context.Context, instance, key string, ttl time.Duration) error
	// Verify reports whether key matches; an expired or unset key never matches
	Verify(ctx context.Context, instance, key string) (bool, error)
	Delete(ctx context.Context, instance string) error
}

// NewUploadKeyStore returns a redis-backed store, or an in-memory one when client is nil
func NewUploadKeyStore(client *redis.Client) UploadKeyStore {
	if client == nil {
		return newMemoryUploadKeyStore()
	}
	return &redisUploadKeyStore{client: client}
}

func hashUploadKey(key string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
}

// compareUploadKey bcrypt comparison is constant-time with respect to the key
func compareUploadKey(hash []byte, key string) bool {
	if len(hash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(key)) == nil
}

type redisUploadKeyStore struct {
	client *redis.Client
}

func (s *redisUploadKeyStore) Set(ctx context.Context, instance, key string, ttl time.Duration) error {
	hash, err := hashUploadKey(key)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, uploadKeyPrefix+instance, hash, ttl).Err()
}

func (s *redisUploadKeyStore) Verify(ctx context.Context, instance, key string) (bool, error) {
	hash, err := s.client.Get(ctx, uploadKeyPrefix+instance).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return compareUploadKey(hash, key), nil
}

func (s *redisUploadKeyStore) Delete(ctx context.Context, instance string) error {
	return s.client.Del(ctx, uploadKeyPrefix+instance).Err()
}

// memoryUploadKeyStore fallback when redis is unavailable (single instance only)
type memoryUploadKeyStore struct {
	mu   sync.Mutex
	keys map[string]memoryUploadKey
	now  func() time.Time
}

type memoryUploadKey struct {
	expiresAt time.Time
	hash      []byte
}

func newMemoryUploadKeyStore() *memoryUploadKeyStore {
	return &memoryUploadKeyStore{keys: make(map[string]memoryUploadKey), now: time.Now}
}

func (s *memoryUploadKeyStore) Set(_ context.Context, instance, key string, ttl time.Duration) error {
	hash, err := hashUploadKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.keys[instance] = memoryUploadKey{hash: hash, expiresAt: exp}
	return nil
}

func (s *memoryUploadKeyStore) Verify(_ context.Context, instance, key string) (bool, error) {
	s.mu.Lock()
	entry, ok := s.keys[instance]
	if ok && !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.keys, instance)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return compareUploadKey(entry.hash, key), nil
}

func (s *memoryUploadKeyStore) Delete(_ context.Context, instance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, instance)
	return nil
}
