package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL 상수 정의
const (
	TTLPage    = 2 * time.Minute // 갤러리 페이지 조각
	TTLSearch  = 1 * time.Minute // 검색 결과 (업로드 직후 갱신 필요)
	TTLDefault = 5 * time.Minute // 기본값
)

// 캐시 키 접두사
const (
	PrefixPage    = "gallery:page:"
	PrefixSearch  = "gallery:search:"
	KeyVersion    = "gallery:version"
	PrefixGeneric = "gallery:"
)

// ErrMiss is returned when a key is absent or the cache is unavailable
var ErrMiss = errors.New("cache miss")

// Service Redis 캐시 서비스 인터페이스
type Service interface {
	// 기본 캐시 연산
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// 갤러리 캐시 (버전 키로 일괄 무효화)
	Version(ctx context.Context) int64
	BumpVersion(ctx context.Context) error
	PageKey(ctx context.Context, scopeKey string, page, perPage int) string
	SearchKey(ctx context.Context, scopeKey, query string) string

	// 유틸리티
	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache Redis 기반 캐시 구현
type redisCache struct {
	client *redis.Client
}

// NewService 새로운 캐시 서비스 생성 (client가 nil이면 모든 조회가 miss)
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable Redis 연결 가능 여부
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Ping Redis 연결 테스트
func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

// Get 캐시에서 값 조회
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set 캐시에 값 저장
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // Redis 없으면 무시
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete 캐시 삭제
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Version 현재 갤러리 캐시 버전
func (c *redisCache) Version(ctx context.Context) int64 {
	if c.client == nil {
		return 0
	}
	v, err := c.client.Get(ctx, KeyVersion).Int64()
	if err != nil {
		return 0
	}
	return v
}

// BumpVersion 새 이미지가 공개되면 이전 버전의 페이지/검색 캐시를 모두 무효화
func (c *redisCache) BumpVersion(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, KeyVersion).Err()
}

// PageKey 버전이 포함된 페이지 캐시 키
func (c *redisCache) PageKey(ctx context.Context, scopeKey string, page, perPage int) string {
	return fmt.Sprintf("%sv%d:%s:%d:%d", PrefixPage, c.Version(ctx), scopeKey, page, perPage)
}

// SearchKey 버전이 포함된 검색 캐시 키
func (c *redisCache) SearchKey(ctx context.Context, scopeKey, query string) string {
	return fmt.Sprintf("%sv%d:%s:%s", PrefixSearch, c.Version(ctx), scopeKey, query)
}
