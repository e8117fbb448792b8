package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/HSouheill/affiliate_backend/models"
)

const (
	pendingMarker   = "pending"
	reserveAttempts = 2
)

// IdempotencyStore remembers RecordSale outcomes per client-supplied key.
type IdempotencyStore interface {
	// Begin reserves key. It returns the stored result when the key already
	// completed, or ErrDuplicateRequest while another request holds it.
	Begin(ctx context.Context, key string) (*models.SaleResult, error)
	Complete(ctx context.Context, key string, result *models.SaleResult) error
	Abort(ctx context.Context, key string) error
}

// RedisIdempotencyStore keeps reservations in Redis so every instance sees them.
type RedisIdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client redis.Cmdable, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return "idempotency:sale:" + key
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string) (*models.SaleResult, error) {
	for attempt := 0; attempt < reserveAttempts; attempt++ {
		ok, err := s.client.SetNX(ctx, redisKey(key), pendingMarker, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if ok {
			return nil, nil
		}

		raw, err := s.client.Get(ctx, redisKey(key)).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read idempotency key: %w", err)
		}
		if raw == pendingMarker {
			return nil, ErrDuplicateRequest
		}
		var result models.SaleResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("failed to decode stored sale result: %w", err)
		}
		return &result, nil
	}
	return nil, fmt.Errorf("%w: key %s could not be reserved", ErrDuplicateRequest, key)
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, result *models.SaleResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(key), raw, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Abort(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKey(key)).Err()
}

// MemoryIdempotencyStore is the single-instance fallback when Redis is not configured.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*models.SaleResult
	pending map[string]bool
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]*models.SaleResult),
		pending: make(map[string]bool),
	}
}

func (s *MemoryIdempotencyStore) Begin(ctx context.Context, key string) (*models.SaleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result, ok := s.entries[key]; ok {
		return result, nil
	}
	if s.pending[key] {
		return nil, ErrDuplicateRequest
	}
	s.pending[key] = true
	return nil, nil
}

func (s *MemoryIdempotencyStore) Complete(ctx context.Context, key string, result *models.SaleResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, key)
	s.entries[key] = result
	return nil
}

func (s *MemoryIdempotencyStore) Abort(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, key)
	return nil
}
