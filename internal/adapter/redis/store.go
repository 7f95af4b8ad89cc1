package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hafbjorn109/wiperino/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Store implements domain.EphemeralStore on plain Redis strings and lists.
type Store struct {
	rdb *goredis.Client
}

var _ domain.EphemeralStore = (*Store)(nil)

func NewStore(client *Client) *Store {
	return &Store{rdb: client.rdb}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to setnx %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// ListAppend pushes value and refreshes the list TTL in one transaction.
func (s *Store) ListAppend(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, value)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", key, err)
	}
	return nil
}

func (s *Store) ListRemove(ctx context.Context, key, value string) error {
	if err := s.rdb.LRem(ctx, key, 0, value).Err(); err != nil {
		return fmt.Errorf("failed to remove from %s: %w", key, err)
	}
	return nil
}

func (s *Store) ListRange(ctx context.Context, key string) ([]string, error) {
	items, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return items, nil
}
