package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore implements Store on a redis backend.
type redisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore connects to redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg Config) (Store, error) {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeoutDuration,
		ReadTimeout:  timeoutDuration,
		WriteTimeout: timeoutDuration,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &redisStore{client: client, timeout: timeoutDuration}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests that run
// against an in-process redis.
func NewRedisStoreFromClient(client *redis.Client) Store {
	return &redisStore{client: client, timeout: 10 * time.Second}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %q: %w", key, err)
	}
	return val, nil
}

func (s *redisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// List pages through keys with SCAN. The cursor is the decimal SCAN cursor;
// redis does not guarantee ordering and may re-deliver a key across pages,
// which ListAll de-duplicates.
func (s *redisStore) List(ctx context.Context, prefix, cursor string, limit int) ([]string, string, error) {
	if limit <= 0 {
		limit = 1000
	}

	var scanCursor uint64
	if cursor != "" {
		parsed, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("kv list: invalid cursor %q: %w", cursor, err)
		}
		scanCursor = parsed
	}

	keys, next, err := s.client.Scan(ctx, scanCursor, prefix+"*", int64(limit)).Result()
	if err != nil {
		return nil, "", fmt.Errorf("kv list %q: %w", prefix, err)
	}

	nextCursor := ""
	if next != 0 {
		nextCursor = strconv.FormatUint(next, 10)
	}
	return keys, nextCursor, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
