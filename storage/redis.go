package storage

import (
	"context"
	"errors"

	"github.com/ariebrainware/sehatec/config"
	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps each document as a plain Redis string without expiry.
type RedisStorage struct {
	rdb *redis.Client
}

func NewRedisStorage(rdb *redis.Client) *RedisStorage {
	return &RedisStorage{rdb: rdb}
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.rdb.Get(ctx, config.RedisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, config.RedisKey(key), value, 0).Err()
}
