package kvstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis 会话键不设过期：登录态没有超时
type Redis struct {
	RDB redis.UniversalClient
}

func NewRedis(rdb redis.UniversalClient) *Redis { return &Redis{RDB: rdb} }

func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.RDB.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Redis) Set(ctx context.Context, key, val string) error {
	return s.RDB.Set(ctx, key, val, 0).Err()
}

func (s *Redis) Remove(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, key).Err()
}
