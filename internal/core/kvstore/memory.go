package kvstore

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// Memory 进程内实现：无 Redis 的开发环境和测试用。会话键永不过期
type Memory struct {
	c *gocache.Cache
}

func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, 0)}
}

func (s *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := s.c.Get(key)
	if !ok {
		return "", false, nil
	}
	str, ok := v.(string)
	return str, ok, nil
}

func (s *Memory) Set(ctx context.Context, key, val string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.c.Set(key, val, gocache.NoExpiration)
	return nil
}

func (s *Memory) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.c.Delete(key)
	return nil
}

// Len 当前键数量
func (s *Memory) Len() int { return s.c.ItemCount() }
