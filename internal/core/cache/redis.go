package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	RDB    redis.UniversalClient
	Prefix string
	sf     singleflight.Group
}

// New 与会话存储共用同一个 Redis 客户端
func New(rdb redis.UniversalClient, prefix string) *Cache {
	return &Cache{RDB: rdb, Prefix: prefix}
}

// NewClient 建立 Redis 连接（不做 Ping，交给调用方）
func NewClient(addr, pass string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// GetOrLoad 先读缓存，未命中时 singleflight 合并回源。
// c 为 nil 时直接回源（未配置 Redis）。
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	return c.getOrLoad(ctx, key, func(ctx context.Context) ([]byte, time.Duration, error) {
		b, err := load(ctx)
		return b, ttl, err
	})
}

// getOrLoad 由 load 按结果决定过期时间；ttl<=0 的结果只返回不写入
func (c *Cache) getOrLoad(ctx context.Context, key string, load func(context.Context) ([]byte, time.Duration, error)) ([]byte, error) {
	if c == nil || c.RDB == nil {
		b, _, err := load(ctx)
		return b, err
	}
	key = c.Prefix + key
	if b, err := c.RDB.Get(ctx, key).Bytes(); err == nil {
		return b, nil
	}
	v, err, _ := c.sf.Do(key, func() (any, error) {
		b, ttl, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if ttl > 0 {
			_ = c.RDB.Set(ctx, key, b, ttl).Err()
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate 删除缓存键；写路径在变更后调用
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || c.RDB == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.Prefix+k)
	}
	return c.RDB.Del(ctx, full...).Err()
}
