package cache

import (
	"context"
	"encoding/json"
	"time"
)

// absent 负缓存占位：回源已确认数据不存在
var absent = []byte("null")

// TTL 按结果区分过期：Found 用于有数据，Absent 用于 load 返回 (nil, nil)。
// 任一项 <=0 表示该类结果不写缓存。
type TTL struct {
	Found  time.Duration
	Absent time.Duration
}

// Fixed 两类结果同一过期时间
func Fixed(d time.Duration) TTL { return TTL{Found: d, Absent: d} }

// GetOrLoadJSON 读缓存或回源，结果按 JSON 存储。
// 返回 (nil, nil) 表示数据不存在（可能来自负缓存）。
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl TTL,
	load func(ctx context.Context) (*T, error),
) (*T, error) {
	b, err := c.getOrLoad(ctx, key, func(ctx context.Context) ([]byte, time.Duration, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, 0, e
		}
		if v == nil {
			return absent, ttl.Absent, nil
		}
		raw, e := json.Marshal(v)
		return raw, ttl.Found, e
	})
	if err != nil {
		return nil, err
	}
	if string(b) == string(absent) {
		return nil, nil
	}
	var out T
	if e := json.Unmarshal(b, &out); e != nil {
		return nil, e
	}
	return &out, nil
}
