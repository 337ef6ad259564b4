// Package kvstore 会话持久化用的字符串 KV 存储（get/set/remove）。
package kvstore

import (
	"context"
	"strings"
)

type Store interface {
	// Get 键不存在时 ok=false、err=nil
	Get(ctx context.Context, key string) (val string, ok bool, err error)
	Set(ctx context.Context, key, val string) error
	Remove(ctx context.Context, key string) error
}

// Prefixed 给所有键加前缀，用于按设备隔离同一后端
type Prefixed struct {
	Inner  Store
	Prefix string
}

func WithPrefix(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	if p, ok := s.(Prefixed); ok {
		return Prefixed{Inner: p.Inner, Prefix: p.Prefix + prefix}
	}
	return Prefixed{Inner: s, Prefix: prefix}
}

func (p Prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.Inner.Get(ctx, p.Prefix+key)
}

func (p Prefixed) Set(ctx context.Context, key, val string) error {
	return p.Inner.Set(ctx, p.Prefix+key, val)
}

func (p Prefixed) Remove(ctx context.Context, key string) error {
	return p.Inner.Remove(ctx, p.Prefix+key)
}

// DeviceNamespace 设备命名空间前缀
func DeviceNamespace(deviceID string) string {
	return "device:" + strings.TrimSpace(deviceID) + ":"
}
