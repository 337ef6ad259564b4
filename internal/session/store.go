package session

import (
	"context"
	"fmt"
	"time"

	"freshtrack/internal/core/kvstore"
)

// DefaultKeyPrefix 持久化键前缀
const DefaultKeyPrefix = "restaurant_"

// TimestampLayout ISO-8601，UTC 毫秒精度
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Store 会话相关键的类型化读写：
//
//	<prefix>auth_user              当前登录用户 ID（单槽）
//	<prefix>last_login_<userId>    每个用户的最近登录时间
type Store struct {
	kv     kvstore.Store
	prefix string
}

func NewStore(kv kvstore.Store, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{kv: kv, prefix: prefix}
}

func (s *Store) AuthUserKey() string { return s.prefix + "auth_user" }

func (s *Store) LastLoginKey(userID string) string { return s.prefix + "last_login_" + userID }

func (s *Store) LoadUserID(ctx context.Context) (string, bool, error) {
	id, ok, err := s.kv.Get(ctx, s.AuthUserKey())
	if err != nil {
		return "", false, fmt.Errorf("load %s: %w", s.AuthUserKey(), err)
	}
	if !ok || id == "" {
		return "", false, nil
	}
	return id, true, nil
}

func (s *Store) SaveUserID(ctx context.Context, id string) error {
	if err := s.kv.Set(ctx, s.AuthUserKey(), id); err != nil {
		return fmt.Errorf("save %s: %w", s.AuthUserKey(), err)
	}
	return nil
}

func (s *Store) ClearUserID(ctx context.Context) error {
	if err := s.kv.Remove(ctx, s.AuthUserKey()); err != nil {
		return fmt.Errorf("remove %s: %w", s.AuthUserKey(), err)
	}
	return nil
}

func (s *Store) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	key := s.LastLoginKey(userID)
	if err := s.kv.Set(ctx, key, at.UTC().Format(TimestampLayout)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Store) LastLogin(ctx context.Context, userID string) (time.Time, bool, error) {
	key := s.LastLoginKey(userID)
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return t, true, nil
}
