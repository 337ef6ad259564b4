// Package session 登录态状态机：恢复、登录、登出、切换用户与权限判断。
//
// 每个 Manager 持有一个会话。会改动状态的操作（Restore/Login/Logout/SwitchUser）
// 经由同一把操作锁串行执行；读操作不等待进行中的 I/O，而是看到 IsLoading。
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"freshtrack/internal/domain"
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// Snapshot 某一时刻的会话副本
type Snapshot struct {
	State     State
	User      *domain.User
	IsLoading bool
	Error     string
	// Version 每次状态变化递增
	Version uint64
}

func (s Snapshot) IsAuthenticated() bool { return s.User != nil }

func (s Snapshot) HasRole(r domain.Role) bool { return s.User.HasRole(r) }

func (s Snapshot) HasPermission(res domain.Resource, act domain.Action) bool {
	return s.User.HasPermission(res, act)
}

type Options struct {
	Log *zap.Logger
	Now func() time.Time
}

type Manager struct {
	dir   domain.UserDirectory
	store *Store
	log   *zap.Logger
	now   func() time.Time

	ops sync.Mutex // 串行化写操作

	mu      sync.RWMutex
	state   State
	user    *domain.User
	loading int
	errMsg  string
	version uint64
}

func NewManager(dir domain.UserDirectory, store *Store, opt Options) *Manager {
	m := &Manager{dir: dir, store: store, log: opt.Log, now: opt.Now}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Open 创建并执行一次 Restore
func Open(ctx context.Context, dir domain.UserDirectory, store *Store, opt Options) *Manager {
	m := NewManager(dir, store, opt)
	m.Restore(ctx)
	return m
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		State:     m.state,
		IsLoading: m.loading > 0,
		Error:     m.errMsg,
		Version:   m.version,
	}
	if m.user != nil {
		u := m.user.Clone()
		s.User = &u
	}
	return s
}

func (m *Manager) CurrentUser() *domain.User { return m.Snapshot().User }

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

func (m *Manager) HasRole(r domain.Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.HasRole(r)
}

func (m *Manager) HasPermission(res domain.Resource, act domain.Action) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.HasPermission(res, act)
}

func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errMsg != "" {
		m.errMsg = ""
		m.version++
	}
}

// beginLoading 进入 Loading；返回的 release 必须 defer 调用
func (m *Manager) beginLoading() (release func()) {
	m.mu.Lock()
	m.loading++
	m.state = StateLoading
	m.version++
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.loading--
			if m.loading == 0 {
				m.state = settledState(m.user)
			}
			m.version++
		})
	}
}

func settledState(u *domain.User) State {
	if u != nil {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

func (m *Manager) setUser(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = u
	m.version++
}

func (m *Manager) setError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errMsg = msg
	m.version++
}

func (m *Manager) fail(kind domain.ErrorKind, msg string, cause error) error {
	m.setError(msg)
	return domain.NewAuthError(kind, msg, cause)
}

// Restore 从持久化存储恢复会话。存储错误只记日志，会话降级为未登录。
func (m *Manager) Restore(ctx context.Context) {
	m.ops.Lock()
	defer m.ops.Unlock()
	release := m.beginLoading()
	defer release()

	id, ok, err := m.store.LoadUserID(ctx)
	if err != nil {
		m.log.Warn("session restore: read failed", zap.Error(err))
		m.setUser(nil)
		return
	}
	if !ok {
		m.setUser(nil)
		return
	}

	u, err := m.dir.FindByID(ctx, id)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		// 引用失效（用户不存在或已停用）：清掉脏数据
		m.log.Info("session restore: stale user reference", zap.String("user_id", id), zap.Error(err))
		if e := m.store.ClearUserID(ctx); e != nil {
			m.log.Warn("session restore: clear stale reference failed", zap.Error(e))
		}
		m.setUser(nil)
		return
	case err != nil:
		m.log.Warn("session restore: directory unavailable", zap.String("user_id", id), zap.Error(err))
		m.setUser(nil)
		return
	}

	if e := m.store.TouchLastLogin(ctx, u.ID, m.now()); e != nil {
		m.log.Warn("session restore: update last login failed", zap.String("user_id", u.ID), zap.Error(e))
	}
	m.setUser(&u)
	m.log.Debug("session restored", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
}

// Login 成功返回 nil；失败返回 *domain.AuthError，同时写入会话 Error，当前用户不变。
func (m *Manager) Login(ctx context.Context, username string) error {
	m.ops.Lock()
	defer m.ops.Unlock()
	return m.login(ctx, username)
}

func (m *Manager) login(ctx context.Context, username string) error {
	release := m.beginLoading()
	defer release()

	name := strings.TrimSpace(username)
	if name == "" {
		return m.fail(domain.KindValidation, domain.MsgUsernameRequired, nil)
	}

	u, err := m.dir.FindByUsername(ctx, name)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return m.fail(domain.KindNotFound, domain.MsgUserNotFound, err)
	case err != nil:
		m.log.Error("login: directory lookup failed", zap.String("username", name), zap.Error(err))
		return m.fail(domain.KindStorage, domain.MsgLoginFailed, err)
	}
	if !u.IsActive {
		return m.fail(domain.KindInactiveAccount, domain.MsgAccountInactive, nil)
	}

	// 先写 last_login 再写 auth_user：任一步失败都不会留下指向新用户的会话键
	if err := m.store.TouchLastLogin(ctx, u.ID, m.now()); err != nil {
		m.log.Error("login: update last login failed", zap.String("user_id", u.ID), zap.Error(err))
		return m.fail(domain.KindStorage, domain.MsgLoginFailed, err)
	}
	if err := m.store.SaveUserID(ctx, u.ID); err != nil {
		m.log.Error("login: persist session failed", zap.String("user_id", u.ID), zap.Error(err))
		return m.fail(domain.KindStorage, domain.MsgLoginFailed, err)
	}

	m.mu.Lock()
	m.user = &u
	m.errMsg = ""
	m.version++
	m.mu.Unlock()

	m.log.Info("login", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return nil
}

// Logout 总是结束于未登录；删除键失败只记日志
func (m *Manager) Logout(ctx context.Context) {
	m.ops.Lock()
	defer m.ops.Unlock()
	m.logout(ctx)
}

func (m *Manager) logout(ctx context.Context) {
	release := m.beginLoading()
	defer release()

	if err := m.store.ClearUserID(ctx); err != nil {
		m.log.Warn("logout: clear session failed", zap.Error(err))
	}
	if u := m.CurrentUser(); u != nil {
		m.log.Info("logout", zap.String("user_id", u.ID))
	}
	m.setUser(nil)
}

// SwitchUser 先登出再登录，不具备原子性：登录失败时停留在未登录状态。
func (m *Manager) SwitchUser(ctx context.Context, username string) error {
	m.ops.Lock()
	defer m.ops.Unlock()
	m.logout(ctx)
	return m.login(ctx, username)
}

// GetLastLogin 纯读取；任何读取/解析错误都视为“无记录”
func (m *Manager) GetLastLogin(ctx context.Context, userID string) (time.Time, bool) {
	t, ok, err := m.store.LastLogin(ctx, userID)
	if err != nil {
		m.log.Debug("last login lookup failed", zap.String("user_id", userID), zap.Error(err))
		return time.Time{}, false
	}
	return t, ok
}
