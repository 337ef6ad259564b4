package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshtrack/internal/core/kvstore"
	"freshtrack/internal/domain"
	"freshtrack/internal/feature/user"
	"freshtrack/internal/repo"
)

var errBackend = errors.New("backend down")

// flakyKV 可按操作注入失败
type flakyKV struct {
	kvstore.Store
	mu                       sync.Mutex
	failGet, failSet, failRm bool
	// failSetKey 非空时只让包含该片段的键写入失败
	failSetKey string
}

func (f *flakyKV) set(get, set, rm bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet, f.failSet, f.failRm = get, set, rm
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return "", false, errBackend
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key, val string) error {
	f.mu.Lock()
	fail := f.failSet || (f.failSetKey != "" && strings.Contains(key, f.failSetKey))
	f.mu.Unlock()
	if fail {
		return errBackend
	}
	return f.Store.Set(ctx, key, val)
}

func (f *flakyKV) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	fail := f.failRm
	f.mu.Unlock()
	if fail {
		return errBackend
	}
	return f.Store.Remove(ctx, key)
}

// brokenDirectory 模拟目录后端不可用
type brokenDirectory struct{}

func (brokenDirectory) FindByUsername(context.Context, string) (domain.User, error) {
	return domain.User{}, domain.ErrDirectoryUnavailable
}
func (brokenDirectory) FindByID(context.Context, string) (domain.User, error) {
	return domain.User{}, domain.ErrDirectoryUnavailable
}
func (brokenDirectory) ListActive(context.Context) ([]domain.User, error) {
	return nil, domain.ErrDirectoryUnavailable
}

type fixture struct {
	kv    *flakyKV
	store *Store
	dir   domain.UserDirectory
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := append(user.Roster(), domain.User{ID: "9", Username: "aushilfe", Role: domain.RoleKitchen})
	kv := &flakyKV{Store: kvstore.NewMemory()}
	return &fixture{
		kv:    kv,
		store: NewStore(kv, ""),
		dir:   repo.NewStaticDirectory(users),
		now:   time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC),
	}
}

func (f *fixture) manager() *Manager {
	return NewManager(f.dir, f.store, Options{Now: func() time.Time { return f.now }})
}

func (f *fixture) raw(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := f.kv.Store.Get(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

func TestManager_InitialState(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	s := m.Snapshot()
	assert.Equal(t, StateUninitialized, s.State)
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, m.CurrentUser())
}

func TestManager_RestoreWithoutSession(t *testing.T) {
	f := newFixture(t)
	m := Open(context.Background(), f.dir, f.store, Options{})
	s := m.Snapshot()
	assert.Equal(t, StateUnauthenticated, s.State)
	assert.False(t, s.IsLoading)
	assert.Empty(t, s.Error)
}

func TestManager_LoginPersistsAndStamps(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	live := NewManager(f.dir, f.store, Options{})
	require.NoError(t, live.Login(ctx, "kasse"))
	after := time.Now().Add(time.Second)
	at, ok := live.GetLastLogin(ctx, "2")
	require.True(t, ok)
	assert.True(t, at.After(before) && at.Before(after), at)

	require.NoError(t, m.Login(ctx, "KUECHE"))
	s := m.Snapshot()
	require.NotNil(t, s.User)
	assert.Equal(t, domain.RoleKitchen, s.User.Role)
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, StateAuthenticated, s.State)
	assert.False(t, s.IsLoading)

	id, ok := f.raw(t, "restaurant_auth_user")
	require.True(t, ok)
	assert.Equal(t, "1", id)

	stamp, ok := f.raw(t, "restaurant_last_login_1")
	require.True(t, ok)
	assert.Equal(t, "2025-03-14T09:26:53.589Z", stamp)

	got, ok := m.GetLastLogin(ctx, "1")
	require.True(t, ok)
	assert.True(t, got.Equal(f.now))
}

func TestManager_LoginValidation(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	require.NoError(t, m.Login(ctx, "kasse"))
	v := m.Snapshot().Version

	for _, name := range []string{"", "   ", "\t\n"} {
		err := m.Login(ctx, name)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Equal(t, "2", m.CurrentUser().ID, "current user must be unchanged")
	}
	s := m.Snapshot()
	assert.Equal(t, domain.MsgUsernameRequired, s.Error)
	assert.Greater(t, s.Version, v)
}

func TestManager_LoginUnknownAndInactive(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	err := m.Login(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.MsgUserNotFound, m.Snapshot().Error)
	assert.False(t, m.IsAuthenticated())

	// 停用账号对目录不可见，表现为“未找到”
	err = m.Login(ctx, "aushilfe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, ok := f.raw(t, "restaurant_auth_user")
	assert.False(t, ok)
}

func TestManager_LoginInactiveFromDirectory(t *testing.T) {
	f := newFixture(t)
	// 目录返回了一个停用用户（例如缓存过期的目录实现）
	inactive := user.Roster()[0]
	inactive.IsActive = false
	m := NewManager(staticUser{inactive}, f.store, Options{})

	err := m.Login(context.Background(), "kueche")
	assert.ErrorIs(t, err, domain.ErrInactiveAccount)
	assert.Equal(t, domain.MsgAccountInactive, m.Snapshot().Error)
	assert.False(t, m.IsAuthenticated())
}

type staticUser struct{ u domain.User }

func (s staticUser) FindByUsername(context.Context, string) (domain.User, error) { return s.u, nil }
func (s staticUser) FindByID(context.Context, string) (domain.User, error)       { return s.u, nil }
func (s staticUser) ListActive(context.Context) ([]domain.User, error)           { return nil, nil }

func TestManager_LoginStorageFailure(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	f.kv.set(false, true, false)

	err := m.Login(ctx, "kueche")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, domain.MsgLoginFailed, m.Snapshot().Error)
	assert.False(t, m.IsAuthenticated())
}

func TestManager_LoginStampFailureKeepsPreviousSession(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	require.NoError(t, m.Login(ctx, "kueche"))

	f.kv.mu.Lock()
	f.kv.failSetKey = "last_login_"
	f.kv.mu.Unlock()

	err := m.Login(ctx, "kasse")
	assert.ErrorIs(t, err, domain.ErrStorage)
	require.NotNil(t, m.CurrentUser())
	assert.Equal(t, "1", m.CurrentUser().ID)

	id, ok := f.raw(t, "restaurant_auth_user")
	require.True(t, ok)
	assert.Equal(t, "1", id)

	// 重新打开同一存储仍是原用户
	reopened := Open(ctx, f.dir, f.store, Options{})
	require.NotNil(t, reopened.CurrentUser())
	assert.Equal(t, "kueche", reopened.CurrentUser().Username)
}

func TestManager_LoginDirectoryUnavailable(t *testing.T) {
	f := newFixture(t)
	m := NewManager(brokenDirectory{}, f.store, Options{})

	err := m.Login(context.Background(), "kueche")
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, domain.ErrDirectoryUnavailable)
}

func TestManager_SuccessfulLoginClearsError(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	require.Error(t, m.Login(ctx, "ghost"))
	require.NotEmpty(t, m.Snapshot().Error)
	require.NoError(t, m.Login(ctx, "kueche"))
	assert.Empty(t, m.Snapshot().Error)
}

func TestManager_ClearError(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	_ = m.Login(context.Background(), "")
	v := m.Snapshot().Version

	m.ClearError()
	s := m.Snapshot()
	assert.Empty(t, s.Error)
	assert.Greater(t, s.Version, v)

	m.ClearError()
	assert.Equal(t, s.Version, m.Snapshot().Version, "no-op clear keeps version")
}

func TestManager_Logout(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	require.NoError(t, m.Login(ctx, "verwalter"))

	m.Logout(ctx)
	assert.Nil(t, m.CurrentUser())
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, StateUnauthenticated, m.Snapshot().State)
	_, ok := f.raw(t, "restaurant_auth_user")
	assert.False(t, ok)

	// 最近登录时间不随登出删除
	_, ok = f.raw(t, "restaurant_last_login_3")
	assert.True(t, ok)
}

func TestManager_LogoutSwallowsStorageErrors(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	require.NoError(t, m.Login(ctx, "verwalter"))

	f.kv.set(false, false, true)
	m.Logout(ctx)
	assert.Nil(t, m.CurrentUser())
	assert.False(t, m.IsAuthenticated())
	assert.False(t, m.Snapshot().IsLoading)
}

func TestManager_RestoreIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveUserID(ctx, "2"))

	m := f.manager()
	m.Restore(ctx)
	first := m.CurrentUser()
	m.Restore(ctx)
	second := m.CurrentUser()

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, domain.RoleCashier, second.Role)

	stamp, ok := f.raw(t, "restaurant_last_login_2")
	require.True(t, ok)
	assert.Equal(t, "2025-03-14T09:26:53.589Z", stamp)
}

func TestManager_RestoreDropsStaleReference(t *testing.T) {
	for _, id := range []string{"404", "9"} {
		t.Run(id, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.store.SaveUserID(ctx, id))

			m := Open(ctx, f.dir, f.store, Options{})
			assert.False(t, m.IsAuthenticated())
			_, ok := f.raw(t, "restaurant_auth_user")
			assert.False(t, ok)
		})
	}
}

func TestManager_RestoreKeepsKeyWhenDirectoryDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveUserID(ctx, "1"))

	m := Open(ctx, brokenDirectory{}, f.store, Options{})
	assert.False(t, m.IsAuthenticated())
	id, ok := f.raw(t, "restaurant_auth_user")
	assert.True(t, ok)
	assert.Equal(t, "1", id)
}

func TestManager_RestoreReadFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.kv.set(true, false, false)
	m := Open(context.Background(), f.dir, f.store, Options{})
	s := m.Snapshot()
	assert.Equal(t, StateUnauthenticated, s.State)
	assert.Empty(t, s.Error)
}

func TestManager_SwitchUser(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	require.NoError(t, m.Login(ctx, "kueche"))

	require.NoError(t, m.SwitchUser(ctx, "kasse"))
	assert.Equal(t, domain.RoleCashier, m.CurrentUser().Role)
	id, _ := f.raw(t, "restaurant_auth_user")
	assert.Equal(t, "2", id)
}

func TestManager_SwitchUserFailureLeavesSignedOut(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	require.NoError(t, m.Login(ctx, "kueche"))

	err := m.SwitchUser(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, m.IsAuthenticated())
	_, ok := f.raw(t, "restaurant_auth_user")
	assert.False(t, ok)
}

func TestManager_PermissionChecks(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	assert.False(t, m.HasPermission(domain.ResourceDashboard, domain.ActionView))
	assert.False(t, m.HasRole(domain.RoleKitchen))

	require.NoError(t, m.Login(ctx, "kueche"))
	assert.True(t, m.HasRole(domain.RoleKitchen))
	assert.True(t, m.HasPermission(domain.ResourceDashboard, domain.ActionView))
	assert.True(t, m.HasPermission(domain.ResourceScanner, domain.ActionCreate))
	assert.False(t, m.HasPermission(domain.ResourceUsers, domain.ActionView))

	require.NoError(t, m.SwitchUser(ctx, "verwalter"))
	assert.True(t, m.HasPermission(domain.ResourceUsers, domain.ActionView))
}

func TestManager_GetLastLoginUnknownOrCorrupt(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	_, ok := m.GetLastLogin(ctx, "1")
	assert.False(t, ok)

	require.NoError(t, f.kv.Set(ctx, "restaurant_last_login_1", "yesterday"))
	_, ok = m.GetLastLogin(ctx, "1")
	assert.False(t, ok)

	f.kv.set(true, false, false)
	_, ok = m.GetLastLogin(ctx, "1")
	assert.False(t, ok)
}

func TestManager_SnapshotIsolation(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	require.NoError(t, m.Login(context.Background(), "kueche"))

	u := m.CurrentUser()
	u.Role = domain.RoleManager
	u.Permissions = nil
	assert.Equal(t, domain.RoleKitchen, m.CurrentUser().Role)
	assert.True(t, m.HasPermission(domain.ResourceInventory, domain.ActionView))
}

// 阻塞的目录：用来观察 I/O 期间的 Loading 状态
type gatedDirectory struct {
	domain.UserDirectory
	entered chan struct{}
	release chan struct{}
}

func (g gatedDirectory) FindByUsername(ctx context.Context, name string) (domain.User, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.UserDirectory.FindByUsername(ctx, name)
}

func TestManager_ReadersSeeLoadingDuringIO(t *testing.T) {
	f := newFixture(t)
	g := gatedDirectory{UserDirectory: f.dir, entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(g, f.store, Options{})

	done := make(chan error, 1)
	go func() { done <- m.Login(context.Background(), "kasse") }()

	<-g.entered
	s := m.Snapshot()
	assert.True(t, s.IsLoading)
	assert.Equal(t, StateLoading, s.State)
	close(g.release)

	require.NoError(t, <-done)
	s = m.Snapshot()
	assert.False(t, s.IsLoading)
	assert.Equal(t, StateAuthenticated, s.State)
}

func TestManager_ConcurrentMutatorsAreSerialized(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	names := []string{"kueche", "kasse", "verwalter"}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 3 {
				m.Logout(ctx)
				return
			}
			_ = m.SwitchUser(ctx, names[i%3])
		}(i)
	}
	wg.Wait()

	// 内存与持久化必须一致
	s := m.Snapshot()
	id, ok := f.raw(t, "restaurant_auth_user")
	if s.User == nil {
		assert.False(t, ok)
	} else {
		assert.True(t, ok)
		assert.Equal(t, s.User.ID, id)
	}
	assert.False(t, s.IsLoading)
}
