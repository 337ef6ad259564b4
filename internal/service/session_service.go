package service

import (
	"context"
	"errors"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"freshtrack/internal/core/kvstore"
	"freshtrack/internal/domain"
	"freshtrack/internal/session"
)

var ErrMissingDevice = errors.New("missing device id")

var loginTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "freshtrack_login_total", Help: "Login attempts by outcome"},
	[]string{"outcome"},
)

func init() { prometheus.MustRegister(loginTotal) }

type SessionOptions struct {
	KeyPrefix   string
	IOTimeout   time.Duration // 0 表示不加超时
	MaxSessions int
	Log         *zap.Logger
	Now         func() time.Time
}

// SessionService 每个设备一个 session.Manager；LRU 淘汰后下次访问重新 Restore。
type SessionService struct {
	dir  domain.UserDirectory
	kv   kvstore.Store
	opt  SessionOptions
	log  *zap.Logger
	open singleflight.Group
	mgrs *lru.Cache[string, *session.Manager]
}

func NewSessionService(dir domain.UserDirectory, kv kvstore.Store, opt SessionOptions) (*SessionService, error) {
	if opt.MaxSessions <= 0 {
		opt.MaxSessions = 1024
	}
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	c, err := lru.New[string, *session.Manager](opt.MaxSessions)
	if err != nil {
		return nil, err
	}
	return &SessionService{dir: dir, kv: kv, opt: opt, log: opt.Log, mgrs: c}, nil
}

func (s *SessionService) Directory() domain.UserDirectory { return s.dir }

// WithIOTimeout 给存储 I/O 加超时，避免后端卡死时请求一直挂起
func (s *SessionService) WithIOTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opt.IOTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opt.IOTimeout)
}

// Session 取设备会话；首次访问时创建并 Restore
func (s *SessionService) Session(ctx context.Context, deviceID string) (*session.Manager, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, ErrMissingDevice
	}
	if m, ok := s.mgrs.Get(deviceID); ok {
		return m, nil
	}

	// 同一设备并发首访合并为一次 Restore，不同设备互不阻塞
	v, _, _ := s.open.Do(deviceID, func() (any, error) {
		if m, ok := s.mgrs.Get(deviceID); ok {
			return m, nil
		}
		// 共享的 Restore 不跟随某个请求取消，只受 IOTimeout 约束
		ctx, cancel := s.WithIOTimeout(context.WithoutCancel(ctx))
		defer cancel()

		store := session.NewStore(kvstore.WithPrefix(s.kv, kvstore.DeviceNamespace(deviceID)), s.opt.KeyPrefix)
		m := session.Open(ctx, s.dir, store, session.Options{
			Log: s.log.With(zap.String("device_id", deviceID)),
			Now: s.opt.Now,
		})
		s.mgrs.Add(deviceID, m)
		return m, nil
	})
	return v.(*session.Manager), nil
}

func (s *SessionService) Login(ctx context.Context, m *session.Manager, username string) error {
	ctx, cancel := s.WithIOTimeout(ctx)
	defer cancel()
	err := m.Login(ctx, username)
	observeLogin(err)
	return err
}

func (s *SessionService) SwitchUser(ctx context.Context, m *session.Manager, username string) error {
	ctx, cancel := s.WithIOTimeout(ctx)
	defer cancel()
	err := m.SwitchUser(ctx, username)
	observeLogin(err)
	return err
}

func (s *SessionService) Logout(ctx context.Context, m *session.Manager) {
	ctx, cancel := s.WithIOTimeout(ctx)
	defer cancel()
	m.Logout(ctx)
}

func (s *SessionService) LastLogin(ctx context.Context, m *session.Manager, userID string) (time.Time, bool) {
	ctx, cancel := s.WithIOTimeout(ctx)
	defer cancel()
	return m.GetLastLogin(ctx, userID)
}

// Forget 丢弃内存中的会话（不动存储）
func (s *SessionService) Forget(deviceID string) { s.mgrs.Remove(deviceID) }

func (s *SessionService) Len() int { return s.mgrs.Len() }

func observeLogin(err error) {
	outcome := "success"
	if err != nil {
		outcome = domain.KindOf(err).String()
	}
	loginTotal.WithLabelValues(outcome).Inc()
}
