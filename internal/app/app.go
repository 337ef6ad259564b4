// Package app 组装两个进程（api / admin）共用的依赖
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"freshtrack/internal/core/auth"
	"freshtrack/internal/core/cache"
	"freshtrack/internal/core/config"
	"freshtrack/internal/core/database"
	"freshtrack/internal/core/kvstore"
	"freshtrack/internal/domain"
	"freshtrack/internal/feature/inventory"
	"freshtrack/internal/feature/user"
	"freshtrack/internal/repo"
	"freshtrack/internal/service"
)

type App struct {
	Cfg       *config.Config
	Log       *zap.Logger
	DB        *gorm.DB
	RDB       *redis.Client // session.store=memory 时为 nil
	JWT       *auth.JWTer
	Sessions  *service.SessionService
	Users     *service.UserService
	Inventory *inventory.Service
}

// Build 打开数据库/Redis 并组装服务；返回的 cleanup 负责关闭连接
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, func(), error) {
	a := &App{Cfg: cfg, Log: log}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Log:                log,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("open db: %w", err)
	}
	a.DB = db
	if sqlDB, err := db.DB(); err == nil {
		closers = append(closers, func() { _ = sqlDB.Close() })
	}
	log.Info("database connected",
		zap.String("driver", cfg.DB.Driver),
		zap.String("dsn", database.MaskDSN(cfg.DB.DSN)))

	dir, err := a.directory(ctx, db)
	if err != nil {
		return nil, cleanup, err
	}

	kv, c, err := a.storage(ctx, &closers)
	if err != nil {
		return nil, cleanup, err
	}

	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	a.Sessions, err = service.NewSessionService(dir, kv, service.SessionOptions{
		KeyPrefix:   cfg.Session.KeyPrefix,
		IOTimeout:   cfg.Session.IOTimeout(),
		MaxSessions: cfg.Session.MaxSessions,
		Log:         log.Named("session"),
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("session service: %w", err)
	}
	a.Users = service.NewUserService(a.Sessions)

	inv := inventory.NewRepo(db)
	if cfg.DB.AutoMigrate {
		if err := inv.Migrate(); err != nil {
			return nil, cleanup, fmt.Errorf("migrate inventory: %w", err)
		}
	}
	a.Inventory = inventory.NewService(inv, c, cfg.Cache.DashboardTTL(), log.Named("inventory"))
	return a, cleanup, nil
}

// directory static 直接用内置名册；database 时迁移并把名册写入 users 表
func (a *App) directory(ctx context.Context, db *gorm.DB) (domain.UserDirectory, error) {
	if a.Cfg.Directory.Source != "database" {
		return repo.NewStaticDirectory(user.Roster()), nil
	}
	r := repo.NewUserRepo(db)
	if a.Cfg.DB.AutoMigrate {
		if err := r.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate users: %w", err)
		}
	}
	if err := r.Seed(ctx, user.Roster()); err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	a.Log.Info("user directory seeded", zap.Int("users", len(user.Roster())))
	return r, nil
}

// storage 会话 KV 与看板缓存；memory 模式下不连 Redis，缓存直接关闭
func (a *App) storage(ctx context.Context, closers *[]func()) (kvstore.Store, *cache.Cache, error) {
	if a.Cfg.Session.Store == "memory" {
		a.Log.Warn("session store is in-memory; sessions are lost on restart")
		return kvstore.NewMemory(), nil, nil
	}
	rdb := cache.NewClient(a.Cfg.Redis.Addr, a.Cfg.Redis.Password, a.Cfg.Redis.DB)
	*closers = append(*closers, func() { _ = rdb.Close() })

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("redis ping %s: %w", a.Cfg.Redis.Addr, err)
	}
	a.RDB = rdb
	return kvstore.NewRedis(rdb), cache.New(rdb, a.Cfg.Cache.Prefix), nil
}
