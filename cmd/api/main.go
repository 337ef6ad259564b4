package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"freshtrack/internal/app"
	"freshtrack/internal/core/config"
	"freshtrack/internal/core/logger"
	"freshtrack/internal/core/server"
	"freshtrack/internal/transport/http/handler"
	"freshtrack/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, closeApp, err := app.Build(context.Background(), cfg, log)
	defer closeApp()
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}

	// 路由（门店终端）
	r := router.NewAPIEngine(router.Deps{
		Log:          log,
		JWT:          a.JWT,
		Sessions:     a.Sessions,
		Modules:      router.NewRegistry(handler.NewInventoryHandler(a.Inventory)),
		AllowOrigins: cfg.CORS.AllowOrigins,
	})

	h := cfg.App.HTTP
	srv := server.BuildServer(
		server.Addr(h.Host, h.Port), r,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)

	base := server.HumanURL(h.Host, h.Port)
	log.Info("api starting",
		zap.String("open", base),
		zap.String("health", base+"/health"),
		zap.String("api_v1", base+"/api/v1"),
		zap.String("session_store", cfg.Session.Store),
		zap.String("directory", cfg.Directory.Source),
	)
	if err := server.Run(srv, log, "api", 10*time.Second); err != nil {
		log.Error("api exited", zap.Error(err))
	}
}
