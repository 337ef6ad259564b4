package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"freshtrack/internal/core/auth"
	"freshtrack/internal/core/server"
	"freshtrack/internal/service"
	"freshtrack/internal/transport/http/handler"
	mdw "freshtrack/internal/transport/http/middleware"
)

type Deps struct {
	Log          *zap.Logger
	JWT          *auth.JWTer
	Sessions     *service.SessionService
	Modules      *Registry // 可为 nil
	AllowOrigins []string
}

func baseEngine(d Deps) *gin.Engine {
	r := server.NewRouter(d.Log, server.Options{AllowOrigins: d.AllowOrigins})
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := baseEngine(d)

	api := r.Group("/api/v1")
	sessions := handler.NewSessionHandler(d.JWT, d.Sessions)

	// 公共（无需设备令牌）
	sessions.MountPublic(api)

	// 设备分组：令牌 → 会话
	dev := api.Group("")
	dev.Use(mdw.DeviceAuth(d.JWT), mdw.Session(d.Sessions))
	sessions.MountDevice(dev, mdw.RateLimitPerIP(2, 10))
	sessions.MountRoster(dev)

	// 功能模块（各自带访问控制）
	if d.Modules != nil {
		d.Modules.MountAllAPI(dev)
	}
	return r
}
