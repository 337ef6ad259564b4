package router

import (
	"github.com/gin-gonic/gin"

	"freshtrack/internal/domain"
	"freshtrack/internal/guard"
	"freshtrack/internal/transport/http/handler"
	mdw "freshtrack/internal/transport/http/middleware"
)

// NewAdminEngine 管理端。会话接口任何人可用（用来切换到 manager），其余模块要求 manager 角色。
func NewAdminEngine(d Deps) *gin.Engine {
	r := baseEngine(d)

	admin := r.Group("/admin/v1")
	sessions := handler.NewSessionHandler(d.JWT, d.Sessions)
	sessions.MountPublic(admin)

	dev := admin.Group("")
	dev.Use(mdw.DeviceAuth(d.JWT), mdw.Session(d.Sessions))
	sessions.MountDevice(dev, mdw.RateLimitPerIP(2, 10))

	managed := dev.Group("")
	managed.Use(mdw.Guard(guard.New(guard.RequireRole(domain.RoleManager), guard.Options{ShowLogin: true})))
	if d.Modules != nil {
		d.Modules.MountAllAdmin(managed)
	}
	return r
}
