package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"freshtrack/internal/service"
	"freshtrack/internal/session"
	resp "freshtrack/internal/transport/http/response"
)

const KeySession = "session"

// Session 按 deviceId 取出会话（首次访问时从存储恢复）；需挂在 DeviceAuth 之后
func Session(svc *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := svc.Session(c.Request.Context(), c.GetString(KeyDeviceID))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, err.Error()))
			return
		}
		c.Set(KeySession, m)
		c.Next()
	}
}

func SessionFrom(c *gin.Context) *session.Manager {
	v, ok := c.Get(KeySession)
	if !ok {
		return nil
	}
	m, _ := v.(*session.Manager)
	return m
}
