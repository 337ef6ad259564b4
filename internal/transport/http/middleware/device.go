package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"freshtrack/internal/core/auth"
	resp "freshtrack/internal/transport/http/response"
)

const KeyDeviceID = "deviceId"

// DeviceAuth 校验设备令牌（Bearer），写入 deviceId
func DeviceAuth(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing device token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid device token"))
			return
		}
		c.Set(KeyDeviceID, claims.DeviceID)
		c.Next()
	}
}
