package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"freshtrack/internal/core/auth"
	"freshtrack/internal/domain"
	"freshtrack/internal/guard"
	"freshtrack/internal/service"
	"freshtrack/internal/session"
	"freshtrack/internal/transport/http/ez"
	mdw "freshtrack/internal/transport/http/middleware"
)

type SessionView struct {
	State           string       `json:"state"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	IsLoading       bool         `json:"isLoading"`
	Error           string       `json:"error,omitempty"`
	User            *domain.User `json:"user,omitempty"`
}

func NewSessionView(s session.Snapshot) SessionView {
	return SessionView{
		State:           s.State.String(),
		IsAuthenticated: s.IsAuthenticated(),
		IsLoading:       s.IsLoading,
		Error:           s.Error,
		User:            s.User,
	}
}

type UserSummary struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"displayName"`
	Role        domain.Role `json:"role"`
	RoleName    string      `json:"roleName"`
}

func summarize(u domain.User) UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		RoleName:    u.Role.DisplayName(),
	}
}

type SessionHandler struct {
	jwt      *auth.JWTer
	sessions *service.SessionService
	signedIn *guard.Guard
}

func NewSessionHandler(j *auth.JWTer, sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{
		jwt:      j,
		sessions: sessions,
		signedIn: guard.New(guard.Requirement{}, guard.Options{ShowLogin: true}),
	}
}

// MountPublic 无需设备令牌
func (h *SessionHandler) MountPublic(api *gin.RouterGroup) {
	type deviceOut struct {
		DeviceID string `json:"deviceId"`
		Token    string `json:"token"`
	}
	ez.RegisterAction(ez.New(api), ez.Action[struct{}, deviceOut]{
		Method: "POST",
		Path:   "/devices",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (deviceOut, error) {
			id, tok, err := h.jwt.NewDevice()
			if err != nil {
				return deviceOut{}, ez.Internal("issue device token failed", err)
			}
			return deviceOut{DeviceID: id, Token: tok}, nil
		},
	})
}

// MountDevice 需挂在 DeviceAuth + Session 之后；loginLimit 只作用于登录/切换
func (h *SessionHandler) MountDevice(dev *gin.RouterGroup, loginLimit ...gin.HandlerFunc) {
	e := ez.New(dev)
	limited := ez.New(dev.Group("", loginLimit...))

	type usernameIn struct {
		Username string `json:"username"`
	}

	ez.RegisterAction(e, ez.Action[struct{}, SessionView]{
		Method: "GET",
		Path:   "/session",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (SessionView, error) {
			return NewSessionView(mdw.SessionFrom(c).Snapshot()), nil
		},
	})

	ez.RegisterAction(limited, ez.Action[usernameIn, SessionView]{
		Method: "POST",
		Path:   "/session/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *usernameIn) (SessionView, error) {
			m := mdw.SessionFrom(c)
			if err := h.sessions.Login(c.Request.Context(), m, in.Username); err != nil {
				return SessionView{}, authErr(err)
			}
			return NewSessionView(m.Snapshot()), nil
		},
	})

	ez.RegisterAction(limited, ez.Action[usernameIn, SessionView]{
		Method: "POST",
		Path:   "/session/switch",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *usernameIn) (SessionView, error) {
			m := mdw.SessionFrom(c)
			if err := h.sessions.SwitchUser(c.Request.Context(), m, in.Username); err != nil {
				return SessionView{}, authErr(err)
			}
			return NewSessionView(m.Snapshot()), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, SessionView]{
		Method: "POST",
		Path:   "/session/logout",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (SessionView, error) {
			m := mdw.SessionFrom(c)
			h.sessions.Logout(c.Request.Context(), m)
			return NewSessionView(m.Snapshot()), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, SessionView]{
		Method: "DELETE",
		Path:   "/session/error",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (SessionView, error) {
			m := mdw.SessionFrom(c)
			m.ClearError()
			return NewSessionView(m.Snapshot()), nil
		},
	})

}

// MountRoster 登录页的用户选择列表与当前用户
func (h *SessionHandler) MountRoster(dev *gin.RouterGroup) {
	e := ez.New(dev)

	ez.RegisterAction(e, ez.Action[struct{}, []UserSummary]{
		Method: "GET",
		Path:   "/users",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]UserSummary, error) {
			users, err := h.sessions.Directory().ListActive(c.Request.Context())
			if err != nil {
				return nil, directoryErr(err)
			}
			out := make([]UserSummary, 0, len(users))
			for _, u := range users {
				out = append(out, summarize(u))
			}
			return out, nil
		},
	})

	type meOut struct {
		User      domain.User `json:"user"`
		RoleName  string      `json:"roleName"`
		LastLogin *time.Time  `json:"lastLogin,omitempty"`
	}
	ez.RegisterAction(e, ez.Action[struct{}, meOut]{
		Method: "GET",
		Path:   "/me",
		Binder: ez.BindNone,
		Guard:  h.signedIn,
		Handler: func(c *gin.Context, _ *struct{}) (meOut, error) {
			m := mdw.SessionFrom(c)
			u := m.CurrentUser()
			if u == nil {
				return meOut{}, ez.Unauthorized("Anmeldung erforderlich")
			}
			out := meOut{User: *u, RoleName: u.Role.DisplayName()}
			if t, ok := h.sessions.LastLogin(c.Request.Context(), m, u.ID); ok {
				out.LastLogin = &t
			}
			return out, nil
		},
	})
}
