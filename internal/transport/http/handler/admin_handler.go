package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"freshtrack/internal/domain"
	"freshtrack/internal/guard"
	"freshtrack/internal/service"
	"freshtrack/internal/transport/http/ez"
	mdw "freshtrack/internal/transport/http/middleware"
)

// AdminHandler 管理端接口；分组已要求 manager 角色
type AdminHandler struct {
	users *service.UserService
}

func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin)

	type row struct {
		UserSummary
		Email       string     `json:"email"`
		Permissions int        `json:"permissions"`
		LastLogin   *time.Time `json:"lastLogin,omitempty"`
	}
	ez.RegisterAction(e, ez.Action[struct{}, []row]{
		Method: "GET",
		Path:   "/users",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]row, error) {
			users, err := h.users.Roster(c.Request.Context(), mdw.SessionFrom(c))
			if err != nil {
				return nil, directoryErr(err)
			}
			out := make([]row, 0, len(users))
			for _, u := range users {
				out = append(out, row{
					UserSummary: summarize(u),
					Email:       u.Email,
					Permissions: len(u.Permissions),
					LastLogin:   u.LastLogin,
				})
			}
			return out, nil
		},
	})

	type lastLoginOut struct {
		UserID    string     `json:"userId"`
		LastLogin *time.Time `json:"lastLogin"`
	}
	ez.RegisterAction(e, ez.Action[struct{}, lastLoginOut]{
		Method: "GET",
		Path:   "/users/:id/last-login",
		Binder: ez.BindNone,
		Guard:  guard.New(guard.RequirePermission(domain.ResourceUsers, domain.ActionView), guard.Options{}),
		Handler: func(c *gin.Context, _ *struct{}) (lastLoginOut, error) {
			id := c.Param("id")
			if id == "" {
				return lastLoginOut{}, ez.BadRequest("missing id")
			}
			u, err := h.users.Get(c.Request.Context(), mdw.SessionFrom(c), id)
			if err != nil {
				return lastLoginOut{}, directoryErr(err)
			}
			return lastLoginOut{UserID: u.ID, LastLogin: u.LastLogin}, nil
		},
	})
}
