package domain

import (
	"context"
	"strings"
	"time"
)

// Role 角色（封闭集合）
type Role string

const (
	RoleKitchen Role = "kitchen"
	RoleCashier Role = "cashier"
	RoleManager Role = "manager"
)

// Roles 按固定顺序返回全部角色
func Roles() []Role { return []Role{RoleKitchen, RoleCashier, RoleManager} }

var roleDisplayNames = map[Role]string{
	RoleKitchen: "Küche",
	RoleCashier: "Kasse",
	RoleManager: "Verwaltung",
}

func (r Role) Valid() bool {
	_, ok := roleDisplayNames[r]
	return ok
}

// DisplayName 角色展示名，未知角色原样返回
func (r Role) DisplayName() string {
	if n, ok := roleDisplayNames[r]; ok {
		return n
	}
	return string(r)
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

type User struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Role        Role         `json:"role"`
	DisplayName string       `json:"displayName"`
	Email       string       `json:"email"`
	CreatedAt   time.Time    `json:"createdAt"`
	LastLogin   *time.Time   `json:"lastLogin,omitempty"`
	IsActive    bool         `json:"isActive"`
	Permissions []Permission `json:"permissions"`
}

func (u *User) HasRole(r Role) bool { return u != nil && u.Role == r }

// HasPermission action 为 full 的权限覆盖同一资源上的任意动作
func (u *User) HasPermission(res Resource, act Action) bool {
	if u == nil {
		return false
	}
	for _, p := range u.Permissions {
		if p.Grants(res, act) {
			return true
		}
	}
	return false
}

// Clone 深拷贝，避免调用方改动共享的名册
func (u User) Clone() User {
	out := u
	if u.LastLogin != nil {
		t := *u.LastLogin
		out.LastLogin = &t
	}
	out.Permissions = append([]Permission(nil), u.Permissions...)
	return out
}

// UserDirectory 只读用户目录。
// 停用用户返回 ErrUserInactive（同时满足 errors.Is(err, ErrUserNotFound)）。
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	ListActive(ctx context.Context) ([]User, error)
}
