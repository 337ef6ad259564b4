package user

import (
	"time"

	"freshtrack/internal/domain"
)

type UserModel struct {
	ID          string `gorm:"primaryKey;type:varchar(32)"`
	Username    string `gorm:"uniqueIndex;size:64;not null"`
	Role        string `gorm:"size:16;not null"`
	DisplayName string `gorm:"size:64;not null"`
	Email       string `gorm:"size:255"`
	IsActive    bool   `gorm:"not null"` // 不设 default，否则 false 会被当作零值替换
	// 名册顺序
	Position int `gorm:"not null;default:0"`

	Permissions []PermissionModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

type PermissionModel struct {
	UserID       string `gorm:"primaryKey;type:varchar(32)"`
	PermissionID string `gorm:"primaryKey;size:64"`
	Name         string `gorm:"size:128"`
	Description  string `gorm:"size:255"`
	Resource     string `gorm:"size:32;not null"`
	Action       string `gorm:"size:16;not null"`
	Position     int    `gorm:"not null;default:0"`
}

func (PermissionModel) TableName() string { return "user_permissions" }

func (m UserModel) ToDomain() domain.User {
	u := domain.User{
		ID:          m.ID,
		Username:    m.Username,
		Role:        domain.Role(m.Role),
		DisplayName: m.DisplayName,
		Email:       m.Email,
		CreatedAt:   m.CreatedAt,
		IsActive:    m.IsActive,
		Permissions: make([]domain.Permission, 0, len(m.Permissions)),
	}
	for _, p := range m.Permissions {
		u.Permissions = append(u.Permissions, domain.Permission{
			ID:          p.PermissionID,
			Name:        p.Name,
			Description: p.Description,
			Resource:    domain.Resource(p.Resource),
			Action:      domain.Action(p.Action),
		})
	}
	return u
}

func FromDomain(u domain.User, position int) UserModel {
	m := UserModel{
		ID:          u.ID,
		Username:    u.Username,
		Role:        string(u.Role),
		DisplayName: u.DisplayName,
		Email:       u.Email,
		IsActive:    u.IsActive,
		Position:    position,
		CreatedAt:   u.CreatedAt,
	}
	for i, p := range u.Permissions {
		m.Permissions = append(m.Permissions, PermissionModel{
			UserID:       u.ID,
			PermissionID: p.ID,
			Name:         p.Name,
			Description:  p.Description,
			Resource:     string(p.Resource),
			Action:       string(p.Action),
			Position:     i,
		})
	}
	return m
}
