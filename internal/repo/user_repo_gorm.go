package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"freshtrack/internal/domain"
	"freshtrack/internal/feature/user"
)

// UserRepo 数据库版用户目录（users + user_permissions）
type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserDirectory = (*UserRepo)(nil)

func (r *UserRepo) Migrate() error {
	return r.db.AutoMigrate(&user.UserModel{}, &user.PermissionModel{})
}

// Seed 按名册 upsert 用户，并整体替换其权限
func (r *UserRepo) Seed(ctx context.Context, users []domain.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, u := range users {
			m := user.FromDomain(u, i)
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
				Omit(clause.Associations).Create(&m).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", u.Username, err)
			}
			if err := tx.Where("user_id = ?", u.ID).Delete(&user.PermissionModel{}).Error; err != nil {
				return fmt.Errorf("reset permissions %s: %w", u.Username, err)
			}
			if len(m.Permissions) == 0 {
				continue
			}
			if err := tx.Create(&m.Permissions).Error; err != nil {
				return fmt.Errorf("seed permissions %s: %w", u.Username, err)
			}
		}
		return nil
	})
}

func (r *UserRepo) withPermissions(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Permissions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	name := strings.ToLower(strings.TrimSpace(username))
	if name == "" {
		return domain.User{}, domain.ErrUserNotFound
	}
	var m user.UserModel
	err := r.withPermissions(ctx).Where("LOWER(username) = ?", name).First(&m).Error
	return activeOrErr(m, err)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (domain.User, error) {
	var m user.UserModel
	err := r.withPermissions(ctx).Where("id = ?", id).First(&m).Error
	return activeOrErr(m, err)
}

func (r *UserRepo) ListActive(ctx context.Context) ([]domain.User, error) {
	var ms []user.UserModel
	err := r.withPermissions(ctx).Where("is_active = ?", true).Order("position").Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDirectoryUnavailable, err)
	}
	out := make([]domain.User, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ToDomain())
	}
	return out, nil
}

func activeOrErr(m user.UserModel, err error) (domain.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrDirectoryUnavailable, err)
	}
	if !m.IsActive {
		return domain.User{}, domain.ErrUserInactive
	}
	return m.ToDomain(), nil
}
