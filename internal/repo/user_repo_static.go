package repo

import (
	"context"
	"strings"

	"freshtrack/internal/domain"
)

// StaticDirectory 内存名册，启动时确定，运行期只读
type StaticDirectory struct {
	users []domain.User
	byID  map[string]int
}

var _ domain.UserDirectory = (*StaticDirectory)(nil)

// NewStaticDirectory 同 ID 重复时以先出现者为准
func NewStaticDirectory(users []domain.User) *StaticDirectory {
	d := &StaticDirectory{byID: make(map[string]int, len(users))}
	for _, u := range users {
		if _, dup := d.byID[u.ID]; dup {
			continue
		}
		d.byID[u.ID] = len(d.users)
		d.users = append(d.users, u.Clone())
	}
	return d
}

func (d *StaticDirectory) FindByUsername(_ context.Context, username string) (domain.User, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return domain.User{}, domain.ErrUserNotFound
	}
	var inactive bool
	for _, u := range d.users {
		if !strings.EqualFold(u.Username, name) {
			continue
		}
		if u.IsActive {
			return u.Clone(), nil
		}
		inactive = true
	}
	if inactive {
		return domain.User{}, domain.ErrUserInactive
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (d *StaticDirectory) FindByID(_ context.Context, id string) (domain.User, error) {
	i, ok := d.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	if !d.users[i].IsActive {
		return domain.User{}, domain.ErrUserInactive
	}
	return d.users[i].Clone(), nil
}

func (d *StaticDirectory) ListActive(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(d.users))
	for _, u := range d.users {
		if u.IsActive {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}
