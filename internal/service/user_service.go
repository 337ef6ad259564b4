package service

import (
	"context"

	"freshtrack/internal/domain"
	"freshtrack/internal/session"
)

type UserService struct {
	sessions *SessionService
}

func NewUserService(sessions *SessionService) *UserService {
	return &UserService{sessions: sessions}
}

// Roster 活跃用户列表，附带本设备记录的最近登录时间
func (s *UserService) Roster(ctx context.Context, m *session.Manager) ([]domain.User, error) {
	users, err := s.sessions.Directory().ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if t, ok := s.sessions.LastLogin(ctx, m, users[i].ID); ok {
			users[i].LastLogin = &t
		}
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, m *session.Manager, id string) (domain.User, error) {
	u, err := s.sessions.Directory().FindByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if t, ok := s.sessions.LastLogin(ctx, m, u.ID); ok {
		u.LastLogin = &t
	}
	return u, nil
}
