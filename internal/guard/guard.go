// Package guard 访问控制：根据会话快照决定是否放行受保护内容。
package guard

import (
	"fmt"
	"sync"

	"freshtrack/internal/domain"
	"freshtrack/internal/session"
)

type Outcome int

const (
	OutcomeLoading Outcome = iota
	OutcomeUnauthenticated
	OutcomeInsufficientRole
	OutcomeInsufficientPermission
	OutcomeGranted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeInsufficientRole:
		return "insufficient_role"
	case OutcomeInsufficientPermission:
		return "insufficient_permission"
	case OutcomeGranted:
		return "granted"
	default:
		return "unknown"
	}
}

type PermissionRequirement struct {
	Resource domain.Resource
	Action   domain.Action
}

// Requirement 两项都为空时只要求已登录
type Requirement struct {
	Role       domain.Role
	Permission *PermissionRequirement
}

func RequireRole(r domain.Role) Requirement { return Requirement{Role: r} }

func RequirePermission(res domain.Resource, act domain.Action) Requirement {
	return Requirement{Permission: &PermissionRequirement{Resource: res, Action: act}}
}

func (r Requirement) And(other Requirement) Requirement {
	out := Requirement{Role: r.Role}
	if other.Role != "" {
		out.Role = other.Role
	}
	perm := r.Permission
	if other.Permission != nil {
		perm = other.Permission
	}
	if perm != nil {
		p := *perm
		out.Permission = &p
	}
	return out
}

const (
	DefaultUnauthenticatedMessage = "Anmeldung erforderlich"
	LoadingMessage                = "Sitzung wird geladen"
)

type Options struct {
	UnauthenticatedMessage string
	ShowLogin              bool
}

type Decision struct {
	Outcome      Outcome
	Message      string
	ShowLogin    bool
	RequiredRole domain.Role
	ActualRole   domain.Role
	Resource     domain.Resource
	Action       domain.Action
}

func (d Decision) Allowed() bool { return d.Outcome == OutcomeGranted }

// Decide 纯函数：同一快照与要求总是得到同一结果
func Decide(s session.Snapshot, req Requirement, opt Options) Decision {
	if s.IsLoading {
		return Decision{Outcome: OutcomeLoading, Message: LoadingMessage}
	}
	if !s.IsAuthenticated() {
		msg := opt.UnauthenticatedMessage
		if msg == "" {
			msg = DefaultUnauthenticatedMessage
		}
		return Decision{Outcome: OutcomeUnauthenticated, Message: msg, ShowLogin: opt.ShowLogin}
	}
	if req.Role != "" && !s.HasRole(req.Role) {
		return Decision{
			Outcome:      OutcomeInsufficientRole,
			RequiredRole: req.Role,
			ActualRole:   s.User.Role,
			Message: fmt.Sprintf("Unzureichende Rolle: %s erforderlich, angemeldet als %s",
				req.Role.DisplayName(), s.User.Role.DisplayName()),
		}
	}
	if p := req.Permission; p != nil && !s.HasPermission(p.Resource, p.Action) {
		return Decision{
			Outcome:  OutcomeInsufficientPermission,
			Resource: p.Resource,
			Action:   p.Action,
			Message:  fmt.Sprintf("Fehlende Berechtigung: %s / %s", p.Resource, p.Action),
		}
	}
	return Decision{Outcome: OutcomeGranted}
}

// Guard 绑定一组要求；按 (会话版本, 用户) 缓存上一次判定
type Guard struct {
	req Requirement
	opt Options

	mu       sync.Mutex
	memoOK   bool
	memoVer  uint64
	memoUser string
	memo     Decision
}

func New(req Requirement, opt Options) *Guard { return &Guard{req: req, opt: opt} }

func (g *Guard) Requirement() Requirement { return g.req }

func (g *Guard) Evaluate(s session.Snapshot) Decision {
	uid := ""
	if s.User != nil {
		uid = s.User.ID
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.memoOK && g.memoVer == s.Version && g.memoUser == uid && !s.IsLoading {
		return g.memo
	}
	d := Decide(s, g.req, g.opt)
	g.memo, g.memoVer, g.memoUser, g.memoOK = d, s.Version, uid, true
	return d
}
