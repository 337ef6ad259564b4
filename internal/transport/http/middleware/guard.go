package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"freshtrack/internal/guard"
	"freshtrack/internal/session"
	resp "freshtrack/internal/transport/http/response"
)

type decisionView struct {
	Outcome      string `json:"outcome"`
	ShowLogin    bool   `json:"showLogin,omitempty"`
	RequiredRole string `json:"requiredRole,omitempty"`
	ActualRole   string `json:"actualRole,omitempty"`
	Resource     string `json:"resource,omitempty"`
	Action       string `json:"action,omitempty"`
}

func outcomeCode(o guard.Outcome) int {
	switch o {
	case guard.OutcomeLoading:
		return resp.CodeServiceUnavailable
	case guard.OutcomeUnauthenticated:
		return resp.CodeUnauthorized
	default:
		return resp.CodeForbidden
	}
}

// EnforceGuard 放行返回 true；否则写出判定并中止
func EnforceGuard(c *gin.Context, g *guard.Guard) bool {
	var snap session.Snapshot
	if m := SessionFrom(c); m != nil {
		snap = m.Snapshot()
	}
	d := g.Evaluate(snap)
	guardDecisions.WithLabelValues(d.Outcome.String()).Inc()
	if d.Allowed() {
		return true
	}
	c.AbortWithStatusJSON(http.StatusOK, resp.ErrorWith(outcomeCode(d.Outcome), d.Message, decisionView{
		Outcome:      d.Outcome.String(),
		ShowLogin:    d.ShowLogin,
		RequiredRole: string(d.RequiredRole),
		ActualRole:   string(d.ActualRole),
		Resource:     string(d.Resource),
		Action:       string(d.Action),
	}))
	return false
}

// Guard 分组级访问控制；需挂在 Session 之后
func Guard(g *guard.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if EnforceGuard(c, g) {
			c.Next()
		}
	}
}
