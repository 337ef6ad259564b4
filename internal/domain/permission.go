package domain

import (
	"fmt"
	"strings"
)

// Resource 资源标识（开放集合）
type Resource string

const (
	ResourceDashboard Resource = "dashboard"
	ResourceInventory Resource = "inventory"
	ResourceMovements Resource = "movements"
	ResourceScanner   Resource = "scanner"
	ResourceUsers     Resource = "users"
)

// Action 动作（封闭集合），ActionFull 为全权限哨兵值
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionFull   Action = "full"
)

var actionDisplayNames = map[Action]string{
	ActionView:   "Anzeigen",
	ActionCreate: "Anlegen",
	ActionUpdate: "Bearbeiten",
	ActionDelete: "Löschen",
	ActionFull:   "Vollzugriff",
}

func (a Action) Valid() bool {
	_, ok := actionDisplayNames[a]
	return ok
}

func (a Action) DisplayName() string {
	if n, ok := actionDisplayNames[a]; ok {
		return n
	}
	return string(a)
}

func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	return a, a.Valid()
}

type Permission struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Resource    Resource `json:"resource"`
	Action      Action   `json:"action"`
}

func (p Permission) Grants(res Resource, act Action) bool {
	if p.Resource != res {
		return false
	}
	return p.Action == act || p.Action == ActionFull
}

// FullAccess 构造某资源上的全权限
func FullAccess(res Resource, description string) Permission {
	return Permission{
		ID:          fmt.Sprintf("%s_full", res),
		Name:        fmt.Sprintf("%s: %s", res, ActionFull.DisplayName()),
		Description: description,
		Resource:    res,
		Action:      ActionFull,
	}
}
