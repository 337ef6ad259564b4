package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_HasPermission(t *testing.T) {
	u := &User{
		ID:   "1",
		Role: RoleKitchen,
		Permissions: []Permission{
			FullAccess(ResourceInventory, ""),
			{ID: "dash_view", Resource: ResourceDashboard, Action: ActionView},
		},
	}

	t.Run("full grants any action on its resource", func(t *testing.T) {
		for _, a := range []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionFull} {
			assert.True(t, u.HasPermission(ResourceInventory, a), a)
		}
	})
	t.Run("exact pair", func(t *testing.T) {
		assert.True(t, u.HasPermission(ResourceDashboard, ActionView))
		assert.False(t, u.HasPermission(ResourceDashboard, ActionCreate))
		assert.False(t, u.HasPermission(ResourceDashboard, ActionFull))
	})
	t.Run("other resource", func(t *testing.T) {
		assert.False(t, u.HasPermission(ResourceUsers, ActionView))
		assert.False(t, u.HasPermission(Resource("Inventory"), ActionView))
	})
	t.Run("nil user", func(t *testing.T) {
		var nobody *User
		assert.False(t, nobody.HasPermission(ResourceInventory, ActionView))
		assert.False(t, nobody.HasRole(RoleKitchen))
	})
}

func TestUser_HasRole(t *testing.T) {
	u := &User{Role: RoleCashier}
	assert.True(t, u.HasRole(RoleCashier))
	assert.False(t, u.HasRole(RoleManager))
}

func TestUser_CloneIsDeep(t *testing.T) {
	u := User{ID: "1", Permissions: []Permission{FullAccess(ResourceScanner, "")}}
	c := u.Clone()
	c.Permissions[0].Action = ActionView
	assert.Equal(t, ActionFull, u.Permissions[0].Action)
}

func TestParseRoleAndAction(t *testing.T) {
	r, ok := ParseRole(" Manager ")
	require.True(t, ok)
	assert.Equal(t, RoleManager, r)
	assert.Equal(t, "Verwaltung", r.DisplayName())

	_, ok = ParseRole("chef")
	assert.False(t, ok)
	assert.Equal(t, "chef", Role("chef").DisplayName())

	a, ok := ParseAction("FULL")
	require.True(t, ok)
	assert.Equal(t, ActionFull, a)

	_, ok = ParseAction("approve")
	assert.False(t, ok)
	assert.Len(t, Roles(), 3)
}

func TestAuthError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewAuthError(KindStorage, MsgLoginFailed, cause)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.Contains(t, err.Error(), "storage")
	assert.Contains(t, err.Error(), "disk full")

	wrapped := errors.Join(errors.New("ctx"), NewAuthError(KindValidation, MsgUsernameRequired, nil))
	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, ErrorKind(0), KindOf(cause))
}

func TestErrUserInactiveIsNotFound(t *testing.T) {
	assert.ErrorIs(t, ErrUserInactive, ErrUserNotFound)
	assert.NotErrorIs(t, ErrUserNotFound, ErrUserInactive)
}
