package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshtrack/internal/domain"
	"freshtrack/internal/feature/user"
)

func rosterWithInactive() []domain.User {
	users := user.Roster()
	users = append(users, domain.User{
		ID:       "9",
		Username: "aushilfe",
		Role:     domain.RoleKitchen,
		IsActive: false,
	})
	return users
}

func TestStaticDirectory_FindByUsernameIgnoresCase(t *testing.T) {
	d := NewStaticDirectory(user.Roster())
	ctx := context.Background()

	for _, name := range []string{"kueche", "KUECHE", "Kueche", "  kUeChE "} {
		u, err := d.FindByUsername(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, "1", u.ID)
		assert.Equal(t, domain.RoleKitchen, u.Role)
	}

	_, err := d.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = d.FindByUsername(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestStaticDirectory_InactiveIsNotFound(t *testing.T) {
	d := NewStaticDirectory(rosterWithInactive())
	ctx := context.Background()

	_, err := d.FindByUsername(ctx, "aushilfe")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, err, domain.ErrUserInactive)

	_, err = d.FindByID(ctx, "9")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	active, err := d.ListActive(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(active))
	for _, u := range active {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestStaticDirectory_ReturnsCopies(t *testing.T) {
	d := NewStaticDirectory(user.Roster())
	ctx := context.Background()

	u, err := d.FindByID(ctx, "3")
	require.NoError(t, err)
	u.Permissions[0].Action = domain.ActionView
	u.Role = domain.RoleKitchen

	again, err := d.FindByID(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, again.Role)
	assert.Equal(t, domain.ActionFull, again.Permissions[0].Action)
}

func TestStaticDirectory_DuplicateIDKeepsFirst(t *testing.T) {
	users := user.Roster()
	dup := users[0]
	dup.Username = "imposter"
	d := NewStaticDirectory(append(users, dup))

	_, err := d.FindByUsername(context.Background(), "imposter")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	all, _ := d.ListActive(context.Background())
	assert.Len(t, all, 3)
}
