package user

import (
	"time"

	"freshtrack/internal/domain"
)

// 名册创建时间（固定，保证种子幂等）
var rosterCreatedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func staffPermissions() []domain.Permission {
	return []domain.Permission{
		domain.FullAccess(domain.ResourceDashboard, "Dashboard und Kennzahlen"),
		domain.FullAccess(domain.ResourceInventory, "Produkte und Bestand verwalten"),
		domain.FullAccess(domain.ResourceMovements, "Lagerbewegungen erfassen"),
		domain.FullAccess(domain.ResourceScanner, "Barcodes scannen"),
	}
}

// Roster 内置的三个账号，顺序即列表顺序
func Roster() []domain.User {
	managerPerms := append(staffPermissions(),
		domain.FullAccess(domain.ResourceUsers, "Benutzer einsehen"))

	return []domain.User{
		{
			ID:          "1",
			Username:    "kueche",
			Role:        domain.RoleKitchen,
			DisplayName: "Küche",
			Email:       "kueche@freshtrack.local",
			CreatedAt:   rosterCreatedAt,
			IsActive:    true,
			Permissions: staffPermissions(),
		},
		{
			ID:          "2",
			Username:    "kasse",
			Role:        domain.RoleCashier,
			DisplayName: "Kasse",
			Email:       "kasse@freshtrack.local",
			CreatedAt:   rosterCreatedAt,
			IsActive:    true,
			Permissions: staffPermissions(),
		},
		{
			ID:          "3",
			Username:    "verwalter",
			Role:        domain.RoleManager,
			DisplayName: "Verwalter",
			Email:       "verwalter@freshtrack.local",
			CreatedAt:   rosterCreatedAt,
			IsActive:    true,
			Permissions: managerPerms,
		},
	}
}
