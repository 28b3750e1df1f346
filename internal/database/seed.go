package database

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"homeserve/internal/logger"
	"homeserve/internal/models"
)

// Permissions lists every permission known to the platform.
var Permissions = []string{
	// users
	"manage-users", "view-users", "create-users", "edit-users", "delete-users",
	// household services
	"manage-services", "view-services", "create-services", "edit-services", "delete-services",
	// orders
	"manage-orders", "view-orders", "create-orders", "edit-orders", "delete-orders", "assign-orders",
	// reviews
	"manage-reviews", "view-reviews", "edit-reviews", "delete-reviews",
	// finances
	"manage-finances", "view-finances",
	// system
	"manage-settings", "view-analytics",
}

// RolePermissions maps each seeded role to its permissions. A nil slice
// grants every permission.
var RolePermissions = map[string][]string{
	models.RoleSuperAdmin: nil,
	models.RoleAdmin: {
		"manage-users", "view-users", "create-users", "edit-users",
		"manage-services", "view-services", "create-services", "edit-services",
		"manage-orders", "view-orders", "create-orders", "edit-orders", "assign-orders",
		"manage-reviews", "view-reviews", "edit-reviews",
		"view-finances", "view-analytics",
	},
	models.RoleHousekeeper: {"view-orders", "edit-orders", "view-services"},
	models.RoleUser:        {"view-services", "create-orders", "view-orders"},
	models.RoleSupport:     {"view-users", "view-orders", "edit-orders", "view-reviews", "edit-reviews"},
}

// SeedRolesAndPermissions creates missing permissions and roles and syncs
// each role's permission set. It is safe to run on every start.
// Callers holding cached permissions must invalidate them afterwards.
func SeedRolesAndPermissions(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		byName := make(map[string]models.Permission, len(Permissions))
		for _, name := range Permissions {
			perm := models.Permission{Name: name}
			if err := tx.Where("name = ?", name).FirstOrCreate(&perm).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", name, err)
			}
			byName[name] = perm
		}

		for roleName, permNames := range RolePermissions {
			role := models.Role{Name: roleName}
			if err := tx.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", roleName, err)
			}

			if permNames == nil {
				permNames = Permissions
			}
			perms := make([]models.Permission, 0, len(permNames))
			for _, name := range permNames {
				perms = append(perms, byName[name])
			}
			if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
				return fmt.Errorf("seed role %s permissions: %w", roleName, err)
			}
		}
		return nil
	})
}

// SeedAdmin creates a super-admin account when username and password are set
// and the username is not taken yet.
func SeedAdmin(db *gorm.DB, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("seed check admin: %w", err)
	}
	if count > 0 {
		logger.Get().Infow("admin user already present, skipping", "username", username)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	var role models.Role
	if err := db.Where("name = ?", models.RoleSuperAdmin).First(&role).Error; err != nil {
		return fmt.Errorf("seed find super-admin role: %w", err)
	}

	admin := &models.User{
		Username: username,
		Name:     "Administrator",
		Password: string(hash),
		Status:   models.UserStatusActive,
		Roles:    []models.Role{role},
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	logger.Get().Infow("seeded super-admin user", "username", username)
	return nil
}
