package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"homeserve/internal/database"
	"homeserve/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active user with a hashed password, a unique
// username and a matching email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	n := nextID()
	return CreateTestUserWith(t, db, fmt.Sprintf("user%d", n), fmt.Sprintf("user%d@test.com", n))
}

// CreateTestUserWith creates an active user with the given username and email.
// An empty email leaves the column null.
func CreateTestUserWith(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username: username,
		Name:     username,
		Password: string(hash),
		Status:   models.UserStatusActive,
	}
	if email != "" {
		user.Email = &email
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// SeedTestRoles seeds the standard roles and permissions.
func SeedTestRoles(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := database.SeedRolesAndPermissions(db); err != nil {
		t.Fatalf("failed to seed roles: %v", err)
	}
}

// AssignTestRole attaches the named role to user. Roles must be seeded first.
func AssignTestRole(t *testing.T, db *gorm.DB, user *models.User, roleName string) {
	t.Helper()

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		t.Fatalf("failed to find role %s: %v", roleName, err)
	}
	if err := db.Model(user).Association("Roles").Append(&role); err != nil {
		t.Fatalf("failed to assign role %s: %v", roleName, err)
	}
}

// CreateTestCategory creates an enabled category under parent. A nil parent
// creates a root.
func CreateTestCategory(t *testing.T, db *gorm.DB, name string, parent *models.ServiceCategory) *models.ServiceCategory {
	t.Helper()

	category := &models.ServiceCategory{
		Name:      name,
		Level:     1,
		IsEnabled: true,
	}
	if parent != nil {
		category.ParentID = parent.ID
		category.Level = parent.Level + 1
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// ReloadCategory reads the current row for id, including soft-deleted rows.
func ReloadCategory(t *testing.T, db *gorm.DB, id uint) *models.ServiceCategory {
	t.Helper()

	var category models.ServiceCategory
	if err := db.First(&category, id).Error; err != nil {
		t.Fatalf("failed to reload category %d: %v", id, err)
	}
	return &category
}
