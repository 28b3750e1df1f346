package services

import (
	"context"

	"homeserve/internal/models"
	"homeserve/internal/pagination"
)

// CategoryServicer defines the contract for the service-category tree.
type CategoryServicer interface {
	ListCategories(ctx context.Context, filter CategoryFilter) ([]*CategoryTreeNode, int, error)
	GetCategory(ctx context.Context, id uint) (*CategoryDetail, error)
	CreateCategory(ctx context.Context, in CreateCategoryInput) (*models.ServiceCategory, error)
	UpdateCategory(ctx context.Context, id uint, in UpdateCategoryInput) (*models.ServiceCategory, error)
	DeleteCategory(ctx context.Context, id uint) error
	BatchDeleteCategories(ctx context.Context, ids []uint) (int, error)
	ToggleCategoryStatus(ctx context.Context, id uint, enabled bool) (*models.ServiceCategory, error)
	RestoreCategory(ctx context.Context, id uint) (*models.ServiceCategory, error)
}

// VerificationServicer defines the contract for verification codes.
// TimeToLive and SendLimitTimeToLive report false when nothing is live.
type VerificationServicer interface {
	Generate(ctx context.Context, id Identity, purpose, sourceAddress string) (*IssuedCode, error)
	CanSendNew(ctx context.Context, id Identity, purpose string) (bool, error)
	Verify(ctx context.Context, id Identity, purpose, candidate string) (bool, error)
	TimeToLive(ctx context.Context, id Identity, purpose string) (int, bool, error)
	SendLimitTimeToLive(ctx context.Context, id Identity, purpose string) (int, bool, error)
	Clear(ctx context.Context, id Identity, purpose string) (bool, error)
	RequestCode(ctx context.Context, id Identity, purpose, sourceAddress string) (*IssuedCode, error)
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	AttemptLogin(ctx context.Context, username, password string) (*models.User, error)
	GetUserByIdentity(ctx context.Context, username, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	ResetPassword(ctx context.Context, username, email, newPassword string) error
	RecordLogin(ctx context.Context, userID uint) error
	StoreRefreshTokenHash(ctx context.Context, userID uint, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID uint) (string, error)
	ListUsers(ctx context.Context, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
}

// RoleServicer defines the contract for roles and permission checks.
type RoleServicer interface {
	AssignRole(ctx context.Context, userID uint, roleName string) (*UserAccess, error)
	GetUserAccess(ctx context.Context, userID uint) (*UserAccess, error)
	HasPermission(ctx context.Context, userID uint, permission string) (bool, error)
	HasRole(ctx context.Context, userID uint, role string) (bool, error)
	InvalidateUserPermissions(ctx context.Context, userID uint) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
