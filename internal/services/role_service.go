package services

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"gorm.io/gorm"

	"homeserve/internal/cache"
	apperrors "homeserve/internal/errors"
	"homeserve/internal/models"
)

// PermissionCacheTTL bounds how long a cached permission set may be served.
const PermissionCacheTTL = 10 * time.Minute

// UserAccess is a user's effective roles and permissions.
type UserAccess struct {
	UserID      uint     `json:"user_id"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// roleService resolves roles and permissions, caching each user's effective
// set. Writes that change a user's access must call InvalidateUserPermissions.
type roleService struct {
	db    *gorm.DB
	cache *cache.JSONCache[UserAccess]
}

// NewPermissionCache creates the cache used by the role service.
func NewPermissionCache(store cache.TTLStore) *cache.JSONCache[UserAccess] {
	return cache.NewJSONCache[UserAccess](store, "perm:user", PermissionCacheTTL)
}

// NewRoleService creates a new RoleServicer.
func NewRoleService(db *gorm.DB, permCache *cache.JSONCache[UserAccess]) RoleServicer {
	return &roleService{db: db, cache: permCache}
}

// AssignRole grants roleName to the user and drops their cached permissions.
// Assigning a role the user already has is a no-op.
func (s *roleService) AssignRole(ctx context.Context, userID uint, roleName string) (*UserAccess, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRoleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}

	if err := db.Model(&user).Association("Roles").Append(&role); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}

	if err := s.InvalidateUserPermissions(ctx, userID); err != nil {
		return nil, err
	}
	return s.GetUserAccess(ctx, userID)
}

// GetUserAccess returns the user's roles and the union of their permissions.
func (s *roleService) GetUserAccess(ctx context.Context, userID uint) (*UserAccess, error) {
	key := strconv.FormatUint(uint64(userID), 10)
	if access, ok := s.cache.Get(ctx, key); ok {
		return access, nil
	}

	var user models.User
	if err := s.db.WithContext(ctx).Preload("Roles.Permissions").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}

	access := &UserAccess{
		UserID:      user.ID,
		Username:    user.Username,
		Roles:       []string{},
		Permissions: []string{},
	}
	seen := make(map[string]bool)
	for _, role := range user.Roles {
		access.Roles = append(access.Roles, role.Name)
		for _, perm := range role.Permissions {
			if !seen[perm.Name] {
				seen[perm.Name] = true
				access.Permissions = append(access.Permissions, perm.Name)
			}
		}
	}
	slices.Sort(access.Roles)
	slices.Sort(access.Permissions)

	s.cache.Set(ctx, key, access)
	return access, nil
}

// HasPermission reports whether the user holds permission through any role.
func (s *roleService) HasPermission(ctx context.Context, userID uint, permission string) (bool, error) {
	access, err := s.GetUserAccess(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(access.Permissions, permission), nil
}

// HasRole reports whether the user has role.
func (s *roleService) HasRole(ctx context.Context, userID uint, role string) (bool, error) {
	access, err := s.GetUserAccess(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(access.Roles, role), nil
}

// InvalidateUserPermissions drops the cached permission set of one user.
func (s *roleService) InvalidateUserPermissions(ctx context.Context, userID uint) error {
	if err := s.cache.Delete(ctx, strconv.FormatUint(uint64(userID), 10)); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return nil
}
