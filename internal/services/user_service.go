package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "homeserve/internal/errors"
	"homeserve/internal/logger"
	"homeserve/internal/models"
	"homeserve/internal/pagination"
)

// RegisterInput holds the fields of a new account. Email and Phone are optional.
type RegisterInput struct {
	Username string
	Name     string
	Email    string
	Phone    string
	Password string
}

// userService handles user-related business logic.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// Register creates an active account and grants it the default role when
// that role has been seeded.
func (s *userService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Username == "" || in.Password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "username and password are required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Username: in.Username,
		Name:     in.Name,
		Email:    optional(strings.ToLower(strings.TrimSpace(in.Email))),
		Phone:    optional(strings.TrimSpace(in.Phone)),
		Password: string(hashedPassword),
		Status:   models.UserStatusActive,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateUsername
		}

		if err := tx.Create(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}

		var role models.Role
		err := tx.Where("name = ?", models.RoleUser).First(&role).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			logger.Get().Warnw("default role missing, user created without roles", "username", user.Username)
			return nil
		case err != nil:
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
		if err := tx.Model(user).Association("Roles").Append(&role); err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UsernameExists reports whether username is taken.
func (s *userService) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return count > 0, nil
}

// AttemptLogin checks a username/password pair. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *userService) AttemptLogin(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, apperrors.ErrAccountDisabled
	}
	return &user, nil
}

// GetUserByIdentity finds the active user owning both username and email.
func (s *userService) GetUserByIdentity(ctx context.Context, username, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? AND email = ?", username, strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrIdentityMismatch
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	if !user.IsActive() {
		return nil, apperrors.ErrAccountDisabled
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Roles").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return &user, nil
}

// ResetPassword replaces the password of the user owning username and email
// and revokes their refresh token.
func (s *userService) ResetPassword(ctx context.Context, username, email, newPassword string) error {
	if newPassword == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "password is required")
	}

	user, err := s.GetUserByIdentity(ctx, username, email)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"password":           string(hashed),
		"refresh_token_hash": "",
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return nil
}

// RecordLogin stamps the last login time.
func (s *userService) RecordLogin(ctx context.Context, userID uint) error {
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("last_login_at", time.Now().UTC()).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return nil
}

// StoreRefreshTokenHash saves the SHA-256 hash of the user's current refresh
// token. An empty hash revokes it.
func (s *userService) StoreRefreshTokenHash(ctx context.Context, userID uint, tokenHash string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("refresh_token_hash", tokenHash)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// GetRefreshTokenHash returns the stored refresh token hash.
func (s *userService) GetRefreshTokenHash(ctx context.Context, userID uint) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "refresh_token_hash").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		return "", apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return user.RefreshTokenHash, nil
}

// ListUsers returns a page of users with their roles, oldest first.
func (s *userService) ListUsers(ctx context.Context, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.WithContext(ctx).Model(&models.User{})
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}

	var users []models.User
	if err := base.Preload("Roles").Order("id ASC").Scopes(pagination.Paginate(page)).Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}

	result := pagination.NewPageResponse(users, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
