package models

import "time"

// UserStatus mirrors the account status column.
type UserStatus int

const (
	UserStatusDisabled UserStatus = 0
	UserStatusActive   UserStatus = 1
)

// User represents the user model in the database
type User struct {
	Base
	Username         string     `gorm:"size:20;uniqueIndex;not null" json:"username"`
	Name             string     `gorm:"size:50;not null" json:"name"`
	Email            *string    `gorm:"size:255;index" json:"email"`
	Phone            *string    `gorm:"size:20" json:"phone"`
	Avatar           *string    `gorm:"size:255" json:"avatar"`
	Password         string     `gorm:"not null" json:"-"`
	Status           UserStatus `gorm:"not null" json:"status"`
	RefreshTokenHash string     `gorm:"size:64" json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	Roles            []Role     `gorm:"many2many:user_roles;" json:"roles,omitempty"`
}

// IsActive reports whether the account may log in.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// EmailAddress returns the email or an empty string.
func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
