package models

// Role groups permissions and is assigned to users.
type Role struct {
	Base
	Name        string       `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// Permission is a named capability such as "manage-services".
type Permission struct {
	Base
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

// Well-known role names.
const (
	RoleSuperAdmin  = "super-admin"
	RoleAdmin       = "admin"
	RoleHousekeeper = "housekeeper"
	RoleUser        = "user"
	RoleSupport     = "support"
)

// Permission names checked by route guards.
const (
	PermManageUsers    = "manage-users"
	PermManageServices = "manage-services"
)
