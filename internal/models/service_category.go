package models

import "gorm.io/gorm"

// MaxCategoryLevel is the deepest level a service category may occupy.
const MaxCategoryLevel = 3

// DeleteScope selects rows by soft-delete state. It is always passed
// explicitly; no query filters deleted rows implicitly.
type DeleteScope int

const (
	ScopeActive DeleteScope = iota
	ScopeDeleted
	ScopeAll
)

// ServiceCategory is a node in the household-service catalog tree.
type ServiceCategory struct {
	Base
	Name        string  `gorm:"size:50;not null;index" json:"name"`
	ParentID    uint    `gorm:"not null;default:0;index" json:"parent_id"`
	Level       int     `gorm:"not null;default:1" json:"level"`
	SortOrder   int     `gorm:"not null;default:0" json:"sort_order"`
	IsEnabled   bool    `gorm:"not null" json:"is_enabled"`
	Icon        *string `gorm:"size:100" json:"icon"`
	Description *string `gorm:"size:255" json:"description"`
	IsDel       bool    `gorm:"column:is_del;not null;default:false;index" json:"-"`
}

// TableName keeps the table name singular.
func (ServiceCategory) TableName() string {
	return "service_category"
}

// IsTopLevel reports whether the category is a root.
func (c *ServiceCategory) IsTopLevel() bool {
	return c.ParentID == 0
}

// InScope returns a GORM scope filtering service categories by delete state.
func InScope(scope DeleteScope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch scope {
		case ScopeActive:
			return db.Where("is_del = ?", false)
		case ScopeDeleted:
			return db.Where("is_del = ?", true)
		default:
			return db
		}
	}
}

// Ordered sorts categories by sort order, then id.
func Ordered(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC").Order("id ASC")
}
