package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	govalidator "github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	apperrors "homeserve/internal/errors"
	"homeserve/internal/models"
	"homeserve/internal/validator"
)

// CategoryFilter narrows ListCategories. Deleted categories are never listed.
type CategoryFilter struct {
	IncludeDisabled bool
	OnlyTopLevel    bool
	Level           *int
}

// CreateCategoryInput holds the fields of a new category. ParentID 0 creates
// a root; a nil IsEnabled means enabled.
type CreateCategoryInput struct {
	Name        string  `json:"name" validate:"required,max=50"`
	ParentID    uint    `json:"parent_id"`
	SortOrder   int     `json:"sort_order" validate:"gte=0"`
	IsEnabled   *bool   `json:"is_enabled"`
	Icon        *string `json:"icon" validate:"omitempty,max=100,url"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// UpdateCategoryInput is a partial update; nil fields are left unchanged.
// An empty Icon or Description clears the column.
type UpdateCategoryInput struct {
	Name        *string `json:"name" validate:"omitempty,max=50"`
	ParentID    *uint   `json:"parent_id"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,gte=0"`
	IsEnabled   *bool   `json:"is_enabled"`
	Icon        *string `json:"icon" validate:"omitempty,max=100,url"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// CategoryRef is the short form of a parent category.
type CategoryRef struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// CategoryChild is the short form of a direct child.
type CategoryChild struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	IsEnabled bool   `json:"is_enabled"`
}

// CategoryDetail is a category with its parent and direct children attached.
type CategoryDetail struct {
	models.ServiceCategory
	Parent        *CategoryRef    `json:"parent,omitempty"`
	ChildrenCount int             `json:"children_count"`
	Children      []CategoryChild `json:"children"`
}

// categoryService maintains the service-category tree.
type categoryService struct {
	db       *gorm.DB
	validate *govalidator.Validate
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db, validate: validator.New()}
}

// ListCategories returns the matching categories as a forest together with the
// number of rows matched. Only top-level rows start a tree, so filtering by a
// level below 1 matches rows but renders an empty forest.
func (s *categoryService) ListCategories(ctx context.Context, filter CategoryFilter) ([]*CategoryTreeNode, int, error) {
	q := s.db.WithContext(ctx).Model(&models.ServiceCategory{}).
		Scopes(models.InScope(models.ScopeActive))
	if !filter.IncludeDisabled {
		q = q.Where("is_enabled = ?", true)
	}
	if filter.OnlyTopLevel {
		q = q.Where("parent_id = ?", 0)
	}
	if filter.Level != nil {
		q = q.Where("level = ?", *filter.Level)
	}

	var rows []models.ServiceCategory
	if err := q.Scopes(models.Ordered).Find(&rows).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}

	return newCategoryForest(rows).tree(), len(rows), nil
}

// GetCategory returns a live category with its parent and live children.
func (s *categoryService) GetCategory(ctx context.Context, id uint) (*CategoryDetail, error) {
	db := s.db.WithContext(ctx)

	category, err := findCategory(db, id, models.ScopeActive)
	if err != nil {
		return nil, err
	}

	detail := &CategoryDetail{ServiceCategory: *category, Children: []CategoryChild{}}

	if !category.IsTopLevel() {
		var parent models.ServiceCategory
		err := db.Scopes(models.InScope(models.ScopeActive)).First(&parent, category.ParentID).Error
		switch {
		case err == nil:
			detail.Parent = &CategoryRef{ID: parent.ID, Name: parent.Name, Level: parent.Level}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
	}

	var children []models.ServiceCategory
	if err := db.Scopes(models.InScope(models.ScopeActive), models.Ordered).
		Where("parent_id = ?", id).Find(&children).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	for _, c := range children {
		detail.Children = append(detail.Children, CategoryChild{ID: c.ID, Name: c.Name, IsEnabled: c.IsEnabled})
	}
	detail.ChildrenCount = len(detail.Children)

	return detail, nil
}

// CreateCategory inserts a category, deriving its level from the parent.
func (s *categoryService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*models.ServiceCategory, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, validator.InvalidInput(err)
	}

	category := &models.ServiceCategory{
		Name:        in.Name,
		ParentID:    in.ParentID,
		Level:       1,
		SortOrder:   in.SortOrder,
		IsEnabled:   true,
		Icon:        nullable(in.Icon),
		Description: nullable(in.Description),
	}
	if in.IsEnabled != nil {
		category.IsEnabled = *in.IsEnabled
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNameAvailable(tx, category.Name, 0); err != nil {
			return err
		}

		if category.ParentID > 0 {
			parent, err := findParent(tx, category.ParentID)
			if err != nil {
				return err
			}
			category.Level = parent.Level + 1
		}

		if err := tx.Create(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory applies a partial update. Moving a category relabels the
// level of its whole subtree by the same delta.
func (s *categoryService) UpdateCategory(ctx context.Context, id uint, in UpdateCategoryInput) (*models.ServiceCategory, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.WithDetails(
				apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required"),
				[]apperrors.FieldError{{Field: "name", Message: "name is required"}},
			)
		}
		in.Name = &name
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validator.InvalidInput(err)
	}

	var updated models.ServiceCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, id, models.ScopeActive)
		if err != nil {
			return err
		}

		updates := make(map[string]interface{})

		if in.Name != nil {
			if err := ensureNameAvailable(tx, *in.Name, id); err != nil {
				return err
			}
			updates["name"] = *in.Name
		}
		if in.SortOrder != nil {
			updates["sort_order"] = *in.SortOrder
		}
		if in.Icon != nil {
			updates["icon"] = nullable(in.Icon)
		}
		if in.Description != nil {
			updates["description"] = nullable(in.Description)
		}

		if in.IsEnabled != nil {
			if !*in.IsEnabled {
				var enabledChildren int64
				if err := tx.Model(&models.ServiceCategory{}).
					Scopes(models.InScope(models.ScopeActive)).
					Where("parent_id = ? AND is_enabled = ?", id, true).
					Count(&enabledChildren).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrUnavailable, err)
				}
				if enabledChildren > 0 {
					return apperrors.ErrCategoryHasEnabledChildren
				}
			}
			updates["is_enabled"] = *in.IsEnabled
		}

		if in.ParentID != nil && *in.ParentID != category.ParentID {
			if err := moveCategory(tx, category, *in.ParentID, updates); err != nil {
				return err
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(category).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrUnavailable, err)
			}
		}

		if err := tx.First(&updated, id).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// moveCategory validates re-parenting category under newParentID, shifts the
// levels of every descendant and records the node's own changes in updates.
func moveCategory(tx *gorm.DB, category *models.ServiceCategory, newParentID uint, updates map[string]interface{}) error {
	if newParentID == category.ID {
		return apperrors.ErrCategoryCycle
	}

	// Deleted rows keep their level; RestoreCategory rejects them once stale.
	var rows []models.ServiceCategory
	if err := tx.Model(&models.ServiceCategory{}).
		Select("id", "parent_id", "level").
		Scopes(models.InScope(models.ScopeActive), models.Ordered).
		Find(&rows).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	forest := newCategoryForest(rows)

	newLevel := 1
	if newParentID > 0 {
		if forest.isDescendant(category.ID, newParentID) {
			return apperrors.ErrCategoryCycle
		}
		parent, err := findParent(tx, newParentID)
		if err != nil {
			return err
		}
		newLevel = parent.Level + 1
	}

	if newLevel+(forest.maxSubtreeLevel(category.ID)-category.Level) > models.MaxCategoryLevel {
		return apperrors.WithMessage(apperrors.ErrCategoryDepthExceeded,
			"Moving this category would push its subtree past 3 levels")
	}

	delta := newLevel - category.Level
	if descendants := forest.descendants(category.ID); delta != 0 && len(descendants) > 0 {
		if err := tx.Model(&models.ServiceCategory{}).
			Where("id IN ?", descendants).
			Update("level", gorm.Expr("level + ?", delta)).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
	}

	updates["parent_id"] = newParentID
	updates["level"] = newLevel
	return nil
}

// DeleteCategory soft-deletes a category that has no live children.
func (s *categoryService) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, id, models.ScopeActive)
		if err != nil {
			return err
		}

		hasChildren, err := hasLiveChildren(tx, id)
		if err != nil {
			return err
		}
		if hasChildren {
			return apperrors.ErrCategoryHasChildren
		}

		if err := tx.Model(category).Update("is_del", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
		return nil
	})
}

// BatchDeleteCategories soft-deletes every id or none. The first offending
// category is named in the error.
func (s *categoryService) BatchDeleteCategories(ctx context.Context, ids []uint) (int, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return 0, apperrors.WithDetails(
			apperrors.WithMessage(apperrors.ErrInvalidInput, "ids must contain at least one id"),
			[]apperrors.FieldError{{Field: "ids", Message: "ids must contain at least one id"}},
		)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.ServiceCategory
		if err := tx.Scopes(models.InScope(models.ScopeActive), models.Ordered).
			Where("id IN ?", unique).Find(&rows).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}

		found := make(map[uint]bool, len(rows))
		for _, r := range rows {
			found[r.ID] = true
		}
		for _, id := range unique {
			if !found[id] {
				return apperrors.WithMessage(apperrors.ErrCategoryNotFound, fmt.Sprintf("Category %d not found", id))
			}
		}

		for _, r := range rows {
			hasChildren, err := hasLiveChildren(tx, r.ID)
			if err != nil {
				return err
			}
			if hasChildren {
				return apperrors.WithMessage(apperrors.ErrCategoryHasChildren,
					fmt.Sprintf("Category %q has child categories and cannot be deleted", r.Name))
			}
		}

		if err := tx.Model(&models.ServiceCategory{}).
			Where("id IN ?", unique).
			Update("is_del", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(unique), nil
}

// ToggleCategoryStatus enables or disables a category. Disabling cascades to
// every descendant; enabling touches only the category itself.
func (s *categoryService) ToggleCategoryStatus(ctx context.Context, id uint, enabled bool) (*models.ServiceCategory, error) {
	var updated models.ServiceCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, id, models.ScopeActive)
		if err != nil {
			return err
		}

		ids := []uint{category.ID}
		if !enabled {
			var rows []models.ServiceCategory
			if err := tx.Model(&models.ServiceCategory{}).
				Select("id", "parent_id", "level").
				Scopes(models.InScope(models.ScopeAll)).
				Find(&rows).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrUnavailable, err)
			}
			ids = append(ids, newCategoryForest(rows).descendants(category.ID)...)
		}

		if err := tx.Model(&models.ServiceCategory{}).
			Where("id IN ?", ids).
			Update("is_enabled", enabled).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}

		if err := tx.First(&updated, id).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// RestoreCategory clears the delete flag of a soft-deleted category whose
// parent is still live and one level up. Its descendants stay as they are.
func (s *categoryService) RestoreCategory(ctx context.Context, id uint) (*models.ServiceCategory, error) {
	var restored models.ServiceCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, id, models.ScopeDeleted)
		if err != nil {
			if errors.Is(err, apperrors.ErrCategoryNotFound) {
				return apperrors.ErrCategoryNotDeleted
			}
			return err
		}

		if err := ensurePlacement(tx, category); err != nil {
			return err
		}
		if err := ensureNameAvailable(tx, category.Name, id); err != nil {
			return err
		}

		if err := tx.Model(category).Update("is_del", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}

		if err := tx.First(&restored, id).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &restored, nil
}

func findCategory(db *gorm.DB, id uint, scope models.DeleteScope) (*models.ServiceCategory, error) {
	var category models.ServiceCategory
	if err := db.Scopes(models.InScope(scope)).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return &category, nil
}

// findParent loads a prospective parent and checks it can take a new child.
func findParent(db *gorm.DB, id uint) (*models.ServiceCategory, error) {
	parent, err := findCategory(db, id, models.ScopeActive)
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "Parent category not found")
		}
		return nil, err
	}
	if parent.Level >= models.MaxCategoryLevel {
		return nil, apperrors.ErrCategoryDepthExceeded
	}
	if !parent.IsEnabled {
		return nil, apperrors.ErrCategoryParentDisabled
	}
	return parent, nil
}

// ensurePlacement checks that a deleted category can come back where it was:
// its parent must be live and exactly one level above it.
func ensurePlacement(db *gorm.DB, category *models.ServiceCategory) error {
	if category.Level > models.MaxCategoryLevel {
		return apperrors.ErrCategoryRestoreConflict
	}
	if category.ParentID == 0 {
		if category.Level != 1 {
			return apperrors.ErrCategoryRestoreConflict
		}
		return nil
	}
	parent, err := findCategory(db, category.ParentID, models.ScopeActive)
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNotFound) {
			return apperrors.WithMessage(apperrors.ErrCategoryRestoreConflict, "Parent category is deleted")
		}
		return err
	}
	if category.Level != parent.Level+1 {
		return apperrors.ErrCategoryRestoreConflict
	}
	return nil
}

// ensureNameAvailable checks name against live categories other than exceptID.
func ensureNameAvailable(db *gorm.DB, name string, exceptID uint) error {
	q := db.Model(&models.ServiceCategory{}).
		Scopes(models.InScope(models.ScopeActive)).
		Where("name = ?", name)
	if exceptID > 0 {
		q = q.Where("id <> ?", exceptID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	if count > 0 {
		return apperrors.ErrCategoryNameTaken
	}
	return nil
}

func hasLiveChildren(db *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := db.Model(&models.ServiceCategory{}).
		Scopes(models.InScope(models.ScopeActive)).
		Where("parent_id = ?", id).
		Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return count > 0, nil
}

func nullable(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
