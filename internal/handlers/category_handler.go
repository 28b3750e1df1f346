package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homeserve/internal/metrics"
	"homeserve/internal/models"
	"homeserve/internal/services"
)

const categoryResource = "service_category"

// CategoryHandler handles service-category requests.
type CategoryHandler struct {
	categoryService services.CategoryServicer
	auditService    services.AuditServicer
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService services.CategoryServicer, auditService services.AuditServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, auditService: auditService}
}

// ListCategoriesQuery holds the list filters.
type ListCategoriesQuery struct {
	IncludeDisabled bool `form:"include_disabled"`
	OnlyTopLevel    bool `form:"only_top_level"`
	Level           *int `form:"level" binding:"omitempty,min=1,max=3"`
}

// BatchDeleteRequest lists the categories to delete together.
type BatchDeleteRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1,dive,gt=0"`
}

// ToggleStatusRequest sets the enabled flag.
type ToggleStatusRequest struct {
	IsEnabled *bool `json:"is_enabled" binding:"required"`
}

// CategoryListResponse is the category forest plus the number of rows matched.
type CategoryListResponse struct {
	Categories []*services.CategoryTreeNode `json:"categories"`
	Total      int                          `json:"total"`
}

// CategoryResponse wraps a single category.
type CategoryResponse struct {
	Category *models.ServiceCategory `json:"category"`
}

// CategoryDetailResponse wraps a category with its parent and children.
type CategoryDetailResponse struct {
	Category *services.CategoryDetail `json:"category"`
}

// BatchDeleteResponse reports how many categories a batch removed.
type BatchDeleteResponse struct {
	Deleted int `json:"deleted"`
}

// ListCategories returns the category tree
// @Summary     List service categories
// @Description Nested tree of live categories. Disabled ones are hidden unless include_disabled is set.
// @Tags        service-categories
// @Produce     json
// @Security    BearerAuth
// @Param       include_disabled query bool false "Include disabled categories"
// @Param       only_top_level   query bool false "Only level-1 categories"
// @Param       level            query int  false "Only categories at this level (1-3)"
// @Success     200 {object} CategoryListResponse
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /service-categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	var q ListCategoriesQuery
	if !bindQuery(c, &q) {
		return
	}

	roots, total, err := h.categoryService.ListCategories(c.Request.Context(), services.CategoryFilter{
		IncludeDisabled: q.IncludeDisabled,
		OnlyTopLevel:    q.OnlyTopLevel,
		Level:           q.Level,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, CategoryListResponse{Categories: roots, Total: total})
}

// GetCategory returns one category with its parent and children
// @Summary     Get service category
// @Tags        service-categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Success     200 {object} CategoryDetailResponse
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /service-categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	detail, err := h.categoryService.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, CategoryDetailResponse{Category: detail})
}

// CreateCategory creates a category
// @Summary     Create service category
// @Description parent_id 0 creates a top-level category. The tree is at most 3 levels deep.
// @Tags        service-categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body services.CreateCategoryInput true "Category"
// @Success     201 {object} CategoryResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Parent not found"
// @Failure     409 {object} ErrorResponse "Name taken, depth exceeded or parent disabled"
// @Router      /service-categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req services.CreateCategoryInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), req)
	metrics.ObserveCategoryMutation("create", err)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditCreateCategory, categoryResource, category.ID, c.ClientIP(),
		map[string]interface{}{"name": category.Name, "parent_id": category.ParentID, "level": category.Level})

	c.JSON(http.StatusCreated, CategoryResponse{Category: category})
}

// UpdateCategory applies a partial update
// @Summary     Update service category
// @Description Omitted fields stay unchanged. Changing parent_id moves the whole subtree.
// @Tags        service-categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                          true "Category ID"
// @Param       request body services.UpdateCategoryInput true "Fields to change"
// @Success     200 {object} CategoryResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Conflict"
// @Router      /service-categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req services.UpdateCategoryInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), id, req)
	metrics.ObserveCategoryMutation("update", err)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditUpdateCategory, categoryResource, id, c.ClientIP(), updateChanges(req))

	c.JSON(http.StatusOK, CategoryResponse{Category: category})
}

// DeleteCategory soft-deletes a childless category
// @Summary     Delete service category
// @Tags        service-categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Success     200 {object} MessageResponse
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Category has children"
// @Router      /service-categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	err = h.categoryService.DeleteCategory(c.Request.Context(), id)
	metrics.ObserveCategoryMutation("delete", err)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditDeleteCategory, categoryResource, id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted"})
}

// BatchDeleteCategories deletes several categories at once
// @Summary     Batch delete service categories
// @Description All ids are deleted or none is. Any category with live children rejects the batch.
// @Tags        service-categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BatchDeleteRequest true "Category IDs"
// @Success     200 {object} BatchDeleteResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "A category was not found"
// @Failure     409 {object} ErrorResponse "A category has children"
// @Router      /service-categories/batch-delete [post]
func (h *CategoryHandler) BatchDeleteCategories(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BatchDeleteRequest
	if !bindJSON(c, &req) {
		return
	}

	deleted, err := h.categoryService.BatchDeleteCategories(c.Request.Context(), req.IDs)
	metrics.ObserveCategoryMutation("batch_delete", err)
	if err != nil {
		respondWithError(c, err)
		return
	}

	for _, id := range req.IDs {
		h.auditService.Log(c.Request.Context(), userID, services.AuditDeleteCategory, categoryResource, id, c.ClientIP(),
			map[string]interface{}{"batch": true})
	}

	c.JSON(http.StatusOK, BatchDeleteResponse{Deleted: deleted})
}

// ToggleCategoryStatus enables or disables a category
// @Summary     Toggle service category status
// @Description Disabling also disables every descendant. Enabling affects only this category.
// @Tags        service-categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                 true "Category ID"
// @Param       request body ToggleStatusRequest true "New status"
// @Success     200 {object} CategoryResponse
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /service-categories/{id}/status [put]
func (h *CategoryHandler) ToggleCategoryStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ToggleStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.ToggleCategoryStatus(c.Request.Context(), id, *req.IsEnabled)
	metrics.ObserveCategoryMutation("toggle", err)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditToggleCategory, categoryResource, id, c.ClientIP(),
		map[string]interface{}{"is_enabled": *req.IsEnabled})

	c.JSON(http.StatusOK, CategoryResponse{Category: category})
}

// RestoreCategory undoes a soft delete
// @Summary     Restore service category
// @Tags        service-categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Success     200 {object} CategoryResponse
// @Failure     404 {object} ErrorResponse "Category is not deleted"
// @Failure     409 {object} ErrorResponse "Name taken or parent no longer fits"
// @Router      /service-categories/{id}/restore [post]
func (h *CategoryHandler) RestoreCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.RestoreCategory(c.Request.Context(), id)
	metrics.ObserveCategoryMutation("restore", err)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditRestoreCategory, categoryResource, id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, CategoryResponse{Category: category})
}

func updateChanges(req services.UpdateCategoryInput) map[string]interface{} {
	changes := make(map[string]interface{})
	if req.Name != nil {
		changes["name"] = *req.Name
	}
	if req.ParentID != nil {
		changes["parent_id"] = *req.ParentID
	}
	if req.SortOrder != nil {
		changes["sort_order"] = *req.SortOrder
	}
	if req.IsEnabled != nil {
		changes["is_enabled"] = *req.IsEnabled
	}
	if req.Icon != nil {
		changes["icon"] = *req.Icon
	}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	return changes
}
