package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homeserve/internal/pagination"
	"homeserve/internal/services"
)

// AdminHandler exposes role administration.
type AdminHandler struct {
	userService  services.UserServicer
	roleService  services.RoleServicer
	auditService services.AuditServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(userService services.UserServicer, roleService services.RoleServicer, auditService services.AuditServicer) *AdminHandler {
	return &AdminHandler{userService: userService, roleService: roleService, auditService: auditService}
}

// AssignRoleRequest grants a role to a user.
type AssignRoleRequest struct {
	UserID uint   `json:"user_id" binding:"required,gt=0"`
	Role   string `json:"role" binding:"required,max=64"`
}

// AssignRole grants a role
// @Summary     Assign role
// @Description Grant a role to a user. Requires the super-admin role.
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AssignRoleRequest true "User and role"
// @Success     200 {object} services.UserAccess
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "User or role not found"
// @Router      /admin/assign-role [post]
func (h *AdminHandler) AssignRole(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AssignRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	access, err := h.roleService.AssignRole(c.Request.Context(), req.UserID, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), actorID, services.AuditAssignRole, "user", req.UserID, c.ClientIP(),
		map[string]interface{}{"role": req.Role})

	c.JSON(http.StatusOK, gin.H{
		"user_id":     access.UserID,
		"username":    access.Username,
		"role":        req.Role,
		"roles":       access.Roles,
		"permissions": access.Permissions,
	})
}

// Permissions returns the caller's roles and permissions
// @Summary     Own permissions
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.UserAccess
// @Router      /admin/permissions [get]
func (h *AdminHandler) Permissions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	access, err := h.roleService.GetUserAccess(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, access)
}

// ListUsers returns a page of users
// @Summary     List users
// @Description Requires the manage-users permission.
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[UserResponse]
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var page pagination.PageRequest
	if !bindQuery(c, &page) {
		return
	}

	result, err := h.userService.ListUsers(c.Request.Context(), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pagination.Map(*result, newUserResponse))
}
