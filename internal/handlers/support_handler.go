package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homeserve/internal/services"
)

// SupportHandler serves operator tooling guarded by the support API key.
type SupportHandler struct {
	verificationService services.VerificationServicer
	auditService        services.AuditServicer
}

// NewSupportHandler creates a new SupportHandler.
func NewSupportHandler(verificationService services.VerificationServicer, auditService services.AuditServicer) *SupportHandler {
	return &SupportHandler{verificationService: verificationService, auditService: auditService}
}

// ClearCodesQuery identifies the codes to drop.
type ClearCodesQuery struct {
	Username string `form:"username" binding:"required,max=20"`
	Email    string `form:"email" binding:"required,email,max=255"`
	Purpose  string `form:"purpose" binding:"required,code_purpose"`
}

// ClearVerificationCodes drops a pending code and its send throttle
// @Summary     Clear verification codes
// @Description Remove the live code and throttle for an identity and purpose.
// @Tags        support
// @Produce     json
// @Security    APIKeyAuth
// @Param       username query string true "Username"
// @Param       email    query string true "Email"
// @Param       purpose  query string true "login or reset_password"
// @Success     200 {object} map[string]bool
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /support/verification-codes [delete]
func (h *SupportHandler) ClearVerificationCodes(c *gin.Context) {
	var q ClearCodesQuery
	if !bindQuery(c, &q) {
		return
	}

	cleared, err := h.verificationService.Clear(c.Request.Context(),
		services.Identity{Username: q.Username, Email: q.Email}, q.Purpose)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), 0, services.AuditClearCodes, "verification_code", 0, c.ClientIP(),
		map[string]interface{}{"username": q.Username, "email": q.Email, "purpose": q.Purpose})

	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}
