package services

import (
	"context"
	"encoding/json"

	"homeserve/internal/logger"
	"homeserve/internal/models"

	"gorm.io/gorm"
)

// Audit actions.
const (
	AuditCreateCategory  = "CREATE_SERVICE_CATEGORY"
	AuditUpdateCategory  = "UPDATE_SERVICE_CATEGORY"
	AuditDeleteCategory  = "DELETE_SERVICE_CATEGORY"
	AuditToggleCategory  = "TOGGLE_SERVICE_CATEGORY"
	AuditRestoreCategory = "RESTORE_SERVICE_CATEGORY"
	AuditAssignRole      = "ASSIGN_ROLE"
	AuditResetPassword   = "RESET_PASSWORD"
	AuditClearCodes      = "CLEAR_VERIFICATION_CODES"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(ctx context.Context, userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{}) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
