package services

import (
	"context"

	"gorm.io/gorm"

	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// AuditEntry describes one audited operation.
type AuditEntry struct {
	ActorID      uint
	Action       models.AuditAction
	ResourceType string
	ResourceID   uint
	IPAddress    string
	RequestID    string
	Changes      map[string]any
}

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer backed by the audit_logs table.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log writes e. A failed write is logged and swallowed; the audited
// operation has already succeeded.
func (s *auditService) Log(ctx context.Context, e AuditEntry) {
	entry := &models.AuditLog{
		UserID:       e.ActorID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IPAddress:    e.IPAddress,
		RequestID:    e.RequestID,
		Changes:      e.Changes,
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to write audit log",
			"error", err,
			"user_id", e.ActorID,
			"action", e.Action,
			"resource_type", e.ResourceType,
			"resource_id", e.ResourceID,
			"request_id", e.RequestID,
		)
	}
}
