package models

// AuditAction names an audited operation.
type AuditAction string

const (
	AuditCreateTransaction AuditAction = "CREATE_TRANSACTION"
	AuditUpdateTransaction AuditAction = "UPDATE_TRANSACTION"
	AuditDeleteTransaction AuditAction = "DELETE_TRANSACTION"
	AuditChangeRole        AuditAction = "CHANGE_ROLE"
	AuditDeleteUser        AuditAction = "DELETE_USER"
	AuditChangePassword    AuditAction = "CHANGE_PASSWORD"
)

// AuditLog is an append-only record of a sensitive operation. UserID is the
// actor. There is no foreign key to users so entries outlive the account.
type AuditLog struct {
	Base
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	Action       AuditAction    `gorm:"not null;size:100" json:"action"`
	ResourceType string         `gorm:"not null;size:100" json:"resource_type"`
	ResourceID   uint           `json:"resource_id"`
	IPAddress    string         `gorm:"size:64" json:"ip_address"`
	RequestID    string         `gorm:"size:64" json:"request_id,omitempty"`
	Changes      map[string]any `gorm:"serializer:json" json:"changes,omitempty"`
}
