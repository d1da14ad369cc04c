package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateEntity          = "CREATE_ENTITY"
	ActionNudgeStatus           = "NUDGE_STATUS"
	ActionCreateApprovalRequest = "CREATE_APPROVAL_REQUEST"
	ActionApproveRequest        = "APPROVE_REQUEST"
	ActionApproveStep           = "APPROVE_STEP"
	ActionRejectRequest         = "REJECT_REQUEST"
	ActionApplyTransition       = "APPLY_TRANSITION"
	ActionReplacePermissions    = "REPLACE_PERMISSION_MATRIX"
	ActionReplaceFlows          = "REPLACE_APPROVAL_FLOWS"
	ActionImportSettings        = "IMPORT_SETTINGS"
	ActionResetSettings         = "RESET_SETTINGS"
)

// AuditLog tracks Who, What, and When for every workflow mutation.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for system-initiated actions
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
