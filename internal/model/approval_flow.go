package model

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalFlow configures multi-step sign-off for one module. When disabled,
// the generic single-approval path applies: any role with approve permission
// on the module may decide.
type ApprovalFlow struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Module    Module         `gorm:"type:varchar(30);uniqueIndex;not null" json:"module"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	IsEnabled bool           `gorm:"not null;default:false" json:"is_enabled"`
	Steps     []ApprovalStep `gorm:"foreignKey:FlowID;constraint:OnDelete:CASCADE" json:"steps"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ApprovalStep is one ordered step in a flow. StepOrder is significant;
// decisions must happen in order and any rejection fails the whole chain.
// SLAHours is advisory metadata, surfaced as a due timestamp, never enforced.
type ApprovalStep struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FlowID       uuid.UUID `gorm:"type:uuid;not null;index" json:"flow_id"`
	StepOrder    int       `gorm:"not null" json:"step_order"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	ApproverRole string    `gorm:"type:varchar(50);not null" json:"approver_role"`
	SLAHours     int       `gorm:"not null;default:0" json:"sla_hours"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
