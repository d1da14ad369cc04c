package model

import (
	"time"

	"github.com/google/uuid"
)

// Approval request lifecycle statuses.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// ApprovalRequest is one routed request to authorize a status transition on an
// entity. Rows are append-only: a request is created pending and mutated exactly
// once into approved or rejected. At most one pending request may exist per
// (entity_kind, entity_id) pair at any time.
type ApprovalRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityKind Kind      `gorm:"type:varchar(30);not null;index:idx_approvals_entity" json:"entity_kind"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_approvals_entity" json:"entity_id"`
	Module     Module    `gorm:"type:varchar(30);not null;index" json:"module"`
	ItemCode   string    `gorm:"type:varchar(50)" json:"item_code"`
	ItemName   string    `gorm:"type:varchar(255)" json:"item_name"`

	// FromStatus snapshots the entity status at submit time (after any submit
	// jump). The executor advances from this snapshot, never from the live
	// status, and fails the decision if the entity has drifted.
	FromStatus string `gorm:"type:varchar(30);not null" json:"from_status"`

	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RequestedBy *uuid.UUID `gorm:"type:uuid;index" json:"requested_by"`
	Requester   *User      `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	RequestedAt time.Time  `gorm:"autoCreateTime" json:"requested_at"`

	// Multi-step routing state. CurrentStep indexes into the module's flow
	// steps; TotalSteps is 1 on the single-approval path. DueAt carries the
	// advisory SLA deadline of the current step.
	CurrentStep int        `gorm:"not null;default:0" json:"current_step"`
	TotalSteps  int        `gorm:"not null;default:1" json:"total_steps"`
	DueAt       *time.Time `json:"due_at"`

	DecidedBy *uuid.UUID `gorm:"type:uuid" json:"decided_by"`
	Decider   *User      `gorm:"foreignKey:DecidedBy" json:"decider,omitempty"`
	DecidedAt *time.Time `json:"decided_at"`
	Comment   string     `gorm:"type:text" json:"comment"`

	// Executed marks that the transition side effect has been applied, so a
	// re-delivered decision never double-applies.
	Executed bool `gorm:"not null;default:false" json:"executed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
